package capability

import "errors"

var ErrNoGPU = errors.New("gpu shading unavailable")
