package shader

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"brain/internal/capability"
	"brain/internal/render"
	"brain/internal/visual"
)

// Two clip-space triangles covering the viewport.
var quadVerts = [12]float32{
	-1, -1, 1, -1, 1, 1,
	-1, -1, 1, 1, -1, 1,
}

// glOffset converts a byte offset to unsafe.Pointer for VBO offset params.
func glOffset(n int) unsafe.Pointer { return unsafe.Pointer(uintptr(n)) }

func newQuad() (vao, vbo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.GenBuffers(1, &vbo)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVerts)*4, gl.Ptr(&quadVerts[0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, glOffset(0))
	gl.BindVertexArray(0)
	return vao, vbo
}

func deleteQuad(vao, vbo *uint32) {
	if *vbo != 0 {
		gl.DeleteBuffers(1, vbo)
		*vbo = 0
	}
	if *vao != 0 {
		gl.DeleteVertexArrays(1, vao)
		*vao = 0
	}
}

// Init loads the GL bindings for the current context. Nothing, not even a
// blitted CPU frame, can be shown without it.
func Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("%w: %v", capability.ErrNoGPU, err)
	}
	return nil
}

// Probe reports whether the field shader can run on the current context:
// the driver must expose GLSL and accept the field program. Call it after
// Init.
func Probe() error {
	if v := gl.GetString(gl.SHADING_LANGUAGE_VERSION); v == nil {
		return fmt.Errorf("%w: no shading language", capability.ErrNoGPU)
	}
	prog, err := buildProgram(vertexStage(quadVertSrc), fragmentStage(fieldFragSrc))
	if err != nil {
		return fmt.Errorf("%w: field program: %v", capability.ErrNoGPU, err)
	}
	gl.DeleteProgram(prog)
	return nil
}

// Renderer draws the field on the GPU into the current framebuffer.
type Renderer struct {
	prog uint32
	vao  uint32
	vbo  uint32

	uResolution int32
	uTime       int32
	uIntensity  int32
	uReduced    int32
	uState      int32
	uPrimary    int32
	uSecondary  int32
	uAccent     int32

	fbW, fbH int
}

var _ render.Renderer = (*Renderer)(nil)

// New compiles and links the field program. Nothing is left allocated
// when it fails.
func New() (*Renderer, error) {
	prog, err := buildProgram(vertexStage(quadVertSrc), fragmentStage(fieldFragSrc))
	if err != nil {
		return nil, fmt.Errorf("field program: %w", err)
	}
	r := &Renderer{
		prog:        prog,
		uResolution: gl.GetUniformLocation(prog, gl.Str("uResolution\x00")),
		uTime:       gl.GetUniformLocation(prog, gl.Str("uTime\x00")),
		uIntensity:  gl.GetUniformLocation(prog, gl.Str("uIntensity\x00")),
		uReduced:    gl.GetUniformLocation(prog, gl.Str("uReduced\x00")),
		uState:      gl.GetUniformLocation(prog, gl.Str("uState\x00")),
		uPrimary:    gl.GetUniformLocation(prog, gl.Str("uPrimary\x00")),
		uSecondary:  gl.GetUniformLocation(prog, gl.Str("uSecondary\x00")),
		uAccent:     gl.GetUniformLocation(prog, gl.Str("uAccent\x00")),
	}
	r.vao, r.vbo = newQuad()
	return r, nil
}

func (r *Renderer) Name() string { return "shader" }

func (r *Renderer) Draw(s *render.Surface, f render.Frame) error {
	if r.prog == 0 {
		return render.ErrNotStarted
	}
	w, h := s.PixelSize()
	if w == 0 || h == 0 {
		return nil
	}
	if w != r.fbW || h != r.fbH {
		r.fbW, r.fbH = w, h
		gl.Viewport(0, 0, int32(w), int32(h))
	}

	gl.UseProgram(r.prog)
	gl.BindVertexArray(r.vao)
	gl.Uniform2f(r.uResolution, float32(w), float32(h))
	gl.Uniform1f(r.uTime, float32(f.Elapsed))
	gl.Uniform1f(r.uIntensity, float32(f.Intensity))
	reduced := float32(0)
	if f.Reduced {
		reduced = 1
	}
	gl.Uniform1f(r.uReduced, reduced)
	gl.Uniform1i(r.uState, int32(f.State))
	setColor(r.uPrimary, f.Palette.Primary)
	setColor(r.uSecondary, f.Palette.Secondary)
	setColor(r.uAccent, f.Palette.Accent)

	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	return nil
}

// Destroy releases the program and buffers. Safe to call twice.
func (r *Renderer) Destroy() {
	deleteQuad(&r.vao, &r.vbo)
	if r.prog != 0 {
		gl.DeleteProgram(r.prog)
		r.prog = 0
	}
}

func setColor(loc int32, c visual.RGB) {
	red, green, blue := c.Floats()
	gl.Uniform3f(loc, red, green, blue)
}
