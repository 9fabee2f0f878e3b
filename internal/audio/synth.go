package audio

import (
	"encoding/binary"
	"math"
)

const (
	CueSampleRate   = 44100
	CueChannelCount = 2
	cueFormat       = 0 // oto.FormatFloat32LE
)

// envelope shapes a note over its normalized lifetime. Attack, decay and
// release are fractions of the note length.
type envelope struct {
	attack, decay, sustain, release float64
}

func (e envelope) at(p float64) float64 {
	if p < e.attack {
		return p / e.attack
	}
	p -= e.attack
	if p < e.decay {
		return 1 - (1-e.sustain)*p/e.decay
	}
	tail := 1 - e.attack - e.decay - e.release
	if p -= e.decay; p < tail {
		return e.sustain
	}
	return e.sustain * math.Max(0, 1-(p-tail)/e.release)
}

// voice is a two-operator FM patch.
type voice struct {
	ratio float64 // modulator frequency relative to the carrier
	index float64 // peak modulation depth
}

func (v voice) at(t, freq, depth float64) float64 {
	phase := 2 * math.Pi * freq * t
	return math.Sin(phase + v.index*depth*math.Sin(v.ratio*phase))
}

// note is one struck partial inside a cue.
type note struct {
	freq   float64
	onset  int     // first frame
	frames int     // length in frames
	gain   float64 // carrier level
	sub    float64 // level of the plain sine layered at subRat
	subRat float64
	glide  float64 // fractional pitch drop across the note
	env    envelope
	voice  voice
}

func (n note) mixInto(mix []float64) {
	for j := 0; j < n.frames && n.onset+j < len(mix); j++ {
		i := n.onset + j
		p := float64(j) / float64(n.frames)
		t := float64(i) / CueSampleRate
		f := n.freq * (1 - n.glide*p)
		a := n.env.at(p)
		mix[i] += a * (n.gain*n.voice.at(t, f, a) + n.sub*math.Sin(2*math.Pi*f*n.subRat*t))
	}
}

// encode writes the mix as interleaved float32 LE stereo, limited with tanh.
func encode(mix []float64) []byte {
	const frame = 4 * CueChannelCount
	buf := make([]byte, len(mix)*frame)
	for i, s := range mix {
		bits := math.Float32bits(float32(math.Tanh(s)))
		for c := 0; c < CueChannelCount; c++ {
			binary.LittleEndian.PutUint32(buf[i*frame+c*4:], bits)
		}
	}
	return buf
}

func seconds(s float64) int { return int(s * CueSampleRate) }

// SuccessChime is a short ascending bell triad.
func SuccessChime() []byte {
	bell := envelope{attack: 0.004, decay: 0.6, sustain: 0.05, release: 0.3}
	step, total := seconds(0.08), 3*seconds(0.08)+seconds(0.30)
	mix := make([]float64, total)
	for k, f := range []float64{523.25, 659.25, 783.99} {
		n := note{freq: f, onset: k * step, gain: 0.22, sub: 0.05, subRat: 2, env: bell, voice: voice{ratio: 3.5, index: 4}}
		n.frames = total - n.onset
		n.mixInto(mix)
	}
	return encode(mix)
}

// ErrorTone is a low falling two-note buzz.
func ErrorTone() []byte {
	buzz := envelope{attack: 0.01, decay: 0.3, sustain: 0.3, release: 0.4}
	total := seconds(0.45)
	mix := make([]float64, total)
	for _, on := range []struct{ freq, at float64 }{{220.00, 0}, {164.81, 0.16}} {
		n := note{freq: on.freq, onset: seconds(on.at), gain: 0.28, sub: 0.08, subRat: 0.5, glide: 0.04, env: buzz, voice: voice{ratio: 1, index: 2.5}}
		n.frames = total - n.onset
		n.mixInto(mix)
	}
	return encode(mix)
}
