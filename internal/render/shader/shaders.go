// Package shader is the GPU strategy: a fullscreen fragment shader that
// generates the field procedurally, plus a blitter that shows CPU frames
// in the same window.
package shader

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Fullscreen quad from a VBO of two triangles in clip space.
const quadVertSrc = `#version 410 core

layout(location = 0) in vec2 aPos;

out vec2 vUV;

void main() {
    vUV = aPos * 0.5 + 0.5;
    gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00"

// Field fragment shader. uState follows visual.State ordering.
const fieldFragSrc = `#version 410 core

uniform vec2 uResolution;
uniform float uTime;
uniform float uIntensity;
uniform float uReduced;
uniform int uState;
uniform vec3 uPrimary;
uniform vec3 uSecondary;
uniform vec3 uAccent;

in vec2 vUV;
out vec4 FragColor;

const float PI = 3.14159265;

float hash(vec2 p) {
    p = fract(p * vec2(123.34, 456.21));
    p += dot(p, p + 45.32);
    return fract(p.x * p.y);
}

float noise(vec2 p) {
    vec2 i = floor(p);
    vec2 f = fract(p);
    f = f * f * (3.0 - 2.0 * f);
    float a = hash(i);
    float b = hash(i + vec2(1.0, 0.0));
    float c = hash(i + vec2(0.0, 1.0));
    float d = hash(i + vec2(1.0, 1.0));
    return mix(mix(a, b, f.x), mix(c, d, f.x), f.y);
}

float fbm(vec2 p) {
    float s = 0.0;
    float a = 0.5;
    float n = 0.0;
    for (int i = 0; i < 4; i++) {
        s += noise(p) * a;
        n += a;
        p = p * 2.03 + vec2(17.1, -9.7);
        a *= 0.5;
    }
    return s / n;
}

float wave(float x) { return 0.5 + 0.5 * sin(x); }

float field(vec2 uv, float t, float k) {
    float base = fbm(uv * 3.0 + vec2(t * 0.05, -t * 0.03));
    if (uState == 0) {
        float breath = wave(t * 0.8);
        float d = length(uv - vec2(0.5, 0.55));
        float ripple = wave(d * 18.0 - t * 1.5);
        return clamp(0.55 * base + 0.3 * ripple * (0.35 + 0.5 * breath) * (0.6 + 0.8 * k) + 0.15 * breath, 0.0, 1.0);
    }
    if (uState == 1) {
        float gx = pow(abs(sin(uv.x * PI * 14.0)), 24.0);
        float gy = pow(abs(sin(uv.y * PI * 10.0)), 24.0);
        float flicker = wave(t * 5.0 + floor(uv.x * 14.0) * 1.7 + floor(uv.y * 10.0) * 2.3);
        float n = fbm(uv * 6.0 + vec2(0.0, t * 0.3));
        float v = 0.45 * n + 0.55 * max(gx, gy) * (0.4 + 0.6 * flicker) * (0.7 + 0.5 * k);
        vec2 cell = floor(uv * vec2(24.0, 16.0));
        float step4 = floor(t * 4.0);
        if (hash(cell + step4) > 0.985 && (uReduced > 0.5 || hash(cell - step4) > 0.5)) {
            v = 1.0;
        }
        return clamp(v, 0.0, 1.0);
    }
    if (uState == 2) {
        float shimmer = noise(uv * 28.0 + vec2(t * 2.1, -t * 1.7));
        float inter = wave(length(uv - vec2(0.3, 0.4)) * 40.0 - t * 3.0) *
                      wave(length(uv - vec2(0.7, 0.6)) * 40.0 + t * 2.5);
        return clamp(0.3 * base + 0.35 * shimmer * (0.6 + 0.6 * k) + 0.35 * inter, 0.0, 1.0);
    }
    if (uState == 3) {
        return clamp(0.6 * base + 0.4 * wave(uv.y * 6.0 - t * 2.0) * (0.6 + 0.6 * k), 0.0, 1.0);
    }
    return clamp(0.5 * base + 0.5 * wave(uv.x * 22.0 + t * 9.0) * wave(uv.y * 3.0) * (0.6 + 0.6 * k), 0.0, 1.0);
}

vec3 blend(float f) {
    if (f < 0.5) {
        return mix(uSecondary, uPrimary, f * 2.0);
    }
    return mix(uPrimary, uAccent, (f - 0.5) * 2.0);
}

void main() {
    float t = uTime;
    float k = clamp(uIntensity, 0.0, 1.0);
    bool still = uReduced > 0.5;
    vec2 uv = vec2(vUV.x, 1.0 - vUV.y);

    if (uState == 4 && !still) {
        float s = floor(t * 30.0);
        uv += (vec2(hash(vec2(s, 1.0)), hash(vec2(s, 2.0))) * 2.0 - 1.0) * vec2(3.0, 2.0) / uResolution;
    }
    if (uState == 2 && !still) {
        float s = floor(t * 6.0);
        float band = floor(uv.y * 12.0);
        if (hash(vec2(s, band)) > 0.88) {
            uv.x += (hash(vec2(band, s)) * 2.0 - 1.0) * 0.08;
        }
    }

    vec3 col = blend(field(uv, t, k));
    float bright = 1.0 - 0.28 * uv.y;
    if (!still) {
        bright *= 1.0 + 0.04 * sin(t * 1.3);
    }
    col *= bright * (0.85 + 0.3 * k);

    if (uState == 3 || uState == 4) {
        float a = 0.18;
        if (!still) {
            a = uState == 3 ? 0.12 + 0.22 * wave(t * 2.0 * PI * 1.2)
                            : (sin(t * 2.0 * PI * 3.0) > 0.0 ? 0.4 : 0.1);
        }
        col = mix(col, uPrimary, a);
    }
    FragColor = vec4(col, 1.0);
}
` + "\x00"

// Blit fragment shader: shows a CPU-rendered frame.
const blitFragSrc = `#version 410 core

uniform sampler2D uTex;

in vec2 vUV;
out vec4 FragColor;

void main() {
    FragColor = vec4(texture(uTex, vec2(vUV.x, 1.0 - vUV.y)).rgb, 1.0);
}
` + "\x00"

// stage is one source unit of a program.
type stage struct {
	kind uint32
	name string
	src  string
}

func vertexStage(src string) stage   { return stage{gl.VERTEX_SHADER, "vertex", src} }
func fragmentStage(src string) stage { return stage{gl.FRAGMENT_SHADER, "fragment", src} }

// infoLog reads a driver log of n bytes through read.
func infoLog(n int32, read func(b []byte)) string {
	if n <= 0 {
		return "no log"
	}
	b := make([]byte, n+1)
	read(b)
	return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
}

func (s stage) compile() (uint32, error) {
	id := gl.CreateShader(s.kind)
	src, free := gl.Strs(s.src)
	defer free()
	gl.ShaderSource(id, 1, src, nil)
	gl.CompileShader(id)

	var ok, n int32
	if gl.GetShaderiv(id, gl.COMPILE_STATUS, &ok); ok != gl.FALSE {
		return id, nil
	}
	gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &n)
	msg := infoLog(n, func(b []byte) { gl.GetShaderInfoLog(id, n, nil, &b[0]) })
	gl.DeleteShader(id)
	return 0, fmt.Errorf("%s stage: %s", s.name, msg)
}

// buildProgram compiles every stage and links them. Shader objects are
// released whether or not linking succeeds.
func buildProgram(stages ...stage) (uint32, error) {
	ids := make([]uint32, 0, len(stages))
	defer func() {
		for _, id := range ids {
			gl.DeleteShader(id)
		}
	}()
	for _, s := range stages {
		id, err := s.compile()
		if err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}

	prog := gl.CreateProgram()
	for _, id := range ids {
		gl.AttachShader(prog, id)
	}
	gl.LinkProgram(prog)
	for _, id := range ids {
		gl.DetachShader(prog, id)
	}

	var ok, n int32
	if gl.GetProgramiv(prog, gl.LINK_STATUS, &ok); ok != gl.FALSE {
		return prog, nil
	}
	gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &n)
	msg := infoLog(n, func(b []byte) { gl.GetProgramInfoLog(prog, n, nil, &b[0]) })
	gl.DeleteProgram(prog)
	return 0, fmt.Errorf("link: %s", msg)
}
