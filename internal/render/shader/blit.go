package shader

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Blitter shows a CPU-rendered image across the whole framebuffer. The
// texture is reallocated only when the image size changes.
type Blitter struct {
	prog uint32
	vao  uint32
	vbo  uint32
	tex  uint32
	uTex int32

	texW, texH int
}

func NewBlitter() (*Blitter, error) {
	prog, err := buildProgram(vertexStage(quadVertSrc), fragmentStage(blitFragSrc))
	if err != nil {
		return nil, fmt.Errorf("blit program: %w", err)
	}
	b := &Blitter{prog: prog, uTex: gl.GetUniformLocation(prog, gl.Str("uTex\x00"))}
	b.vao, b.vbo = newQuad()

	gl.GenTextures(1, &b.tex)
	gl.BindTexture(gl.TEXTURE_2D, b.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	return b, nil
}

func (b *Blitter) Blit(img *image.RGBA, fbW, fbH int) {
	if img == nil || b.prog == 0 {
		return
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	gl.Viewport(0, 0, int32(fbW), int32(fbH))
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, b.tex)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	if w != b.texW || h != b.texH {
		b.texW, b.texH = w, h
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	}
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	gl.UseProgram(b.prog)
	gl.Uniform1i(b.uTex, 0)
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

func (b *Blitter) Destroy() {
	deleteQuad(&b.vao, &b.vbo)
	if b.tex != 0 {
		gl.DeleteTextures(1, &b.tex)
		b.tex = 0
	}
	if b.prog != 0 {
		gl.DeleteProgram(b.prog)
		b.prog = 0
	}
}
