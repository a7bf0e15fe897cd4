// Package preview shows rendered surfaces in an OpenGL window.
//
// The surface is uploaded as a single RGBA texture and drawn as a textured
// quad, letterboxed into the framebuffer by app.View. The CPU rasterizer
// stays the single source of pixels; the GPU only presents them.
package preview

import (
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/pookalam/internal/app"
)

const floatSize = 4

// Stats tracks texture uploads.
type Stats struct {
	Uploads      int   // surfaces uploaded so far
	TextureBytes int64 // size of the current texture
	TextureSide  int   // side of the current texture in pixels
}

// Surface owns the GL objects presenting one square surface. It must be used
// from the thread holding the GL context.
type Surface struct {
	shaders  *ShaderManager
	vao, vbo uint32
	texture  uint32
	size     int
	stats    Stats
}

// NewSurface creates the quad buffers, texture and shader program.
func NewSurface() *Surface {
	s := &Surface{shaders: NewShaderManager()}

	gl.GenVertexArrays(1, &s.vao)
	gl.BindVertexArray(s.vao)

	// 4 vertices of (x, y, u, v), rewritten on every draw.
	gl.GenBuffers(1, &s.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*4*floatSize, nil, gl.DYNAMIC_DRAW)
	// - Attribute 0: position (vec2)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*floatSize, gl.PtrOffset(0))
	// - Attribute 1: texture coordinate (vec2)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*floatSize, gl.PtrOffset(2*floatSize))

	gl.GenTextures(1, &s.texture)
	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	// image.RGBA is alpha-premultiplied.
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)

	// Unbind.
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return s
}

// Upload replaces the texture with img.
func (s *Surface) Upload(img *image.RGBA) {
	b := img.Bounds()
	if b.Empty() {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	s.size = b.Dx()
	s.stats.Uploads++
	s.stats.TextureSide = b.Dx()
	s.stats.TextureBytes = int64(b.Dx()) * int64(b.Dy()) * 4
}

// Draw presents the last uploaded surface.
func (s *Surface) Draw(view *app.View) {
	if s.size == 0 {
		return
	}
	x0, y0, x1, y1 := view.Quad(s.size)
	if x0 == x1 || y0 == y1 {
		return
	}
	// Image row 0 is the top edge, i.e. texture v = 0.
	vertices := [16]float32{
		x0, y0, 0, 1,
		x1, y0, 1, 1,
		x0, y1, 0, 0,
		x1, y1, 1, 0,
	}

	s.shaders.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, s.texture)
	gl.BindVertexArray(s.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*floatSize, gl.Ptr(&vertices[0]))
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Stats returns upload metrics.
func (s *Surface) Stats() Stats {
	return s.stats
}

// Delete releases the GL objects.
func (s *Surface) Delete() {
	gl.DeleteTextures(1, &s.texture)
	gl.DeleteBuffers(1, &s.vbo)
	gl.DeleteVertexArrays(1, &s.vao)
}
