// Package render handles the raster presentation of generated pookalams.
//
// It takes the drawing commands produced by the gen package and:
//  1. Paints the radial background gradient inside its clip circle.
//  2. Fills and strokes every ring primitive with anti-aliased coverage.
//  3. Composites the stylized portrait into the reserved centre.
//
// The output surface is transparent outside the pattern circle.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log"
	"math"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/irfansharif/pookalam/internal/gen"
	"github.com/irfansharif/pookalam/internal/geom"
)

// ErrMissingFace is returned when a composition reserves the centre but no
// portrait was supplied.
var ErrMissingFace = errors.New("render: composition has a face slot but no face")

// Stats tracks rendering metrics.
type Stats struct {
	LastRenderTimeMs float64 // time spent in the last Render call in milliseconds
	LastCommands     int     // drawing commands painted by the last Render call
	LastPetals       int     // petals among them
	LastLayers       int     // petal layers among them
}

// Renderer paints compositions onto fresh surfaces. A Renderer is not safe
// for concurrent use; callers serialize renders.
type Renderer struct {
	raster *rasterizer
	stats  Stats
}

func NewRenderer() *Renderer {
	return &Renderer{raster: newRasterizer()}
}

// Render paints comp onto a new comp.Size×comp.Size surface. face is the
// stylized portrait and is required exactly when comp has a face slot. ctx is
// checked between commands so that a superseded render stops early.
func (r *Renderer) Render(ctx context.Context, comp gen.Composition, face image.Image) (*image.RGBA, error) {
	startTime := time.Now()

	if comp.Size <= 0 {
		return nil, fmt.Errorf("render: invalid surface size %d", comp.Size)
	}
	if _, ok := comp.FaceSlot(); ok && face == nil {
		return nil, ErrMissingFace
	}

	dst := image.NewRGBA(image.Rect(0, 0, comp.Size, comp.Size))
	painted := 0
	for _, s := range comp.Shapes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.paint(dst, s, face)
		painted++
	}

	r.stats = Stats{
		LastRenderTimeMs: float64(time.Since(startTime).Microseconds()) / 1000.0,
		LastCommands:     painted,
		LastPetals:       comp.Count(gen.KindPetal),
		LastLayers:       len(comp.Layers()),
	}
	return dst, nil
}

// Stats returns the metrics of the last successful render.
func (r *Renderer) Stats() Stats {
	return r.stats
}

func (r *Renderer) paint(dst *image.RGBA, s gen.Shape, face image.Image) {
	switch s.Kind {
	case gen.KindBackground:
		if s.Gradient == nil {
			log.Printf("WARNING: background without gradient, skipping")
			return
		}
		r.raster.paint(dst, gradientImage{g: *s.Gradient}, flatten(s.Ellipse))

	case gen.KindTriangle, gen.KindDiamond:
		if s.HasFill {
			r.raster.fill(dst, s.Fill, contour(s.Path))
		}
		r.raster.stroke(dst, s.Stroke, s.Path)

	case gen.KindPetal:
		outline := flatten(s.Ellipse)
		if s.HasFill {
			r.raster.fill(dst, s.Fill, outline)
		}
		r.raster.stroke(dst, s.Stroke, outline)

	case gen.KindDisc:
		if s.HasFill {
			r.raster.fill(dst, s.Fill, flatten(s.Ellipse))
		}
		r.raster.strokeRing(dst, s.Stroke, s.Ellipse)

	case gen.KindFace:
		r.composite(dst, s.Ellipse, face)

	case gen.KindBorder:
		r.raster.strokeRing(dst, s.Stroke, s.Ellipse)

	default:
		log.Printf("WARNING: unknown drawing command %d, skipping", s.Kind)
	}
}

// composite scales face into the bounding square of the clip circle and
// paints it through the circle.
func (r *Renderer) composite(dst *image.RGBA, clip gen.Ellipse, face image.Image) {
	fb := face.Bounds()
	if fb.Empty() {
		return
	}
	outline := flatten(clip)
	m, rect := r.raster.mask(outline)
	if m == nil {
		return
	}

	radius := clip.RX
	target := geom.MakeBox(clip.Center.X-radius, clip.Center.Y-radius, 2*radius, 2*radius)
	s2d := geom.FillBox(
		geom.MakeBox(float64(fb.Min.X), float64(fb.Min.Y), float64(fb.Dx()), float64(fb.Dy())),
		target,
	)

	scaled := image.NewRGBA(rect)
	xdraw.CatmullRom.Transform(scaled, toAff3(s2d), face, fb, xdraw.Src, nil)
	draw.DrawMask(dst, rect, scaled, rect.Min, m, image.Point{}, draw.Over)
}

func toAff3(t geom.Affine) f64.Aff3 {
	return f64.Aff3{t.A, t.B, t.C, t.D, t.E, t.F}
}

// gradientImage evaluates a radial gradient at pixel centres. It is unbounded
// and always opaque.
type gradientImage struct {
	g gen.Gradient
}

func (gi gradientImage) ColorModel() color.Model { return color.RGBAModel }

func (gi gradientImage) Bounds() image.Rectangle {
	return image.Rect(math.MinInt32/2, math.MinInt32/2, math.MaxInt32/2, math.MaxInt32/2)
}

func (gi gradientImage) At(x, y int) color.Color {
	c := gi.g.At(geom.MakePoint(float64(x)+0.5, float64(y)+0.5))
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// EncodePNG writes the surface as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}
