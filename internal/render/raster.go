package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/irfansharif/pookalam/internal/gen"
	"github.com/irfansharif/pookalam/internal/geom"
)

// Maximum length of a flattened ellipse segment, in pixels.
const flattenStep = 1.5

// contour is a closed polygon in surface coordinates.
type contour []geom.Point

// rasterizer turns contours into anti-aliased coverage masks. Contours are
// accumulated with the non-zero rule and overlapping coverage saturates, so
// every contour that should add area must wind the same way (positive
// signed area); a reversed contour punches a hole.
type rasterizer struct {
	z *vector.Rasterizer
}

func newRasterizer() *rasterizer {
	return &rasterizer{z: vector.NewRasterizer(0, 0)}
}

// mask rasterizes contours into an alpha mask covering their bounding box.
// The returned rectangle locates the mask on the surface; it may extend past
// the surface bounds and is clipped when drawn.
func (r *rasterizer) mask(contours ...contour) (*image.Alpha, image.Rectangle) {
	xmin, xmax := math.MaxFloat64, -math.MaxFloat64
	ymin, ymax := math.MaxFloat64, -math.MaxFloat64
	for _, c := range contours {
		for _, p := range c {
			xmin, xmax = math.Min(xmin, p.X), math.Max(xmax, p.X)
			ymin, ymax = math.Min(ymin, p.Y), math.Max(ymax, p.Y)
		}
	}
	if xmin > xmax || ymin > ymax {
		return nil, image.Rectangle{}
	}
	rect := image.Rect(
		int(math.Floor(xmin)), int(math.Floor(ymin)),
		int(math.Ceil(xmax))+1, int(math.Ceil(ymax))+1,
	)
	w, h := rect.Dx(), rect.Dy()

	r.z.Reset(w, h)
	r.z.DrawOp = draw.Src
	ox, oy := float64(rect.Min.X), float64(rect.Min.Y)
	for _, c := range contours {
		if len(c) < 3 {
			continue
		}
		r.z.MoveTo(float32(c[0].X-ox), float32(c[0].Y-oy))
		for _, p := range c[1:] {
			r.z.LineTo(float32(p.X-ox), float32(p.Y-oy))
		}
		r.z.ClosePath()
	}

	m := image.NewAlpha(image.Rect(0, 0, w, h))
	r.z.Draw(m, m.Bounds(), image.Opaque, image.Point{})
	return m, rect
}

// paint composites src through the coverage of contours. src is addressed in
// surface coordinates.
func (r *rasterizer) paint(dst *image.RGBA, src image.Image, contours ...contour) {
	m, rect := r.mask(contours...)
	if m == nil {
		return
	}
	draw.DrawMask(dst, rect, src, rect.Min, m, image.Point{}, draw.Over)
}

// fill paints contours in a solid colour.
func (r *rasterizer) fill(dst *image.RGBA, c color.Color, contours ...contour) {
	r.paint(dst, image.NewUniform(c), contours...)
}

// stroke outlines the closed polyline pts. Each edge becomes a rectangle of
// the stroke width and each vertex a round join.
func (r *rasterizer) stroke(dst *image.RGBA, s gen.Stroke, pts []geom.Point) {
	if s.Width <= 0 || s.Color.A == 0 || len(pts) < 2 {
		return
	}
	r.fill(dst, s.Color, strokeContours(pts, s.Width)...)
}

// strokeRing outlines a circle as an annulus.
func (r *rasterizer) strokeRing(dst *image.RGBA, s gen.Stroke, e gen.Ellipse) {
	if s.Width <= 0 || s.Color.A == 0 {
		return
	}
	hw := s.Width / 2
	outer := gen.Circle(e.Center, e.RX+hw)
	inner := gen.Circle(e.Center, math.Max(e.RX-hw, 0))
	contours := []contour{flatten(outer)}
	if inner.RX > 0 {
		contours = append(contours, reversed(flatten(inner)))
	}
	r.fill(dst, s.Color, contours...)
}

func strokeContours(pts []geom.Point, width float64) []contour {
	hw := width / 2
	out := make([]contour, 0, 2*len(pts))
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		d := q.Sub(p)
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			continue
		}
		n := geom.MakePoint(-d.Y, d.X).Scale(hw / l)
		out = append(out, contour{p.Sub(n), q.Sub(n), q.Add(n), p.Add(n)})
	}
	for _, p := range pts {
		out = append(out, flatten(gen.Circle(p, hw)))
	}
	return out
}

// flatten approximates an ellipse by a polygon with positive winding.
func flatten(e gen.Ellipse) contour {
	perimeter := 2 * math.Pi * math.Max(e.RX, e.RY)
	n := int(math.Ceil(perimeter / flattenStep))
	n = max(12, min(720, n))
	return e.Points(n)
}

func reversed(c contour) contour {
	out := make(contour, len(c))
	for i, p := range c {
		out[len(c)-1-i] = p
	}
	return out
}
