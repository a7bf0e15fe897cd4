package app

import (
	"github.com/irfansharif/pookalam/internal/geom"
)

const viewMargin = 16.0 // pixels kept clear around the surface

// View manages how a square surface is placed in the preview window.
type View struct {
	Width, Height int
}

// NewView creates a view for a viewport of the given size.
func NewView(width, height int) *View {
	return &View{
		Width:  width,
		Height: height,
	}
}

// SetViewport updates the viewport dimensions.
func (vs *View) SetViewport(width, height int) {
	vs.Width = width
	vs.Height = height
}

// Placement returns where a size×size surface is drawn: scaled to fit inside
// the viewport minus the margin, centred, aspect preserved. The box is in
// viewport pixels with y growing downward.
func (vs *View) Placement(size int) geom.Box {
	w := float64(vs.Width) - 2*viewMargin
	h := float64(vs.Height) - 2*viewMargin
	if size <= 0 || w <= 0 || h <= 0 {
		return geom.Box{}
	}
	surface := geom.MakeBox(0, 0, float64(size), float64(size))
	t := geom.FillBox(surface, geom.MakeBox(viewMargin, viewMargin, w, h))
	lo := t.MulPoint(geom.MakePoint(0, 0))
	hi := t.MulPoint(geom.MakePoint(float64(size), float64(size)))
	return geom.MakeBox(lo.X, lo.Y, hi.X-lo.X, hi.Y-lo.Y)
}

// Quad returns the placement in normalized device coordinates as the corners
// (x0, y0) bottom-left and (x1, y1) top-right.
func (vs *View) Quad(size int) (x0, y0, x1, y1 float32) {
	b := vs.Placement(size)
	if b.W <= 0 || b.H <= 0 {
		return 0, 0, 0, 0
	}
	ndcX := func(x float64) float32 { return float32(2*x/float64(vs.Width) - 1) }
	ndcY := func(y float64) float32 { return float32(1 - 2*y/float64(vs.Height)) }
	return ndcX(b.X), ndcY(b.Y + b.H), ndcX(b.X + b.W), ndcY(b.Y)
}
