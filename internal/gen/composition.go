package gen

import (
	"image/color"
	"math"

	"github.com/irfansharif/pookalam/internal/colors"
	"github.com/irfansharif/pookalam/internal/geom"
)

// Kind tags a drawing command.
type Kind int

const (
	KindBackground Kind = iota // radial gradient clipped to the pattern circle
	KindTriangle               // outer ring spoke
	KindDiamond                // middle ring quadrilateral
	KindPetal                  // elliptical petal
	KindDisc                   // per-layer accent disc
	KindFace                   // stylized portrait clipped to the centre circle
	KindBorder                 // ring stroked around the portrait
)

func (k Kind) String() string {
	switch k {
	case KindBackground:
		return "background"
	case KindTriangle:
		return "triangle"
	case KindDiamond:
		return "diamond"
	case KindPetal:
		return "petal"
	case KindDisc:
		return "disc"
	case KindFace:
		return "face"
	case KindBorder:
		return "border"
	default:
		return "unknown"
	}
}

// Stroke describes an outline. A zero Width means no outline.
type Stroke struct {
	Color color.NRGBA
	Width float64
}

// Ellipse is a rotated ellipse: the unit circle mapped through
// Translate(Center)·Rotate(Rotation)·Scale(RX, RY).
type Ellipse struct {
	Center   geom.Point
	RX, RY   float64
	Rotation float64
}

// Circle returns the ellipse of a circle.
func Circle(center geom.Point, r float64) Ellipse {
	return Ellipse{Center: center, RX: r, RY: r}
}

// Affine maps the unit circle onto the ellipse.
func (e Ellipse) Affine() geom.Affine {
	return geom.Translate(e.Center.X, e.Center.Y).
		Mul(geom.Rotate(e.Rotation)).
		Mul(geom.ScaleXY(e.RX, e.RY))
}

// Points flattens the ellipse into n vertices, counter-clockwise in maths
// convention starting at angle 0.
func (e Ellipse) Points(n int) []geom.Point {
	t := e.Affine()
	out := make([]geom.Point, n)
	for i := range out {
		theta := 2 * math.Pi * float64(i) / float64(n)
		out[i] = t.MulPoint(geom.MakePoint(math.Cos(theta), math.Sin(theta)))
	}
	return out
}

// Stop is a gradient colour stop at Offset in [0,1].
type Stop struct {
	Offset float64
	Color  colors.Color
}

// Gradient is a radial gradient from Center (offset 0) to Radius (offset 1).
// Stops are sorted by offset; positions outside the stop range take the
// nearest end colour.
type Gradient struct {
	Center geom.Point
	Radius float64
	Stops  []Stop
}

// ColorAt returns the gradient colour at offset t.
func (g Gradient) ColorAt(t float64) colors.Color {
	if len(g.Stops) == 0 {
		return colors.Black
	}
	if t <= g.Stops[0].Offset {
		return g.Stops[0].Color
	}
	for i := 1; i < len(g.Stops); i++ {
		lo, hi := g.Stops[i-1], g.Stops[i]
		if t > hi.Offset {
			continue
		}
		span := hi.Offset - lo.Offset
		if span <= 0 {
			return hi.Color
		}
		return colors.Mix(lo.Color, hi.Color, (t-lo.Offset)/span)
	}
	return g.Stops[len(g.Stops)-1].Color
}

// At returns the gradient colour at point p.
func (g Gradient) At(p geom.Point) colors.Color {
	if g.Radius <= 0 {
		return g.ColorAt(1)
	}
	return g.ColorAt(geom.Dist(p, g.Center) / g.Radius)
}

// Shape is one drawing command. Which fields are meaningful depends on Kind:
// polygons (triangles, diamonds) use Path, round shapes use Ellipse, the
// background uses Gradient and Ellipse as its clip.
type Shape struct {
	Kind  Kind
	Index int // position within its ring
	Layer int // 1-based petal layer for petals and discs, 0 otherwise

	Angle        float64 // angular position of the primitive, radians
	Inner, Outer float64 // radii spanned, measured from the pattern centre

	Path     []geom.Point
	Ellipse  Ellipse
	Gradient *Gradient

	Fill    colors.Color
	HasFill bool
	Stroke  Stroke
}

// IsPolygon reports whether the shape is described by Path.
func (s Shape) IsPolygon() bool {
	return s.Kind == KindTriangle || s.Kind == KindDiamond
}

// Composition is the ordered list of drawing commands for one pattern.
// Later shapes paint over earlier ones.
type Composition struct {
	Size      int
	Center    geom.Point
	MaxRadius float64
	Shapes    []Shape
}

// Count returns the number of shapes of the given kind.
func (c Composition) Count(kind Kind) int {
	n := 0
	for _, s := range c.Shapes {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// Layers returns the petal layers present, outermost first.
func (c Composition) Layers() []int {
	var out []int
	seen := make(map[int]bool)
	for _, s := range c.Shapes {
		if s.Kind == KindPetal && !seen[s.Layer] {
			seen[s.Layer] = true
			out = append(out, s.Layer)
		}
	}
	return out
}

// Background returns the gradient command, if any.
func (c Composition) Background() (Shape, bool) {
	return c.find(KindBackground)
}

// FaceSlot returns the portrait clip command; ok is false when the
// composition reserves no centre.
func (c Composition) FaceSlot() (Shape, bool) {
	return c.find(KindFace)
}

func (c Composition) find(kind Kind) (Shape, bool) {
	for _, s := range c.Shapes {
		if s.Kind == kind {
			return s, true
		}
	}
	return Shape{}, false
}
