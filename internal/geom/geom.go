// Package geom provides the 2D primitives the layout engine is built on:
// - Polar to Cartesian conversion around a centre
// - Immutable affine transforms (translation, rotation, scaling)
// - Bounding box fitting
package geom

import (
	"log"
	"math"
)

// Point represents a 2D point or vector in Cartesian coordinates.
type Point struct {
	X float64
	Y float64
}

// Box represents an axis-aligned rectangle.
type Box struct {
	X float64
	Y float64
	W float64
	H float64
}

// Affine represents a 2D affine transform in row-major form:
// [ a b c ]
// [ d e f ]
// where (x', y') = (a*x + b*y + c, d*x + e*y + f)
type Affine struct {
	A float64
	B float64
	C float64
	D float64
	E float64
	F float64
}

func MakePoint(x, y float64) Point               { return Point{X: x, Y: y} }
func MakeBox(x, y, w, h float64) Box             { return Box{X: x, Y: y, W: w, H: h} }
func MakeAffine(a, b, c, d, e, f float64) Affine { return Affine{A: a, B: b, C: c, D: d, E: e, F: f} }

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

func Dist(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Polar returns the point at distance r from center along angle theta
// (radians, counter-clockwise from +x in maths convention). On a raster
// surface y grows downward, so increasing theta sweeps clockwise on screen.
func Polar(center Point, r, theta float64) Point {
	return Point{
		X: center.X + r*math.Cos(theta),
		Y: center.Y + r*math.Sin(theta),
	}
}

// Center returns the midpoint of the box.
func (b Box) Center() Point { return Point{b.X + 0.5*b.W, b.Y + 0.5*b.H} }

// Translate returns a translation by (dx, dy).
func Translate(dx, dy float64) Affine { return MakeAffine(1, 0, dx, 0, 1, dy) }

// Rotate returns a rotation by theta radians about the origin.
func Rotate(theta float64) Affine {
	s, c := math.Sincos(theta)
	return MakeAffine(c, -s, 0, s, c, 0)
}

// ScaleXY returns a non-uniform scale about the origin.
func ScaleXY(sx, sy float64) Affine { return MakeAffine(sx, 0, 0, 0, sy, 0) }

// MulPoint applies the affine transform to a point.
func (t Affine) MulPoint(p Point) Point {
	return Point{
		X: t.A*p.X + t.B*p.Y + t.C,
		Y: t.D*p.X + t.E*p.Y + t.F,
	}
}

// Mul composes two affine transforms (applies u then t).
func (t Affine) Mul(u Affine) Affine {
	return MakeAffine(
		t.A*u.A+t.B*u.D,
		t.A*u.B+t.B*u.E,
		t.A*u.C+t.B*u.F+t.C,
		t.D*u.A+t.E*u.D,
		t.D*u.B+t.E*u.E,
		t.D*u.C+t.E*u.F+t.F,
	)
}

// FillBox returns a transform that fits box b1 inside b2 (contain), centred,
// preserving aspect ratio.
func FillBox(b1, b2 Box) Affine {
	checkBoxes(b1, b2)
	sc := math.Min(b2.W/b1.W, b2.H/b1.H)
	c1, c2 := b1.Center(), b2.Center()
	return Translate(c2.X, c2.Y).Mul(ScaleXY(sc, sc)).Mul(Translate(-c1.X, -c1.Y))
}

func checkBoxes(b1, b2 Box) {
	if b1.W <= 0 || b1.H <= 0 {
		log.Fatalf("source box must have positive width and height, got W=%v H=%v", b1.W, b1.H)
	}
	if b2.W <= 0 || b2.H <= 0 {
		log.Fatalf("destination box must have positive width and height, got W=%v H=%v", b2.W, b2.H)
	}
}
