// Package gen implements the pattern layout engine.
//
// The layout works in strictly ordered stages, later stages painting over
// earlier ones:
//   - A radial gradient across the whole palette fills the pattern circle.
//   - An outer ring of triangular spokes.
//   - A middle ring of diamonds.
//   - Concentric layers of elliptical petals, each with an accent disc.
//   - Optionally, a reserved centre for the stylized portrait and its border.
//
// The generator produces drawing commands in surface pixel coordinates; the
// render package rasterizes them. Every vertex comes from geom.Polar or an
// affine transform, so no drawing state is shared between primitives.
package gen

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/irfansharif/pookalam/internal/colors"
	"github.com/irfansharif/pookalam/internal/geom"
	"github.com/irfansharif/pookalam/internal/palette"
)

// ErrInvalidFeatures is returned for layouts that cannot be computed.
var ErrInvalidFeatures = errors.New("gen: invalid layout")

const (
	radiusFactor = 0.9 // pattern radius as a fraction of the half side

	spokeApex   = 0.98 // outer ring, fractions of the pattern radius
	spokeBase   = 0.80
	spokeSpread = 0.9 // fraction of the half angular spacing a spoke covers

	diamondOuter = 0.70 // middle ring, fractions of the pattern radius
	diamondInner = 0.52

	petalOffset = 0.7 // petal centre as a fraction of the layer radius
	petalLength = 0.8 // petal semi-major axis as a fraction of radius/layers
	petalAspect = 0.6 // semi-minor / semi-major
	discFactor  = 0.35

	faceFactor = 0.32 // portrait circle as a fraction of the pattern radius

	ringStrokeWidth   = 1.5
	petalStrokeWidth  = 2
	borderStrokeWidth = 4
)

var (
	spokeStroke   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x20}
	diamondStroke = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0x10}
	petalStroke   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Features holds the primitive counts of the layout.
type Features struct {
	Spokes         int // triangles in the outer ring
	Diamonds       int // diamonds in the middle ring
	Layers         int // concentric petal layers
	PetalsPerLayer int
	DiamondOffset  float64 // extra lateral angle of diamond side vertices; 0 is symmetric
}

// DefaultFeatures returns the traditional layout.
func DefaultFeatures() Features {
	return Features{
		Spokes:         54,
		Diamonds:       36,
		Layers:         8,
		PetalsPerLayer: 12,
	}
}

func (f Features) validate() error {
	if f.Spokes <= 0 || f.Diamonds <= 0 || f.Layers <= 0 || f.PetalsPerLayer <= 0 {
		return fmt.Errorf("%w: counts must be positive, got %+v", ErrInvalidFeatures, f)
	}
	return nil
}

// Generator implements the layout algorithm.
type Generator struct {
	Features Features
}

func NewGenerator() *Generator {
	return &Generator{Features: DefaultFeatures()}
}

// Generate lays out the pattern for a square surface of the given side. The
// palette is used as given; callers rotate it beforehand. When withFace is
// set the innermost petal layer is left out and the centre is reserved for
// the portrait.
//
// Generate is deterministic: equal inputs give equal compositions.
func (g *Generator) Generate(pal palette.Palette, size int, withFace bool) (Composition, error) {
	if err := g.Features.validate(); err != nil {
		return Composition{}, err
	}
	if size <= 0 {
		return Composition{}, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidFeatures, size)
	}
	if pal.Len() == 0 {
		return Composition{}, fmt.Errorf("%w: empty palette", ErrInvalidFeatures)
	}

	half := float64(size) / 2
	center := geom.MakePoint(half, half)
	maxRadius := radiusFactor * math.Min(center.X, center.Y)

	comp := Composition{
		Size:      size,
		Center:    center,
		MaxRadius: maxRadius,
	}
	comp.Shapes = append(comp.Shapes, background(pal, center, maxRadius))
	comp.Shapes = append(comp.Shapes, g.spokes(pal, center, maxRadius)...)
	comp.Shapes = append(comp.Shapes, g.diamonds(pal, center, maxRadius)...)
	comp.Shapes = append(comp.Shapes, g.petalLayers(pal, center, maxRadius, withFace)...)
	if withFace {
		comp.Shapes = append(comp.Shapes, face(pal, center, maxRadius)...)
	}
	return comp, nil
}

// background spreads the palette evenly over a radial gradient. A single
// colour palette yields one stop at offset 1, i.e. a solid fill.
func background(pal palette.Palette, center geom.Point, maxRadius float64) Shape {
	n := pal.Len()
	stops := make([]Stop, n)
	for i := range stops {
		offset := 1.0
		if n > 1 {
			offset = float64(i) / float64(n-1)
		}
		stops[i] = Stop{Offset: offset, Color: pal.At(i)}
	}
	return Shape{
		Kind:     KindBackground,
		Outer:    maxRadius,
		Ellipse:  Circle(center, maxRadius),
		Gradient: &Gradient{Center: center, Radius: maxRadius, Stops: stops},
	}
}

// spokes builds the outer ring: triangles with their apex pointing outward
// and a narrower angular footprint than their spacing, leaving gaps.
func (g *Generator) spokes(pal palette.Palette, center geom.Point, maxRadius float64) []Shape {
	count := g.Features.Spokes
	step := 2 * math.Pi / float64(count)
	halfWidth := step / 2 * spokeSpread
	outer, inner := maxRadius*spokeApex, maxRadius*spokeBase

	shapes := make([]Shape, 0, count)
	for i := 0; i < count; i++ {
		angle := float64(i) * step
		shapes = append(shapes, Shape{
			Kind:  KindTriangle,
			Index: i,
			Angle: angle,
			Inner: inner,
			Outer: outer,
			Path: []geom.Point{
				geom.Polar(center, outer, angle),
				geom.Polar(center, inner, angle-halfWidth),
				geom.Polar(center, inner, angle+halfWidth),
			},
			Fill:    pal.At(i),
			HasFill: true,
			Stroke:  Stroke{Color: spokeStroke, Width: ringStrokeWidth},
		})
	}
	return shapes
}

// diamonds builds the middle ring. Each diamond's top vertex sits on the
// outer radius at its angle and its bottom vertex on the inner radius at the
// opposite angle, so the ring is a dense overlapping star of quadrilaterals.
func (g *Generator) diamonds(pal palette.Palette, center geom.Point, maxRadius float64) []Shape {
	count := g.Features.Diamonds
	step := 2 * math.Pi / float64(count)
	outer, inner := maxRadius*diamondOuter, maxRadius*diamondInner
	mid := (outer + inner) / 2
	off := g.Features.DiamondOffset

	shapes := make([]Shape, 0, count)
	for i := 0; i < count; i++ {
		angle := float64(i) * step
		shapes = append(shapes, Shape{
			Kind:  KindDiamond,
			Index: i,
			Angle: angle,
			Inner: inner,
			Outer: outer,
			Path: []geom.Point{
				geom.Polar(center, outer, angle),
				geom.Polar(center, mid, angle+math.Pi/2+off),
				geom.Polar(center, inner, angle+math.Pi),
				geom.Polar(center, mid, angle-math.Pi/2-off),
			},
			Fill:    pal.At(i + 2),
			HasFill: true,
			Stroke:  Stroke{Color: diamondStroke, Width: ringStrokeWidth},
		})
	}
	return shapes
}

// petalLayers builds the concentric petal rings from the outside in, each
// followed by its accent disc.
func (g *Generator) petalLayers(pal palette.Palette, center geom.Point, maxRadius float64, withFace bool) []Shape {
	layers, petals := g.Features.Layers, g.Features.PetalsPerLayer
	step := 2 * math.Pi / float64(petals)
	stroke := Stroke{Color: petalStroke, Width: petalStrokeWidth}

	var shapes []Shape
	for layer := layers; layer >= 1; layer-- {
		if layer == 1 && withFace {
			continue // reserved for the portrait
		}
		radius := maxRadius / float64(layers) * float64(layer)
		petalRadius := radius / float64(layers) * petalLength
		fill := pal.At(layer - 1)

		for i := 0; i < petals; i++ {
			angle := float64(i) * step
			shapes = append(shapes, Shape{
				Kind:  KindPetal,
				Index: i,
				Layer: layer,
				Angle: angle,
				Inner: radius*petalOffset - petalRadius,
				Outer: radius*petalOffset + petalRadius,
				Ellipse: Ellipse{
					Center:   geom.Polar(center, radius*petalOffset, angle),
					RX:       petalRadius,
					RY:       petalRadius * petalAspect,
					Rotation: angle,
				},
				Fill:    fill,
				HasFill: true,
				Stroke:  stroke,
			})
		}

		shapes = append(shapes, Shape{
			Kind:    KindDisc,
			Layer:   layer,
			Outer:   radius * discFactor,
			Ellipse: Circle(center, radius*discFactor),
			Fill:    pal.At(layer - 1 + 2),
			HasFill: true,
			Stroke:  stroke,
		})
	}
	return shapes
}

// face reserves the centre circle for the portrait and rings it with the
// first palette colour.
func face(pal palette.Palette, center geom.Point, maxRadius float64) []Shape {
	r := maxRadius * faceFactor
	return []Shape{
		{
			Kind:    KindFace,
			Outer:   r,
			Ellipse: Circle(center, r),
		},
		{
			Kind:    KindBorder,
			Outer:   r,
			Ellipse: Circle(center, r),
			Stroke:  Stroke{Color: opaque(pal.At(0)), Width: borderStrokeWidth},
		},
	}
}

func opaque(c colors.Color) color.NRGBA {
	return c.NRGBA(0xff)
}
