// Package palette builds the ordered colour sequence the pattern is painted
// with. A small set of base colours is expanded into five shades each, the
// shade groups are interleaved so neighbouring entries come from different
// families, and the result can be rotated to vary the output without changing
// the colour set.
package palette

import (
	"errors"
	"fmt"
	"image"
	"math/rand"
	"slices"

	"github.com/cenkalti/dominantcolor"

	"github.com/irfansharif/pookalam/internal/colors"
)

// ErrInvalidConfiguration is returned when a palette is built from an empty
// base colour set.
var ErrInvalidConfiguration = errors.New("palette: invalid configuration")

// FlowerColors are the canonical base colours: deep maroon, marigold orange,
// deep green (tulasi), yellow and off-white.
var FlowerColors = []string{
	"#790922",
	"#d16908",
	"#2a4712",
	"#dbcd16",
	"#f1e6d5",
}

// ShadeCount is the number of shades derived from every base colour.
const ShadeCount = 5

// Mix amounts for the five shades, dark to light. Negative values darken,
// positive values lighten, zero is the base colour itself.
var shadeSteps = [ShadeCount]float64{-0.35, -0.20, 0, 0.18, 0.32}

// Palette is an immutable, ordered sequence of colours.
type Palette struct {
	colors []colors.Color
}

// New returns a palette holding a copy of cs.
func New(cs []colors.Color) Palette {
	return Palette{colors: slices.Clone(cs)}
}

// BuildShades expands c into its five shades, dark to light. The unmixed base
// sits at index 2.
func BuildShades(c colors.Color) [ShadeCount]colors.Color {
	var out [ShadeCount]colors.Color
	for i, step := range shadeSteps {
		switch {
		case step < 0:
			out[i] = colors.Darken(c, -step)
		case step > 0:
			out[i] = colors.Lighten(c, step)
		default:
			out[i] = c
		}
	}
	return out
}

// Build expands every base into its shades and interleaves the groups by
// shade index: all first shades, then all second shades, and so on.
func Build(bases []colors.Color) (Palette, error) {
	if len(bases) == 0 {
		return Palette{}, fmt.Errorf("%w: empty base colour set", ErrInvalidConfiguration)
	}

	groups := make([][]colors.Color, len(bases))
	maxLen := 0
	for i, b := range bases {
		shades := BuildShades(b)
		groups[i] = shades[:]
		maxLen = max(maxLen, len(groups[i]))
	}

	out := make([]colors.Color, 0, len(bases)*ShadeCount)
	for i := 0; i < maxLen; i++ {
		for _, g := range groups {
			if i < len(g) {
				out = append(out, g[i])
			}
		}
	}
	return Palette{colors: out}, nil
}

// ParseBases validates a list of hex strings.
func ParseBases(hexes []string) ([]colors.Color, error) {
	out := make([]colors.Color, 0, len(hexes))
	for _, h := range hexes {
		c, err := colors.ParseHex(h)
		if err != nil {
			return nil, fmt.Errorf("base colour %d: %w", len(out), err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Flowers builds the palette from FlowerColors.
func Flowers() Palette {
	bases := make([]colors.Color, len(FlowerColors))
	for i, hex := range FlowerColors {
		bases[i] = colors.MustParseHex(hex)
	}
	p, err := Build(bases)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of colours.
func (p Palette) Len() int { return len(p.colors) }

// At returns the colour at i, wrapping cyclically in both directions.
func (p Palette) At(i int) colors.Color {
	return p.colors[wrap(i, len(p.colors))]
}

// Hex returns the palette as canonical hex strings.
func (p Palette) Hex() []string {
	out := make([]string, len(p.colors))
	for i, c := range p.colors {
		out[i] = c.Hex()
	}
	return out
}

// Rotate returns p[k:] ++ p[:k] with k = offset mod len(p), for offsets of
// any sign. The receiver is left untouched.
func (p Palette) Rotate(offset int) Palette {
	n := len(p.colors)
	if n == 0 {
		return p
	}
	k := wrap(offset, n)
	out := make([]colors.Color, 0, n)
	out = append(out, p.colors[k:]...)
	out = append(out, p.colors[:k]...)
	return Palette{colors: out}
}

// Nearest returns the index of the colour closest to c by Euclidean distance
// in RGB space. Ties go to the earliest index. It returns -1 for an empty
// palette.
func (p Palette) Nearest(c colors.Color) int {
	best, bestDist := -1, 0
	for i, pc := range p.colors {
		d := colors.Distance2(c, pc)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}

// RandomRotation picks a rotation offset in [0, p.Len()).
func RandomRotation(r *rand.Rand, p Palette) int {
	if p.Len() == 0 {
		return 0
	}
	return r.Intn(p.Len())
}

// FromImage extracts k base colours from img, ordered darkest first.
func FromImage(img image.Image, k int) ([]colors.Color, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: need at least one photo colour, got %d", ErrInvalidConfiguration, k)
	}
	found := dominantcolor.FindWeight(img, k)
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no dominant colours found", ErrInvalidConfiguration)
	}
	out := make([]colors.Color, 0, len(found))
	for _, f := range found {
		out = append(out, colors.FromColor(f.RGBA))
	}
	slices.SortStableFunc(out, func(a, b colors.Color) int {
		la, lb := a.Luminance(), b.Luminance()
		switch {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	})
	return out, nil
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
