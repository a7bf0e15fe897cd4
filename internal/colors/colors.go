// Package colors implements the small amount of colour algebra the pattern
// needs: validated hex parsing, linear mixing toward a target (lighten and
// darken) and exact RGB distances. All functions are pure.
package colors

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque 8-bit RGB triple. It satisfies color.Color.
type Color struct {
	R, G, B uint8
}

var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
)

// ParseError is returned when a string is not a 6 digit hex colour.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("colors: cannot parse %q: %s", e.Input, e.Reason)
}

// ParseHex parses "#rrggbb" (the leading '#' is optional). Anything else is
// rejected with a *ParseError; there is no fallback colour.
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return Color{}, &ParseError{Input: s, Reason: fmt.Sprintf("want 6 hex digits, got %d", len(h))}
	}
	for i := 0; i < len(h); i++ {
		if !isHexDigit(h[i]) {
			return Color{}, &ParseError{Input: s, Reason: fmt.Sprintf("invalid hex digit %q", h[i])}
		}
	}
	c, err := colorful.Hex("#" + h)
	if err != nil {
		return Color{}, &ParseError{Input: s, Reason: err.Error()}
	}
	return FromColorful(c), nil
}

// MustParseHex is ParseHex for literals known to be valid.
func MustParseHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func isHexDigit(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

// FromColorful converts a go-colorful colour, clamping out of gamut values.
func FromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

// Colorful returns c as a go-colorful colour.
func (c Color) Colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Hex returns the canonical lowercase "#rrggbb" form.
func (c Color) Hex() string {
	return c.Colorful().Hex()
}

func (c Color) String() string { return c.Hex() }

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return uint32(c.R) * 0x101, uint32(c.G) * 0x101, uint32(c.B) * 0x101, 0xffff
}

// NRGBA returns c with the given straight (non-premultiplied) alpha.
func (c Color) NRGBA(alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

// Luminance is the relative luminance in [0,1] computed from linear RGB.
func (c Color) Luminance() float64 {
	r, g, b := c.Colorful().LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// FromColor drops alpha from an arbitrary color.Color, un-premultiplying
// first so translucent pixels keep their hue.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B}
}

// Mix moves c toward target by amount, per channel, rounding half up and
// clamping to [0,255]. amount is clamped to [0,1].
func Mix(c, target Color, amount float64) Color {
	amount = clamp(amount, 0, 1)
	return Color{
		R: mixChannel(c.R, target.R, amount),
		G: mixChannel(c.G, target.G, amount),
		B: mixChannel(c.B, target.B, amount),
	}
}

// Lighten mixes c toward white.
func Lighten(c Color, amount float64) Color { return Mix(c, White, amount) }

// Darken mixes c toward black.
func Darken(c Color, amount float64) Color { return Mix(c, Black, amount) }

func mixChannel(c, t uint8, amount float64) uint8 {
	v := float64(c) + (float64(t)-float64(c))*amount
	return uint8(clamp(math.Floor(v+0.5), 0, 255))
}

// Distance2 is the squared Euclidean distance between a and b in RGB space.
// It orders colours exactly like the Euclidean distance.
func Distance2(a, b Color) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
