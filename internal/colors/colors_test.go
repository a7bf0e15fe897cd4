package colors

import (
	"errors"
	"testing"
)

func TestParseHex(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Color
	}{
		{"#790922", Color{0x79, 0x09, 0x22}},
		{"d16908", Color{0xd1, 0x69, 0x08}},
		{"#F1E6D5", Color{0xf1, 0xe6, 0xd5}},
		{" #000000 ", Black},
	} {
		got, err := ParseHex(tc.in)
		if err != nil {
			t.Fatalf("ParseHex(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseHex(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseHexRejects(t *testing.T) {
	for _, in := range []string{"", "#fff", "#12345", "#1234567", "#12345g", "zzzzzz"} {
		_, err := ParseHex(in)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("ParseHex(%q): expected *ParseError, got %v", in, err)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := Color{0x2a, 0x47, 0x12}
	if got := c.Hex(); got != "#2a4712" {
		t.Fatalf("unexpected hex: %s", got)
	}
	back, err := ParseHex(c.Hex())
	if err != nil || back != c {
		t.Fatalf("round trip: %v %v", back, err)
	}
}

func TestMixIdentities(t *testing.T) {
	samples := []Color{Black, White, {0x79, 0x09, 0x22}, {0xdb, 0xcd, 0x16}, {1, 254, 128}}
	for _, c := range samples {
		for _, target := range samples {
			if got := Mix(c, target, 0); got != c {
				t.Fatalf("Mix(%v, %v, 0) = %v", c, target, got)
			}
			if got := Mix(c, target, 1); got != target {
				t.Fatalf("Mix(%v, %v, 1) = %v", c, target, got)
			}
		}
	}
}

func TestMixBounds(t *testing.T) {
	// Channels are uint8 so bounds hold by construction; check that
	// out-of-range amounts are clamped instead of wrapping.
	c := Color{200, 10, 128}
	if got := Mix(c, White, 5); got != White {
		t.Fatalf("amount > 1 not clamped: %v", got)
	}
	if got := Mix(c, White, -3); got != c {
		t.Fatalf("amount < 0 not clamped: %v", got)
	}
}

func TestMixRounding(t *testing.T) {
	// 121 * 0.65 = 78.65 rounds to 79.
	if got := Darken(Color{121, 0, 0}, 0.35); got.R != 79 {
		t.Fatalf("unexpected darken: %v", got)
	}
	// 0 + 255 * 0.5 = 127.5 rounds half up to 128.
	if got := Lighten(Black, 0.5); got != (Color{128, 128, 128}) {
		t.Fatalf("unexpected lighten: %v", got)
	}
}

func TestLightenDarkenMonotonic(t *testing.T) {
	c := MustParseHex("#d16908")
	if Darken(c, 0.35).Luminance() > Darken(c, 0.2).Luminance() {
		t.Fatalf("darken not monotonic")
	}
	if Lighten(c, 0.18).Luminance() > Lighten(c, 0.32).Luminance() {
		t.Fatalf("lighten not monotonic")
	}
}

func TestDistance2(t *testing.T) {
	if d := Distance2(Black, White); d != 3*255*255 {
		t.Fatalf("unexpected distance: %d", d)
	}
	if d := Distance2(White, White); d != 0 {
		t.Fatalf("unexpected distance: %d", d)
	}
}

func TestRGBA(t *testing.T) {
	r, g, b, a := Color{255, 0, 1}.RGBA()
	if r != 0xffff || g != 0 || b != 0x101 || a != 0xffff {
		t.Fatalf("unexpected RGBA: %x %x %x %x", r, g, b, a)
	}
}
