// Package stylize turns an arbitrary photo into the portrait shown at the
// centre of the pattern: it is decoded, cover-fitted into a square, cropped to
// a circle and every visible pixel is snapped to its nearest palette colour.
// Nothing here looks at image content beyond pixel colour and transparency.
package stylize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/irfansharif/pookalam/internal/colors"
	"github.com/irfansharif/pookalam/internal/palette"
)

// FaceSize is the side of the stylized portrait surface.
const FaceSize = 300

// MaxPixels is the default cap on the pixel count an upload may declare.
const MaxPixels = 40_000_000

// ErrUnsupportedInput is returned for uploads that are not a decodable image.
var ErrUnsupportedInput = errors.New("stylize: unsupported input")

// Result is the outcome of an asynchronous decode.
type Result struct {
	Image image.Image
	Err   error
}

// Decode decodes a PNG, JPEG, GIF, BMP or WebP image of at most MaxPixels
// pixels. See DecodeLimit.
func Decode(ctx context.Context, r io.Reader) (image.Image, error) {
	return DecodeLimit(ctx, r, MaxPixels)
}

// DecodeLimit decodes a PNG, JPEG, GIF, BMP or WebP image. Input that does
// not sniff as an image, declares more than maxPixels pixels, fails to decode
// or has no pixels is rejected with ErrUnsupportedInput. The pixel count is
// read from the image header, before any pixel buffer is allocated.
func DecodeLimit(ctx context.Context, r io.Reader, maxPixels int64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: content type %s", ErrUnsupportedInput, ct)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d %s image exceeds %d pixels",
			ErrUnsupportedInput, cfg.Width, cfg.Height, format, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("%w: empty %s image", ErrUnsupportedInput, format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// DecodeAsync decodes data on its own goroutine with DecodeLimit. The
// returned channel yields exactly one Result and is then closed.
func DecodeAsync(ctx context.Context, data []byte, maxPixels int64) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		img, err := DecodeLimit(ctx, bytes.NewReader(data), maxPixels)
		out <- Result{Image: img, Err: err}
	}()
	return out
}

// Crop scales src to cover a size×size square (scale = max(size/w, size/h)),
// centres it, and makes every pixel outside the inscribed circle fully
// transparent.
func Crop(src image.Image, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("stylize: crop size must be positive, got %d", size)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedInput)
	}

	dst := imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)

	r := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) + 0.5 - r
			dy := float64(y) + 0.5 - r
			if dx*dx+dy*dy > r*r {
				i := dst.PixOffset(x, y)
				dst.Pix[i+0], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 0, 0, 0, 0
			}
		}
	}
	return dst, nil
}

// Quantize returns a copy of img in which every pixel with non-zero alpha has
// its RGB replaced by the nearest palette colour (Euclidean RGB distance,
// first match on ties). Alpha is kept; fully transparent pixels are copied
// untouched.
func Quantize(img image.Image, pal palette.Palette) *image.NRGBA {
	out := imaging.Clone(img)
	if pal.Len() == 0 {
		return out
	}

	// Photos repeat colours a lot; remember earlier lookups.
	nearest := make(map[colors.Color]colors.Color)
	b := out.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			if row[i+3] == 0 {
				continue
			}
			c := colors.Color{R: row[i+0], G: row[i+1], B: row[i+2]}
			q, ok := nearest[c]
			if !ok {
				q = pal.At(pal.Nearest(c))
				nearest[c] = q
			}
			row[i+0], row[i+1], row[i+2] = q.R, q.G, q.B
		}
	}
	return out
}

// Stylize produces a fresh FaceSize×FaceSize portrait from src.
func Stylize(src image.Image, pal palette.Palette) (*image.NRGBA, error) {
	cropped, err := Crop(src, FaceSize)
	if err != nil {
		return nil, err
	}
	return Quantize(cropped, pal), nil
}
