package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/irfansharif/pookalam/internal/gen"
	"github.com/irfansharif/pookalam/internal/geom"
)

const (
	svgGradientID = "pookalam-bg"
	svgFaceClipID = "pookalam-face"
)

// EncodeSVG writes the composition as an SVG document. It mirrors Render:
// the same commands in the same order, with the portrait embedded as a PNG
// data URI.
func EncodeSVG(w io.Writer, comp gen.Composition, face image.Image) error {
	if comp.Size <= 0 {
		return fmt.Errorf("render: invalid surface size %d", comp.Size)
	}
	slot, hasFace := comp.FaceSlot()
	if hasFace && face == nil {
		return ErrMissingFace
	}

	var faceURI string
	if hasFace {
		var buf bytes.Buffer
		if err := EncodePNG(&buf, face); err != nil {
			return err
		}
		faceURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	// svgo writes through fmt.Fprintf and drops errors; buffer the document
	// so the caller sees a single write error, if any.
	var doc bytes.Buffer
	canvas := svg.New(&doc)
	canvas.Start(comp.Size, comp.Size)
	canvas.Title("Pookalam")

	canvas.Def()
	if bg, ok := comp.Background(); ok && bg.Gradient != nil {
		canvas.RadialGradient(svgGradientID, 50, 50, 50, 50, 50, offcolors(*bg.Gradient))
	}
	if hasFace {
		canvas.ClipPath(fmt.Sprintf(`id="%s"`, svgFaceClipID))
		canvas.Path(ellipsePath(slot.Ellipse))
		canvas.ClipEnd()
	}
	canvas.DefEnd()

	for _, s := range comp.Shapes {
		switch {
		case s.Kind == gen.KindBackground:
			canvas.Path(ellipsePath(s.Ellipse), fmt.Sprintf(`fill="url(#%s)"`, svgGradientID))
		case s.IsPolygon():
			canvas.Path(polygonPath(s.Path), paintAttrs(s)...)
		case s.Kind == gen.KindPetal, s.Kind == gen.KindDisc, s.Kind == gen.KindBorder:
			canvas.Path(ellipsePath(s.Ellipse), paintAttrs(s)...)
		case s.Kind == gen.KindFace:
			x := int(math.Floor(s.Ellipse.Center.X - s.Ellipse.RX))
			y := int(math.Floor(s.Ellipse.Center.Y - s.Ellipse.RX))
			side := int(math.Ceil(2 * s.Ellipse.RX))
			canvas.Image(x, y, side, side, faceURI,
				`preserveAspectRatio="none"`,
				fmt.Sprintf(`clip-path="url(#%s)"`, svgFaceClipID))
		}
	}
	canvas.End()

	if _, err := w.Write(doc.Bytes()); err != nil {
		return fmt.Errorf("render: write svg: %w", err)
	}
	return nil
}

func offcolors(g gen.Gradient) []svg.Offcolor {
	out := make([]svg.Offcolor, len(g.Stops))
	for i, s := range g.Stops {
		out[i] = svg.Offcolor{
			Offset:  uint8(math.Round(s.Offset * 100)),
			Color:   s.Color.Hex(),
			Opacity: 1,
		}
	}
	return out
}

func paintAttrs(s gen.Shape) []string {
	attrs := []string{`fill="none"`}
	if s.HasFill {
		attrs[0] = fmt.Sprintf(`fill="%s"`, s.Fill.Hex())
	}
	if s.Stroke.Width > 0 && s.Stroke.Color.A > 0 {
		attrs = append(attrs,
			fmt.Sprintf(`stroke="%s"`, hexOf(s.Stroke.Color)),
			fmt.Sprintf(`stroke-opacity="%.3f"`, float64(s.Stroke.Color.A)/255),
			fmt.Sprintf(`stroke-width="%g"`, s.Stroke.Width),
		)
	}
	return attrs
}

func hexOf(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func polygonPath(pts []geom.Point) string {
	var b strings.Builder
	for i, p := range pts {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&b, "%s%.3f %.3f ", cmd, p.X, p.Y)
	}
	b.WriteString("Z")
	return b.String()
}

// ellipsePath draws a rotated ellipse as two half arcs.
func ellipsePath(e gen.Ellipse) string {
	t := e.Affine()
	p0 := t.MulPoint(geom.MakePoint(1, 0))
	p1 := t.MulPoint(geom.MakePoint(-1, 0))
	deg := e.Rotation * 180 / math.Pi
	return fmt.Sprintf("M%.3f %.3f A%.3f %.3f %.3f 1 1 %.3f %.3f A%.3f %.3f %.3f 1 1 %.3f %.3f Z",
		p0.X, p0.Y,
		e.RX, e.RY, deg, p1.X, p1.Y,
		e.RX, e.RY, deg, p0.X, p0.Y,
	)
}
