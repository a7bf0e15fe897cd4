package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/irfansharif/pookalam/internal/colors"
	"github.com/irfansharif/pookalam/internal/config"
	"github.com/irfansharif/pookalam/internal/stylize"
)

func newSession(t *testing.T, cfg config.Config) *Session {
	t.Helper()
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func photo(t *testing.T, w, h int, fill func(x, y int) color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func currentFace(s *Session) *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.face
}

func setRotation(s *Session, rotation int) error {
	return s.Update(nil, &rotation)
}

func solidPhoto(t *testing.T, c color.NRGBA) []byte {
	return photo(t, 64, 48, func(int, int) color.NRGBA { return c })
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func TestNewSessionRejectsBadBases(t *testing.T) {
	if _, err := NewSession(config.Config{Size: 100, Bases: []string{"#zzzzzz"}}); err == nil {
		t.Fatalf("expected error for malformed base colour")
	}
}

func TestRenderEmptyIsNoop(t *testing.T) {
	s := newSession(t, config.Config{})
	if st := s.State(); st != StateEmpty {
		t.Fatalf("expected empty state, got %s", st)
	}
	img, _, err := s.Render(context.Background())
	if err != nil || img != nil {
		t.Fatalf("expected no-op render, got %v, %v", img, err)
	}
	if err := s.SetSize(0); err == nil {
		t.Fatalf("expected error for zero size")
	}
	if err := s.SetSize(120); err != nil {
		t.Fatal(err)
	}
	if st := s.State(); st != StatePatternOnly {
		t.Fatalf("expected pattern state, got %s", st)
	}
}

func TestRender(t *testing.T) {
	s := newSession(t, config.Config{Size: 200, Rotation: 3})
	img, req, err := s.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if req != (RenderRequest{Rotation: 3, Size: 200}) {
		t.Fatalf("unexpected request: %+v", req)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("unexpected bounds: %v", b)
	}
	if s.Stats().LastCommands == 0 {
		t.Fatalf("stats not recorded")
	}

	// Rotation 3 and 28 are the same palette on 25 colours.
	if err := setRotation(s, 28); err != nil {
		t.Fatal(err)
	}
	again, _, err := s.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img.Pix, again.Pix) {
		t.Fatalf("equivalent rotations rendered differently")
	}
}

func TestUploadFace(t *testing.T) {
	s := newSession(t, config.Config{Size: 600})
	c := color.NRGBA{R: 200, G: 30, B: 40, A: 255}
	if err := s.Upload(context.Background(), bytes.NewReader(solidPhoto(t, c))); err != nil {
		t.Fatal(err)
	}
	if st := s.State(); st != StatePatternWithFace {
		t.Fatalf("expected face state, got %s", st)
	}

	img, req, err := s.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !req.HasFace {
		t.Fatalf("request should report the face")
	}
	pal := s.Palette()
	want := pal.At(pal.Nearest(colors.Color{R: c.R, G: c.G, B: c.B}))
	got := img.RGBAAt(300, 300)
	if got.A != 0xff || !near(got.R, want.R) || !near(got.G, want.G) || !near(got.B, want.B) {
		t.Fatalf("centre pixel = %v, want stylized %v", got, want)
	}

	s.ClearFace()
	if st := s.State(); st != StatePatternOnly || currentFace(s) != nil {
		t.Fatalf("face not cleared: %s", st)
	}
}

func TestUploadFailureKeepsState(t *testing.T) {
	s := newSession(t, config.Config{Size: 100})
	if err := s.Upload(context.Background(), bytes.NewReader(solidPhoto(t, color.NRGBA{G: 200, A: 255}))); err != nil {
		t.Fatal(err)
	}
	face := currentFace(s)

	err := s.Upload(context.Background(), strings.NewReader("not an image"))
	if !errors.Is(err, stylize.ErrUnsupportedInput) {
		t.Fatalf("expected ErrUnsupportedInput, got %v", err)
	}
	if currentFace(s) != face {
		t.Fatalf("failed upload replaced the portrait")
	}
}

func TestUploadPixelLimit(t *testing.T) {
	s := newSession(t, config.Config{Size: 100, MaxUploadPixels: 1000})
	err := s.Upload(context.Background(), bytes.NewReader(solidPhoto(t, color.NRGBA{G: 200, A: 255})))
	if !errors.Is(err, stylize.ErrUnsupportedInput) {
		t.Fatalf("expected ErrUnsupportedInput for 64x48 over 1000 pixels, got %v", err)
	}
	if s.State() != StatePatternOnly {
		t.Fatalf("rejected upload changed state to %s", s.State())
	}
	if got := newSession(t, config.Config{Size: 100}).MaxUploadPixels(); got != stylize.MaxPixels {
		t.Fatalf("expected default limit %d, got %d", stylize.MaxPixels, got)
	}
}

func TestUploadImage(t *testing.T) {
	s := newSession(t, config.Config{Size: 100})
	res := <-stylize.DecodeAsync(context.Background(), solidPhoto(t, color.NRGBA{R: 200, A: 255}), s.MaxUploadPixels())
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if err := s.UploadImage(res.Image); err != nil {
		t.Fatal(err)
	}
	if s.State() != StatePatternWithFace || !s.Request().HasFace {
		t.Fatalf("expected a portrait, state %s", s.State())
	}
}

func TestConcurrentRotate(t *testing.T) {
	s := newSession(t, config.Config{Size: 100})
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Rotate(1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := s.Request().Rotation; got != n {
		t.Fatalf("expected rotation %d after %d concurrent rotations, got %d", n, n, got)
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	s := newSession(t, config.Config{Size: 100, Rotation: 2})
	size, rotation := 0, 9
	if err := s.Update(&size, &rotation); err == nil {
		t.Fatalf("expected error for zero size")
	}
	if req := s.Request(); req.Size != 100 || req.Rotation != 2 {
		t.Fatalf("rejected update changed the request: %+v", req)
	}

	size = 80
	if err := s.Update(&size, &rotation); err != nil {
		t.Fatal(err)
	}
	if req := s.Request(); req.Size != 80 || req.Rotation != 9 {
		t.Fatalf("update not applied: %+v", req)
	}
}

func TestRotationRestylizes(t *testing.T) {
	s := newSession(t, config.Config{Size: 100})
	if err := s.Upload(context.Background(), bytes.NewReader(solidPhoto(t, color.NRGBA{R: 90, G: 90, B: 200, A: 255}))); err != nil {
		t.Fatal(err)
	}
	before := currentFace(s)
	if err := setRotation(s, 7); err != nil {
		t.Fatal(err)
	}
	after := currentFace(s)
	if after == before {
		t.Fatalf("portrait was not re-stylized")
	}
	allowed := make(map[colors.Color]bool)
	pal := s.Palette()
	for i := 0; i < pal.Len(); i++ {
		allowed[pal.At(i)] = true
	}
	for i := 0; i < len(after.Pix); i += 4 {
		if after.Pix[i+3] == 0 {
			continue
		}
		if c := (colors.Color{R: after.Pix[i], G: after.Pix[i+1], B: after.Pix[i+2]}); !allowed[c] {
			t.Fatalf("pixel colour %v not in palette", c)
		}
	}
}

func TestPhotoBases(t *testing.T) {
	s := newSession(t, config.Config{Size: 100, UsePhotoBases: true, PhotoBaseCount: 2})
	if n := s.Palette().Len(); n != 25 {
		t.Fatalf("expected flower palette before upload, got %d colours", n)
	}
	halves := photo(t, 80, 80, func(x, _ int) color.NRGBA {
		if x < 40 {
			return color.NRGBA{R: 120, G: 10, B: 30, A: 255}
		}
		return color.NRGBA{R: 40, G: 120, B: 200, A: 255}
	})
	if err := s.Upload(context.Background(), bytes.NewReader(halves)); err != nil {
		t.Fatal(err)
	}
	if n := s.Palette().Len(); n != 10 {
		t.Fatalf("expected 2 photo bases (10 colours), got %d", n)
	}
	s.ClearFace()
	if n := s.Palette().Len(); n != 25 {
		t.Fatalf("expected configured palette after clearing, got %d colours", n)
	}
}

func TestRandomizeAndBack(t *testing.T) {
	s := newSession(t, config.Config{Size: 100})
	r := rand.New(rand.NewSource(1))
	rot, err := s.Randomize(r)
	if err != nil {
		t.Fatal(err)
	}
	if rot < 0 || rot >= 25 || s.Request().Rotation != rot {
		t.Fatalf("unexpected rotation %d (request %+v)", rot, s.Request())
	}
	if err := setRotation(s, rot+1); err != nil {
		t.Fatal(err)
	}
	back, err := s.Back()
	if err != nil {
		t.Fatal(err)
	}
	if back != rot || s.Request().Rotation != rot {
		t.Fatalf("expected to step back to %d, got %d", rot, back)
	}
}

func TestSnapshotLeavesState(t *testing.T) {
	s := newSession(t, config.Config{Size: 100, Rotation: 2})
	img, req, err := s.Snapshot(context.Background(), RenderRequest{Size: 64, Rotation: 9})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 || req.Rotation != 9 {
		t.Fatalf("unexpected snapshot %v %+v", img.Bounds(), req)
	}
	if got := s.Request(); got != (RenderRequest{Size: 100, Rotation: 2}) {
		t.Fatalf("snapshot changed session: %+v", got)
	}
	if _, _, err := s.Snapshot(context.Background(), RenderRequest{}); err == nil {
		t.Fatalf("expected error for zero size snapshot")
	}

	var buf bytes.Buffer
	if err := s.EncodeSVG(&buf, RenderRequest{Size: 64}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Fatalf("not an svg document")
	}
}

func TestRenderCancelAndRestart(t *testing.T) {
	s := newSession(t, config.Config{Size: 100})

	// Hold the surface so both renders queue up behind it.
	s.renderMu.Lock()

	waitFor := func(id uint64) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for {
			s.mu.Lock()
			cur := s.renderID
			s.mu.Unlock()
			if cur >= id {
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("render %d never started", id)
			}
			time.Sleep(time.Millisecond)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	start := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = s.Render(context.Background())
		}()
	}
	start(0)
	waitFor(1)
	start(1)
	waitFor(2)
	s.renderMu.Unlock()
	wg.Wait()

	if !errors.Is(errs[0], context.Canceled) {
		t.Fatalf("superseded render should be cancelled, got %v", errs[0])
	}
	if errs[1] != nil {
		t.Fatalf("latest render failed: %v", errs[1])
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory(0)
	if _, ok := h.Prev(); ok {
		t.Fatalf("no earlier entry expected")
	}
	h.Push(4)
	h.Push(4)
	h.Push(9)
	if len(h.entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(h.entries))
	}
	if r, ok := h.Prev(); !ok || r != 4 {
		t.Fatalf("expected 4, got %d (%v)", r, ok)
	}
	h.Push(11) // drops 9
	if r, ok := h.Prev(); !ok || r != 4 {
		t.Fatalf("expected 4, got %d (%v)", r, ok)
	}
	if r, ok := h.Next(); !ok || r != 11 {
		t.Fatalf("expected 11, got %d (%v)", r, ok)
	}
	if _, ok := h.Next(); ok {
		t.Fatalf("no later entry expected")
	}
	for i := 0; i < 2*maxHistory; i++ {
		h.Push(100 + i)
	}
	if len(h.entries) != maxHistory {
		t.Fatalf("history not bounded: %d", len(h.entries))
	}
}

func TestViewPlacement(t *testing.T) {
	v := NewView(1032, 632)
	b := v.Placement(800)
	// 600 high after margins, centred horizontally.
	if b.W != 600 || b.H != 600 || b.X != 216 || b.Y != 16 {
		t.Fatalf("unexpected placement %+v", b)
	}
	x0, y0, x1, y1 := v.Quad(800)
	if x0 >= x1 || y0 >= y1 || x0 < -1 || x1 > 1 || y0 < -1 || y1 > 1 {
		t.Fatalf("unexpected quad %v %v %v %v", x0, y0, x1, y1)
	}
	if b := NewView(10, 10).Placement(800); b.W != 0 {
		t.Fatalf("expected empty placement for tiny viewport, got %+v", b)
	}
}
