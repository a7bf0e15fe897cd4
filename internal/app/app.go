package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math/rand"
	"sync"

	"github.com/irfansharif/pookalam/internal/config"
	"github.com/irfansharif/pookalam/internal/gen"
	"github.com/irfansharif/pookalam/internal/palette"
	"github.com/irfansharif/pookalam/internal/render"
	"github.com/irfansharif/pookalam/internal/stylize"
)

// State is the coarse state of a session.
type State int

const (
	StateEmpty           State = iota // no surface size yet
	StatePatternOnly                  // pattern without a portrait
	StatePatternWithFace              // pattern with the stylized portrait in the centre
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePatternOnly:
		return "pattern"
	case StatePatternWithFace:
		return "pattern+face"
	default:
		return "unknown"
	}
}

// RenderRequest is everything a render depends on. Rendering is a pure
// function of it and the session's palette and portrait.
type RenderRequest struct {
	Rotation int  `json:"rotation"`
	Size     int  `json:"size"`
	HasFace  bool `json:"hasFace"`
}

// Session encapsulates the application state shared by the hosts: palette,
// rotation, surface size and the loaded portrait.
type Session struct {
	cfg       config.Config
	generator *gen.Generator

	mu       sync.Mutex
	bases    palette.Palette // unrotated, from configuration or the photo
	req      RenderRequest
	source   image.Image   // decoded upload, kept for re-stylizing
	face     *image.NRGBA  // source stylized with the current rotation
	cancel   context.CancelFunc
	renderID uint64
	history  *History

	renderMu sync.Mutex // serializes surface writes
	renderer *render.Renderer
}

// NewSession builds the base palette from the configured colours and starts
// at the configured size and rotation. A zero size leaves the session empty
// until SetSize is called.
func NewSession(cfg config.Config) (*Session, error) {
	bases, err := configuredPalette(cfg)
	if err != nil {
		return nil, err
	}
	s := &Session{
		cfg:       cfg,
		generator: gen.NewGenerator(),
		bases:     bases,
		req:       RenderRequest{Rotation: cfg.Rotation, Size: max(cfg.Size, 0)},
		history:   NewHistory(cfg.Rotation),
		renderer:  render.NewRenderer(),
	}
	return s, nil
}

func configuredPalette(cfg config.Config) (palette.Palette, error) {
	if len(cfg.Bases) == 0 {
		return palette.Flowers(), nil
	}
	bases, err := palette.ParseBases(cfg.Bases)
	if err != nil {
		return palette.Palette{}, err
	}
	return palette.Build(bases)
}

// Request returns the current render request.
func (s *Session) Request() RenderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.req
	req.HasFace = s.face != nil
	return req
}

// State returns the session's coarse state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.req.Size <= 0:
		return StateEmpty
	case s.face != nil:
		return StatePatternWithFace
	default:
		return StatePatternOnly
	}
}

// Palette returns the palette at the current rotation.
func (s *Session) Palette() palette.Palette {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bases.Rotate(s.req.Rotation)
}

// SetSize sets the side of the output surface.
func (s *Session) SetSize(size int) error {
	return s.Update(&size, nil)
}

// Update applies a new size and/or rotation; nil leaves a value as it is.
// Either both changes are applied or, on error, neither. A loaded portrait
// is re-stylized with the rotated palette.
func (s *Session) Update(size, rotation *int) error {
	if size != nil && *size <= 0 {
		return fmt.Errorf("app: size must be positive, got %d", *size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rotation != nil {
		if err := s.applyRotationLocked(*rotation); err != nil {
			return err
		}
	}
	if size != nil {
		s.req.Size = *size
	}
	return nil
}

func (s *Session) applyRotationLocked(rotation int) error {
	if err := s.setRotationLocked(rotation); err != nil {
		return err
	}
	s.history.Push(rotation)
	return nil
}

func (s *Session) setRotationLocked(rotation int) error {
	if s.source != nil && rotation != s.req.Rotation {
		face, err := stylize.Stylize(s.source, s.bases.Rotate(rotation))
		if err != nil {
			return err
		}
		s.face = face
	}
	s.req.Rotation = rotation
	return nil
}

// Rotate shifts the rotation by delta.
func (s *Session) Rotate(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyRotationLocked(s.req.Rotation + delta)
}

// Randomize picks a random rotation from r and applies it.
func (s *Session) Randomize(r *rand.Rand) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rotation := palette.RandomRotation(r, s.bases)
	return rotation, s.applyRotationLocked(rotation)
}

// Back returns to the previous rotation in the history, if any.
func (s *Session) Back() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rotation, ok := s.history.Prev()
	if !ok {
		return s.req.Rotation, nil
	}
	if err := s.setRotationLocked(rotation); err != nil {
		s.history.Next()
		return s.req.Rotation, err
	}
	return rotation, nil
}

// Upload decodes a photo, stylizes it with the current palette and makes it
// the portrait. On any failure the session is left as it was.
func (s *Session) Upload(ctx context.Context, r io.Reader) error {
	src, err := stylize.DecodeLimit(ctx, r, s.MaxUploadPixels())
	if err != nil {
		return err
	}
	return s.UploadImage(src)
}

// UploadImage makes an already decoded photo the portrait, as Upload does.
func (s *Session) UploadImage(src image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bases := s.bases
	if s.cfg.UsePhotoBases {
		var err error
		if bases, err = photoPalette(src, s.cfg.PhotoBaseCount); err != nil {
			return err
		}
	}
	face, err := stylize.Stylize(src, bases.Rotate(s.req.Rotation))
	if err != nil {
		return err
	}
	s.bases, s.source, s.face = bases, src, face
	return nil
}

// MaxUploadPixels is the pixel count an uploaded photo may declare.
func (s *Session) MaxUploadPixels() int64 {
	if s.cfg.MaxUploadPixels > 0 {
		return s.cfg.MaxUploadPixels
	}
	return stylize.MaxPixels
}

func photoPalette(img image.Image, k int) (palette.Palette, error) {
	bases, err := palette.FromImage(img, k)
	if err != nil {
		return palette.Palette{}, err
	}
	return palette.Build(bases)
}

// ClearFace removes the portrait. With photo derived bases the configured
// palette is restored.
func (s *Session) ClearFace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source, s.face = nil, nil
	if s.cfg.UsePhotoBases {
		bases, err := configuredPalette(s.cfg)
		if err != nil {
			log.Printf("WARNING: restoring configured palette: %v", err)
			return
		}
		s.bases = bases
	}
}

// Render renders the current request. Starting a render cancels the one in
// flight, whose caller gets context.Canceled. Rendering an empty session is
// a no-op and returns a nil surface.
func (s *Session) Render(ctx context.Context) (*image.RGBA, RenderRequest, error) {
	s.mu.Lock()
	req := s.req
	if req.Size <= 0 {
		s.mu.Unlock()
		return nil, req, nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	s.renderID++
	id := s.renderID
	pal, face := s.bases.Rotate(req.Rotation), s.face
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.renderID == id {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	req.HasFace = face != nil
	img, err := s.render(ctx, pal, req, face)
	return img, req, err
}

// Snapshot renders req without touching the session's rotation or size and
// without cancelling other renders. req.HasFace is ignored; the portrait is
// used when one is loaded.
func (s *Session) Snapshot(ctx context.Context, req RenderRequest) (*image.RGBA, RenderRequest, error) {
	pal, face, req, err := s.prepare(req)
	if err != nil {
		return nil, req, err
	}
	img, err := s.render(ctx, pal, req, face)
	return img, req, err
}

// EncodeSVG writes req as an SVG document.
func (s *Session) EncodeSVG(w io.Writer, req RenderRequest) error {
	pal, face, req, err := s.prepare(req)
	if err != nil {
		return err
	}
	comp, err := s.generator.Generate(pal, req.Size, req.HasFace)
	if err != nil {
		return err
	}
	return render.EncodeSVG(w, comp, asImage(face))
}

// asImage keeps a nil portrait a nil interface.
func asImage(face *image.NRGBA) image.Image {
	if face == nil {
		return nil
	}
	return face
}

func (s *Session) prepare(req RenderRequest) (palette.Palette, *image.NRGBA, RenderRequest, error) {
	if req.Size <= 0 {
		return palette.Palette{}, nil, req, fmt.Errorf("app: size must be positive, got %d", req.Size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pal := s.bases.Rotate(req.Rotation)
	face := s.face
	if s.source != nil && req.Rotation != s.req.Rotation {
		var err error
		if face, err = stylize.Stylize(s.source, pal); err != nil {
			return palette.Palette{}, nil, req, err
		}
	}
	req.HasFace = face != nil
	return pal, face, req, nil
}

func (s *Session) render(ctx context.Context, pal palette.Palette, req RenderRequest, face *image.NRGBA) (*image.RGBA, error) {
	comp, err := s.generator.Generate(pal, req.Size, req.HasFace)
	if err != nil {
		return nil, err
	}

	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := s.renderer.Render(ctx, comp, asImage(face))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("WARNING: render %+v failed: %v", req, err)
		}
		return nil, err
	}
	return img, nil
}

// Stats returns the renderer metrics of the last completed render.
func (s *Session) Stats() render.Stats {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	return s.renderer.Stats()
}
