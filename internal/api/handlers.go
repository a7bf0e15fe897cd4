package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/irfansharif/pookalam/internal/app"
	"github.com/irfansharif/pookalam/internal/config"
	"github.com/irfansharif/pookalam/internal/render"
	"github.com/irfansharif/pookalam/internal/stylize"
	"github.com/irfansharif/pookalam/internal/ws"
)

// EventUpdated is broadcast after the live surface has been re-rendered.
const EventUpdated = "pookalam.updated"

var errNotFound = errors.New("not found")

type Handler struct {
	cfg      config.Config
	sess     *app.Session
	hub      *ws.Hub
	upgrader websocket.Upgrader

	mu      sync.Mutex
	version uint64 // bumped on every state change
	latest  cachedSurface
	pending sync.WaitGroup // in-flight refreshes
}

// cachedSurface is the PNG of the last completed live render.
type cachedSurface struct {
	version uint64
	req     app.RenderRequest
	png     []byte
}

type apiError struct {
	Error string `json:"error"`
}

type stateResponse struct {
	app.RenderRequest
	State       string `json:"state"`
	PaletteSize int    `json:"paletteSize"`
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetPNG(w http.ResponseWriter, r *http.Request) {
	req, overridden, err := h.requestFrom(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if !overridden {
		h.mu.Lock()
		cached := h.latest
		fresh := cached.png != nil && cached.version == h.version && cached.req == req
		h.mu.Unlock()
		if fresh {
			writePNG(w, cached.png)
			return
		}
	}

	img, _, err := h.sess.Snapshot(r.Context(), req)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (h *Handler) GetSVG(w http.ResponseWriter, r *http.Request) {
	req, _, err := h.requestFrom(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	var buf bytes.Buffer
	if err := h.sess.EncodeSVG(&buf, req); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) PutState(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Size     *int `json:"size"`
		Rotation *int `json:"rotation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if err := h.sess.Update(body.Size, body.Rotation); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	h.refresh()
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) Randomize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seed *int64 `json:"seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, statusFor(err), err)
		return
	}
	seed := time.Now().UnixNano()
	if body.Seed != nil {
		seed = *body.Seed
	}
	if _, err := h.sess.Randomize(rand.New(rand.NewSource(seed))); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	h.refresh()
	writeJSON(w, http.StatusOK, h.state())
}

// UploadFace accepts the photo either as a multipart "photo" field or as the
// raw request body.
func (h *Handler) UploadFace(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = r.Body
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if strings.Contains(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(h.cfg.MaxUploadSizeBytes); err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if err := h.sess.Upload(r.Context(), bytes.NewReader(data)); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	h.refresh()
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) ClearFace(w http.ResponseWriter, _ *http.Request) {
	h.sess.ClearFace()
	h.refresh()
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) GetPalette(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rotation": h.sess.Request().Rotation,
		"colors":   h.sess.Palette().Hex(),
	})
}

func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: remote=%s uri=%s err=%v", r.RemoteAddr, r.RequestURI, err)
		return
	}
	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

// refresh re-renders the live surface in the background. A newer refresh
// cancels an older one inside the session, so only the last state change
// produces an event.
func (h *Handler) refresh() {
	h.mu.Lock()
	h.version++
	version := h.version
	h.mu.Unlock()

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		img, req, err := h.sess.Render(context.Background())
		if errors.Is(err, context.Canceled) || (img == nil && err == nil) {
			return
		}
		if err != nil {
			log.Printf("WARNING: live render failed: %v", err)
			return
		}
		var buf bytes.Buffer
		if err := render.EncodePNG(&buf, img); err != nil {
			log.Printf("WARNING: encoding live render: %v", err)
			return
		}

		h.mu.Lock()
		stale := version != h.version
		if !stale {
			h.latest = cachedSurface{version: version, req: req, png: buf.Bytes()}
		}
		h.mu.Unlock()
		if stale {
			return
		}
		h.hub.BroadcastEvent(ws.NewEvent(EventUpdated, req))
	}()
}

func (h *Handler) state() stateResponse {
	return stateResponse{
		RenderRequest: h.sess.Request(),
		State:         h.sess.State().String(),
		PaletteSize:   h.sess.Palette().Len(),
	}
}

// requestFrom starts from the session's request and applies the size and
// rotation query overrides.
func (h *Handler) requestFrom(r *http.Request) (app.RenderRequest, bool, error) {
	req := h.sess.Request()
	overridden := false
	q := r.URL.Query()
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return req, false, fmt.Errorf("invalid size %q", v)
		}
		req.Size, overridden = n, true
	}
	if v := q.Get("rotation"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, false, fmt.Errorf("invalid rotation %q", v)
		}
		req.Rotation, overridden = n, true
	}
	return req, overridden, nil
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, stylize.ErrUnsupportedInput):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="onam-pookalam.png"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiError{Error: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
