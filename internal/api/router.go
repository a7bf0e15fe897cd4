package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/irfansharif/pookalam/internal/app"
	"github.com/irfansharif/pookalam/internal/config"
	"github.com/irfansharif/pookalam/internal/ws"
)

func NewRouter(cfg config.Config, sess *app.Session, hub *ws.Hub) http.Handler {
	return newHandler(cfg, sess, hub).routes()
}

func newHandler(cfg config.Config, sess *app.Session, hub *ws.Hub) *Handler {
	return &Handler{
		cfg:  cfg,
		sess: sess,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/pookalam.png", h.GetPNG).Methods(http.MethodGet)
	v1.HandleFunc("/pookalam.svg", h.GetSVG).Methods(http.MethodGet)
	v1.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	v1.HandleFunc("/state", h.PutState).Methods(http.MethodPut)
	v1.HandleFunc("/randomize", h.Randomize).Methods(http.MethodPost)
	v1.HandleFunc("/face", h.UploadFace).Methods(http.MethodPost)
	v1.HandleFunc("/face", h.ClearFace).Methods(http.MethodDelete)
	v1.HandleFunc("/palette", h.GetPalette).Methods(http.MethodGet)
	v1.HandleFunc("/ws", h.WebSocket).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		methodNotAllowed(w)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, errNotFound)
	})

	return limitBody(h.cfg.MaxUploadSizeBytes, r)
}

func limitBody(maxSize int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		next.ServeHTTP(w, r)
	})
}
