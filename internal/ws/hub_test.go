package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	registered := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := NewClient(hub, conn)
		hub.Register(c)
		close(registered)
		go c.WritePump()
		go c.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	select {
	case <-registered:
	case <-time.After(5 * time.Second):
		t.Fatalf("client never registered")
	}

	hub.BroadcastEvent(NewEvent("pookalam.updated", map[string]int{"rotation": 3}))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var evt struct {
		ID      string         `json:"id"`
		Type    string         `json:"type"`
		Payload map[string]int `json:"payload"`
	}
	if err := json.Unmarshal(msg, &evt); err != nil {
		t.Fatal(err)
	}
	if evt.Type != "pookalam.updated" || evt.ID == "" || evt.Payload["rotation"] != 3 {
		t.Fatalf("unexpected event: %s", msg)
	}
}

func TestNewEventIDsDiffer(t *testing.T) {
	a, b := NewEvent("x", nil), NewEvent("x", nil)
	if a.ID == b.ID {
		t.Fatalf("event ids should be unique")
	}
	if a.CreatedAt == 0 {
		t.Fatalf("missing timestamp")
	}
}

func TestHubStopTwice(t *testing.T) {
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()
	hub.Stop()
	hub.Stop()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after Stop")
	}

	// Registering with a stopped hub hangs up the client instead of blocking.
	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(c)
	if _, ok := <-c.send; ok {
		t.Fatalf("expected the client's send channel to be closed")
	}
}
