package inspect

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/storelink-dev/storelink/pkg/store"
)

func newTestServer(t *testing.T) (*store.Engine, *Server, *httptest.Server) {
	t.Helper()
	engine := store.New()
	srv := New(engine)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return engine, srv, ts
}

func TestGetState(t *testing.T) {
	engine, _, ts := newTestServer(t)

	s, err := engine.Initialize(store.Define("counter", store.State{"count": 0}))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	s.SetState(store.State{"count": 3})

	resp, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var snap map[string]store.State
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// JSON numbers decode as float64.
	if snap["counter"]["count"] != float64(3) {
		t.Errorf("snapshot = %v", snap)
	}
}

func TestPostState(t *testing.T) {
	engine, _, ts := newTestServer(t)

	live, err := engine.Initialize(store.Define("live", store.State{"x": 0}))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	body := `{"live": {"x": 7}, "pending": {"seeded": true}}`
	resp, err := http.Post(ts.URL+"/state", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if v, _ := live.Get("x"); v != float64(7) {
		t.Errorf("live store x = %v, want forwarded update", v)
	}
	if engine.GlobalState()["pending"]["seeded"] != true {
		t.Errorf("pending entry missing: %v", engine.GlobalState())
	}
}

func TestPostStateRejectsBadJSON(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/state", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatalf("POST /state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebSocketFeed(t *testing.T) {
	engine, srv, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the server to register the client.
	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s, err := engine.Initialize(store.Define("feed", store.State{"n": 0}))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	s.SetState(store.State{"n": 42})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update Update
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.Store != "feed" || update.Patch["n"] != float64(42) {
		t.Errorf("update = %+v", update)
	}
}
