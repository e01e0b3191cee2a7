package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestInitializeSeedsRegistry(t *testing.T) {
	e := New()
	def := Define("counter", State{"count": 0})

	s, err := e.Initialize(def)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if s.Name() != "counter" {
		t.Errorf("name = %q, want counter", s.Name())
	}

	snap := e.GlobalState()
	if !reflect.DeepEqual(snap["counter"], State{"count": 0}) {
		t.Errorf("registry entry = %v, want default state", snap["counter"])
	}

	// Registry follows every SetState.
	s.SetState(State{"count": 5, "step": 1})
	snap = e.GlobalState()
	if !reflect.DeepEqual(snap["counter"], State{"count": 5, "step": 1}) {
		t.Errorf("registry entry = %v, want updated state", snap["counter"])
	}
}

func TestInitializeMissingIdentifier(t *testing.T) {
	e := New()
	if _, err := e.Initialize(Define("", State{"x": 1})); !errors.Is(err, ErrMissingIdentifier) {
		t.Errorf("err = %v, want ErrMissingIdentifier", err)
	}
	if _, err := e.Initialize(nil); !errors.Is(err, ErrMissingIdentifier) {
		t.Errorf("nil def err = %v, want ErrMissingIdentifier", err)
	}
}

func TestInitializeTwice(t *testing.T) {
	e := New()
	def := Define("session", State{"user": nil})

	first, err := e.Initialize(def)
	if err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	first.SetState(State{"user": "ada"})

	if _, err := e.Initialize(def); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize err = %v, want ErrAlreadyInitialized", err)
	}

	// First singleton untouched.
	if v, _ := first.Get("user"); v != "ada" {
		t.Errorf("first singleton state changed: %v", v)
	}

	// Same identifier from a different definition is also rejected.
	if _, err := e.Initialize(Define("session", nil)); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("duplicate name err = %v, want ErrAlreadyInitialized", err)
	}
}

func TestSetGlobalStatePreSeedsPendingStore(t *testing.T) {
	e := New()

	e.SetGlobalState(map[string]State{"profile": {"theme": "dark", "lang": "en"}})

	snap := e.GlobalState()
	if !reflect.DeepEqual(snap["profile"], State{"theme": "dark", "lang": "en"}) {
		t.Fatalf("pending entry = %v, want patch stored verbatim", snap["profile"])
	}

	// Instance defaults win; the pending entry fills only the gaps.
	s, err := e.Initialize(Define("profile", State{"theme": "light"}))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if v, _ := s.Get("theme"); v != "light" {
		t.Errorf("theme = %v, want instance default to win", v)
	}
	if v, _ := s.Get("lang"); v != "en" {
		t.Errorf("lang = %v, want gap filled from registry", v)
	}

	snap = e.GlobalState()
	if !reflect.DeepEqual(snap["profile"], State{"theme": "light", "lang": "en"}) {
		t.Errorf("registry after init = %v, want convergent state", snap["profile"])
	}
}

func TestSetGlobalStateForwardsToLiveStore(t *testing.T) {
	e := New()
	s, err := e.Initialize(Define("cart", State{"items": 0}))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	var payloads []State
	s.Listen(func(p State) { payloads = append(payloads, p) })

	e.SetGlobalState(map[string]State{"cart": {"items": 3}})

	if v, _ := s.Get("items"); v != 3 {
		t.Errorf("items = %v, want 3", v)
	}
	if len(payloads) != 1 || payloads[0]["items"] != 3 {
		t.Errorf("subscriber payloads = %v, want one patch notification", payloads)
	}
}

func TestGlobalStateSnapshotIndependence(t *testing.T) {
	e := New()
	s, err := e.Initialize(Define("doc", State{"meta": map[string]any{"rev": 1}}))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	snap := e.GlobalState()
	snap["doc"]["meta"].(map[string]any)["rev"] = 99

	if v, _ := s.Get("meta"); v.(map[string]any)["rev"] != 1 {
		t.Error("mutating the snapshot altered the live registry")
	}

	// And the other direction.
	snap = e.GlobalState()
	s.SetState(State{"meta": map[string]any{"rev": 2}})
	if snap["doc"]["meta"].(map[string]any)["rev"] != 1 {
		t.Error("mutating the registry altered an earlier snapshot")
	}
}

func TestWatchFeed(t *testing.T) {
	e := New()

	type event struct {
		store string
		patch State
	}
	var events []event
	cancel := e.Watch(func(store string, patch State) {
		events = append(events, event{store, patch})
	})

	s, err := e.Initialize(Define("jobs", State{"queued": 0}))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	s.SetState(State{"queued": 2})
	e.SetGlobalState(map[string]State{"ghost": {"seen": true}})

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].store != "jobs" || events[0].patch["queued"] != 2 {
		t.Errorf("event[0] = %+v", events[0])
	}
	if events[1].store != "ghost" || events[1].patch["seen"] != true {
		t.Errorf("event[1] = %+v", events[1])
	}

	cancel()
	s.SetState(State{"queued": 3})
	if len(events) != 2 {
		t.Errorf("cancelled watcher still notified, events = %d", len(events))
	}
}

func TestResetIsolatesTests(t *testing.T) {
	e := New()
	def := Define("tmp", State{"x": 1})
	if _, err := e.Initialize(def); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	e.Reset()

	if len(e.GlobalState()) != 0 {
		t.Error("registry not empty after Reset")
	}
	if _, err := e.Initialize(def); err != nil {
		t.Errorf("re-Initialize after Reset: %v", err)
	}
}
