package store

import (
	"sync"
	"sync/atomic"
)

var listenerID uint64

func nextListenerID() uint64 {
	return atomic.AddUint64(&listenerID, 1)
}

// listener is one subscription on a store's notification channel.
type listener struct {
	id uint64
	fn func(State)
}

// Store is the live singleton instance of a Definition. It holds the
// current state and an ordered subscriber list. Stores are created by an
// Engine (through Initialize or a Binding) and live for the lifetime of
// the engine; a component holds only a non-owning reference.
type Store struct {
	engine *Engine
	name   string

	// mu protects state.
	mu    sync.RWMutex
	state State

	// subMu protects subs.
	subMu sync.Mutex
	subs  []listener
}

func newStore(engine *Engine, name string, initial State) *Store {
	if initial == nil {
		initial = make(State)
	}
	return &Store{
		engine: engine,
		name:   name,
		state:  initial,
	}
}

// Name returns the registry identifier, or "" for a private store.
func (s *Store) Name() string { return s.name }

func (s *Store) storeRef() {}

// Snapshot returns a shallow copy of the current state. Callers may iterate
// or merge it freely; nested values are still shared with the store.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(State, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// Get returns a single state property.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	return v, ok
}

// Listen subscribes fn to this store's notifications and returns a cancel
// function. Subscribers are notified synchronously, in subscription order,
// with the update patch as payload. Cancel removes exactly this
// subscription and is safe to call more than once.
func (s *Store) Listen(fn func(State)) (cancel func()) {
	l := listener{id: nextListenerID(), fn: fn}

	s.subMu.Lock()
	s.subs = append(s.subs, l)
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, existing := range s.subs {
			if existing.id == l.id {
				// Preserve subscription order for the remaining listeners.
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *Store) SubscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

// SetState merges patch into the store's state, keeps the global state
// registry convergent, and notifies subscribers with the patch (not the
// full state). Delivery is synchronous and re-entrant: a subscriber that
// itself calls SetState recurses before this call returns.
func (s *Store) SetState(patch State) {
	s.engine.apply(s, patch)
}

// Trigger notifies all current subscribers with payload without touching
// state. It is the raw notification primitive; SetState calls it after
// merging a patch.
func (s *Store) Trigger(payload State) {
	// Copy-before-notify so subscribers can listen/cancel re-entrantly.
	s.subMu.Lock()
	subs := make([]listener, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, l := range subs {
		l.fn(payload)
	}
}

// mergeState applies patch to the state map under lock.
func (s *Store) mergeState(patch State) {
	s.mu.Lock()
	merge(s.state, patch)
	s.mu.Unlock()
}

// seedMissing deep-copies properties of src that the state does not define
// yet. Used when a pending registry entry fills gaps in a fresh instance.
func (s *Store) seedMissing(src State) {
	s.mu.Lock()
	CloneInto(s.state, src)
	s.mu.Unlock()
}

// cloneState returns an independent deep copy of the current state.
func (s *Store) cloneState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}
