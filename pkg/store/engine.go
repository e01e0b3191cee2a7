package store

import (
	"fmt"
	"sync"
)

// ApplyFunc applies one update: merge the patch into the store, keep the
// registry convergent and fan the patch out to subscribers and watchers.
type ApplyFunc func(s *Store, patch State)

// Middleware wraps the apply step of every SetState call on stores owned by
// an engine. Middleware installed first runs outermost.
type Middleware func(next ApplyFunc) ApplyFunc

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	middleware []Middleware
}

// WithMiddleware installs update middleware on the engine.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *engineConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// watchEntry is one engine-wide update watcher.
type watchEntry struct {
	id uint64
	fn func(store string, patch State)
}

// Engine owns the two process-scoped registries: the global state registry
// (identifier to current state, including placeholder entries for stores
// that were never constructed) and the singleton registry (identifier to
// the one live Store). Both live for the lifetime of the engine; entries
// are never deleted, only overwritten. Reset exists for test isolation.
type Engine struct {
	mu sync.RWMutex

	// stores holds the live singleton for each identifier.
	stores map[string]*Store

	// pending holds registry entries written before a singleton existed.
	// An entry moves into the singleton's state when the store initializes.
	pending map[string]State

	// byDef records the singleton created for each Definition, named or
	// not. At most one instance per Definition, ever.
	byDef map[*Definition]*Store

	watchMu  sync.RWMutex
	watchers []watchEntry

	apply ApplyFunc
}

// New creates an engine with empty registries.
func New(opts ...Option) *Engine {
	var cfg engineConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		stores:  make(map[string]*Store),
		pending: make(map[string]State),
		byDef:   make(map[*Definition]*Store),
	}

	apply := e.applyUpdate
	for i := len(cfg.middleware) - 1; i >= 0; i-- {
		apply = cfg.middleware[i](apply)
	}
	e.apply = apply

	return e
}

// applyUpdate is the innermost apply step: merge, notify, feed watchers.
// The registry needs no separate write because snapshot reads consult the
// live store directly, so registry and instance state stay convergent.
func (e *Engine) applyUpdate(s *Store, patch State) {
	s.mergeState(patch)
	s.Trigger(patch)
	if s.name != "" {
		e.notifyWatchers(s.name, patch)
	}
}

// GlobalState returns a deep-cloned snapshot of the global state registry:
// one entry per identifier, holding the live singleton's current state or
// the pending placeholder value. Mutating the snapshot never affects the
// registry, and vice versa.
func (e *Engine) GlobalState() map[string]State {
	e.mu.RLock()
	live := make(map[string]*Store, len(e.stores))
	for id, s := range e.stores {
		live[id] = s
	}
	snap := make(map[string]State, len(e.stores)+len(e.pending))
	for id, v := range e.pending {
		snap[id] = cloneState(v)
	}
	e.mu.RUnlock()

	// Store locks are taken outside the engine lock.
	for id, s := range live {
		snap[id] = s.cloneState()
	}
	return snap
}

// SetGlobalState applies a per-identifier update. Identifiers with a live
// singleton are forwarded to that store's SetState, which updates live
// state and notifies its subscribers. Identifiers without a singleton are
// written verbatim into the registry, pre-seeding state for a store that
// has not been constructed yet.
func (e *Engine) SetGlobalState(patch map[string]State) {
	type forward struct {
		store *Store
		patch State
	}
	var forwards []forward
	var seeded []string

	e.mu.Lock()
	for id, v := range patch {
		if s, ok := e.stores[id]; ok {
			forwards = append(forwards, forward{s, v})
			continue
		}
		e.pending[id] = v
		seeded = append(seeded, id)
	}
	e.mu.Unlock()

	for _, f := range forwards {
		f.store.SetState(f.patch)
	}
	for _, id := range seeded {
		e.notifyWatchers(id, patch[id])
	}
}

// Initialize constructs the singleton for def, registers it under the
// definition's identifier and seeds its state.
//
// If the registry already holds an entry for the identifier, the entry
// fills only the properties the instance's default state does not define
// (instance wins), and the registry entry becomes the instance's state. If
// there is no entry, the instance's default state becomes the entry.
//
// Returns ErrMissingIdentifier for a nameless definition and
// ErrAlreadyInitialized when def (or its identifier) already has a live
// singleton; the existing singleton is left untouched.
func (e *Engine) Initialize(def *Definition) (*Store, error) {
	if def == nil || def.name == "" {
		return nil, ErrMissingIdentifier
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.byDef[def]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyInitialized, def.name)
	}
	if _, ok := e.stores[def.name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyInitialized, def.name)
	}

	return e.initLocked(def), nil
}

// initLocked creates and registers the singleton for a named definition.
// Caller holds e.mu and has verified uniqueness.
func (e *Engine) initLocked(def *Definition) *Store {
	s := newStore(e, def.name, cloneState(def.initial))
	if entry, ok := e.pending[def.name]; ok {
		s.seedMissing(entry)
		delete(e.pending, def.name)
	}
	e.stores[def.name] = s
	e.byDef[def] = s
	return s
}

// resolve turns a Ref into a live instance. Instance refs pass through.
// Type refs resolve to the existing singleton if one exists; otherwise a
// named definition initializes exactly as Initialize does, and a nameless
// definition gets a private singleton that never touches the registry.
func (e *Engine) resolve(ref Ref) (*Store, error) {
	switch r := ref.(type) {
	case *Store:
		return r, nil
	case *Definition:
		e.mu.Lock()
		defer e.mu.Unlock()

		if s, ok := e.byDef[r]; ok {
			return s, nil
		}
		if r.name == "" {
			s := newStore(e, "", cloneState(r.initial))
			e.byDef[r] = s
			return s, nil
		}
		if _, ok := e.stores[r.name]; ok {
			// Identifier taken by a different definition.
			return nil, fmt.Errorf("%w: %q", ErrAlreadyInitialized, r.name)
		}
		return e.initLocked(r), nil
	case nil:
		return nil, ErrMissingIdentifier
	default:
		return nil, fmt.Errorf("storelink: unsupported store ref %T", ref)
	}
}

// Watch subscribes fn to every applied named-store update and every direct
// registry write, in occurrence order. Returns a cancel function.
func (e *Engine) Watch(fn func(store string, patch State)) (cancel func()) {
	entry := watchEntry{id: nextListenerID(), fn: fn}

	e.watchMu.Lock()
	e.watchers = append(e.watchers, entry)
	e.watchMu.Unlock()

	return func() {
		e.watchMu.Lock()
		defer e.watchMu.Unlock()
		for i, existing := range e.watchers {
			if existing.id == entry.id {
				e.watchers = append(e.watchers[:i], e.watchers[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) notifyWatchers(store string, patch State) {
	e.watchMu.RLock()
	watchers := make([]watchEntry, len(e.watchers))
	copy(watchers, e.watchers)
	e.watchMu.RUnlock()

	for _, w := range watchers {
		w.fn(store, patch)
	}
}

// Reset clears both registries so definitions can initialize again.
// NOT safe to call while stores are in use; test isolation only.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stores = make(map[string]*Store)
	e.pending = make(map[string]State)
	e.byDef = make(map[*Definition]*Store)
}
