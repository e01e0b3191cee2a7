package store

import "sync"

// Component is the engine's view of a UI component: a state container
// whose SetState merges a patch into component-visible state and schedules
// a re-render. The host framework supplies the implementation.
type Component interface {
	SetState(patch State)
}

// MapFunc transforms a store's update payload into a partial component
// state patch. A nil or empty result means "no update" and produces no
// SetState call.
type MapFunc func(payload State) State

// bindingPhase is the per-binding lifecycle state machine.
// Registrations arriving before phaseReady are queued and flushed, in
// order, when Attach completes.
type bindingPhase int

const (
	phaseUnattached bindingPhase = iota
	phaseAttaching
	phaseReady
)

// deferredMapping is a custom-mapping registration made before readiness.
type deferredMapping struct {
	store *Store
	fn    MapFunc
}

// BindOption configures a Binding.
type BindOption func(*Binding)

// WithStore declares the component's single store. When store-list entries
// are also declared, the single store is prepended to the list.
func WithStore(ref Ref) BindOption {
	return func(b *Binding) {
		b.single = ref
	}
}

// WithStores declares the component's store list.
func WithStores(refs ...Ref) BindOption {
	return func(b *Binding) {
		b.list = append(b.list, refs...)
	}
}

// WithKeys declares an allow-list of state properties the component cares
// about. Incremental notifications are narrowed to these keys; the initial
// seed on Attach is always the full store state.
func WithKeys(keys ...string) BindOption {
	return func(b *Binding) {
		if b.keys == nil {
			b.keys = make([]string, 0, len(keys))
		}
		b.keys = append(b.keys, keys...)
	}
}

// Binding connects one component to the stores it declared. The host
// framework calls Attach from the component's mount hook and Detach from
// its unmount hook, exactly once each, in that order.
type Binding struct {
	engine    *Engine
	component Component

	single Ref
	list   []Ref
	keys   []string

	mu       sync.Mutex
	phase    bindingPhase
	stores   []*Store
	cancels  []func()
	deferred []deferredMapping
}

// Bind creates a binding record for c. No stores are resolved and no
// subscriptions are created until Attach.
func (e *Engine) Bind(c Component, opts ...BindOption) *Binding {
	b := &Binding{
		engine:    e,
		component: c,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Stores returns the resolved store instances. Empty until Attach.
func (b *Binding) Stores() []*Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Store, len(b.stores))
	copy(out, b.stores)
	return out
}

// Attach activates the binding: declared refs are normalized into a single
// ordered list, resolved to singleton instances, subscribed, and the
// component's state is seeded with each store's full current state. The
// seed is never narrowed by the allow-list; filtering applies only to
// subsequent notifications. Attach then flushes custom-mapping
// registrations that arrived early, in registration order.
//
// Attach on a binding that is already attached is a no-op.
func (b *Binding) Attach() error {
	b.mu.Lock()
	if b.phase != phaseUnattached {
		b.mu.Unlock()
		return nil
	}
	b.phase = phaseAttaching

	refs := make([]Ref, 0, len(b.list)+1)
	if b.single != nil {
		refs = append(refs, b.single)
	}
	refs = append(refs, b.list...)
	b.mu.Unlock()

	stores := make([]*Store, 0, len(refs))
	for _, ref := range refs {
		s, err := b.engine.resolve(ref)
		if err != nil {
			b.mu.Lock()
			b.phase = phaseUnattached
			b.mu.Unlock()
			return err
		}
		stores = append(stores, s)
	}

	cancels := make([]func(), 0, len(stores))
	for _, s := range stores {
		cancels = append(cancels, s.Listen(b.dispatch))
	}
	for _, s := range stores {
		b.component.SetState(s.Snapshot())
	}

	b.mu.Lock()
	b.stores = stores
	b.cancels = cancels
	b.phase = phaseReady
	queue := b.deferred
	b.deferred = nil
	b.mu.Unlock()

	for _, d := range queue {
		b.runMapping(d.store, d.fn)
	}
	return nil
}

// Detach cancels every subscription the binding created, in order, and
// returns the binding to the detached phase. Every Attach must be paired
// with a Detach; a dangling subscription keeps the component reachable
// from its stores.
func (b *Binding) Detach() {
	b.mu.Lock()
	cancels := b.cancels
	b.cancels = nil
	b.stores = nil
	b.phase = phaseUnattached
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// MapStoreToState registers fn as a custom transform from ref's update
// payloads to component state patches, independent of the direct
// attachment mechanism. ref resolves to a singleton exactly as in Attach,
// including identifier-based lazy initialization.
//
// When the binding is ready, fn is also invoked immediately with the
// store's full current state so the mapping materializes without waiting
// for the next update. Before readiness the whole registration is queued
// and runs during Attach, after the component's own state is seeded.
func (b *Binding) MapStoreToState(ref Ref, fn MapFunc) error {
	s, err := b.engine.resolve(ref)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.phase != phaseReady {
		b.deferred = append(b.deferred, deferredMapping{store: s, fn: fn})
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	b.runMapping(s, fn)
	return nil
}

// runMapping subscribes the mapping dispatcher and invokes it once with
// the store's current state.
func (b *Binding) runMapping(s *Store, fn MapFunc) {
	dispatch := func(payload State) {
		out := fn(payload)
		if len(out) > 0 {
			b.component.SetState(out)
		}
	}

	cancel := s.Listen(dispatch)
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	dispatch(s.Snapshot())
}

// dispatch delivers one store notification to the component. With no
// allow-list every payload is forwarded as-is, even an empty one. With an
// allow-list the payload is narrowed to the declared keys and forwarded
// only when something survives the filter.
func (b *Binding) dispatch(payload State) {
	if b.keys == nil {
		b.component.SetState(payload)
		return
	}
	if filtered := pick(payload, b.keys); len(filtered) > 0 {
		b.component.SetState(filtered)
	}
}
