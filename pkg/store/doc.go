// Package store implements a synchronization engine that mirrors the state
// of observable stores into UI components while maintaining a process-wide
// snapshot registry of every named store's current data.
//
// The engine is built from a few explicit pieces:
//
//   - Definition: a store type. Declared once at package level with a name
//     (its registry identifier) and an initial state. Definitions without a
//     name never enter the registry.
//   - Store: the one live instance of a Definition. Stores merge partial
//     updates via SetState and notify listeners synchronously, in
//     subscription order, with the patch as payload.
//   - Engine: holds the global state registry and the singleton registry.
//     Registries are explicit engine state rather than package globals so
//     tests can run against isolated engines.
//   - Binding: connects one component to one or more stores. Created with
//     Bind, activated with Attach (typically from the component's mount
//     hook) and torn down with Detach (from the unmount hook).
//
// A minimal component looks like this:
//
//	var Counter = store.Define("counter", store.State{"count": 0})
//
//	type CounterView struct {
//	    state   store.State
//	    binding *store.Binding
//	}
//
//	func (v *CounterView) SetState(patch store.State) {
//	    for k, val := range patch {
//	        v.state[k] = val
//	    }
//	    // schedule re-render here
//	}
//
//	func (v *CounterView) OnAttach(e *store.Engine) {
//	    v.binding = e.Bind(v, store.WithStore(Counter))
//	    v.binding.Attach()
//	}
//
//	func (v *CounterView) OnDetach() {
//	    v.binding.Detach()
//	}
//
// Update delivery is synchronous and re-entrant: a listener that itself
// calls SetState will recurse. The engine does not guard against circular
// store dependencies; avoiding infinite update loops is the caller's
// responsibility.
package store
