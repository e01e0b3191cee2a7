package store

// Ref identifies a store at the binding API boundary. It is either a
// *Definition (a store type, resolved to its singleton by the engine) or a
// *Store (an already-live instance, used as-is).
type Ref interface {
	storeRef()
}

// Definition describes a store type: an optional registry identifier and
// the default state a fresh instance starts from. Definitions are declared
// once, typically at package level, and shared by every component that
// binds to the store.
//
// A Definition with a name participates in the global state registry: its
// singleton is registered under the name, and its state is seeded from any
// pending registry entry at initialization. A Definition without a name can
// only be instantiated implicitly through a Binding and never touches the
// registry.
type Definition struct {
	name    string
	initial State
}

// Define declares a store type. name may be empty for a private,
// registry-less store. initial is copied into each instance at
// initialization, so one Definition can serve multiple isolated engines.
func Define(name string, initial State) *Definition {
	return &Definition{name: name, initial: initial}
}

// Name returns the registry identifier, or "" for a nameless definition.
func (d *Definition) Name() string { return d.name }

func (d *Definition) storeRef() {}
