package store

import "errors"

// ErrMissingIdentifier is returned when explicit singleton initialization is
// requested for a Definition that declares no name. Named initialization is
// what ties a store into the global state registry; a nameless store can
// only be created implicitly through a Binding, which holds a private
// instance that never touches the registry.
var ErrMissingIdentifier = errors.New("storelink: store definition has no identifier")

// ErrAlreadyInitialized is returned when singleton initialization is
// requested for a Definition that already has a live instance, or for a
// name that is already taken by another Definition. This is a programming
// error (double initialize, duplicate name), not a condition to retry.
var ErrAlreadyInitialized = errors.New("storelink: store already initialized")
