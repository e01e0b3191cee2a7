// Package middleware provides observability middleware for the store
// engine's update pipeline.
//
// Middleware wraps the apply step of every SetState call: the merge into
// store state plus the synchronous fan-out to subscribers. Install it when
// constructing the engine:
//
//	engine := store.New(
//	    store.WithMiddleware(
//	        middleware.Prometheus(),
//	        middleware.OpenTelemetry(),
//	    ),
//	)
package middleware
