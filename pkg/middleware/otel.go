package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/storelink-dev/storelink/pkg/store"
)

// Default tracer name for storelink engines.
const defaultTracerName = "storelink"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "storelink").
	TracerName string

	// IncludePatchKeys records the patch's property names as a span
	// attribute. May leak domain detail into traces - disabled by default.
	IncludePatchKeys bool

	// Filter determines which updates to trace. Return true to trace the
	// update, false to skip. If nil, all updates are traced.
	Filter func(s *store.Store) bool

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludePatchKeys enables recording patch property names in spans.
func WithIncludePatchKeys(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludePatchKeys = include
	}
}

// WithUpdateFilter sets a filter function for updates.
func WithUpdateFilter(filter func(s *store.Store) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates middleware that traces every store update.
//
// One span covers the whole synchronous fan-out: the state merge plus
// every subscriber dispatcher that runs before SetState returns. Nested
// re-entrant updates show up as child spans.
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in your main() before constructing the engine:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) store.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	config.tracer = otel.Tracer(config.TracerName)

	return func(next store.ApplyFunc) store.ApplyFunc {
		return func(s *store.Store, patch store.State) {
			if config.Filter != nil && !config.Filter(s) {
				next(s, patch)
				return
			}

			attrs := []attribute.KeyValue{
				attribute.String("storelink.store", storeLabel(s)),
				attribute.Int("storelink.patch_size", len(patch)),
				attribute.Int("storelink.subscribers", s.SubscriberCount()),
			}
			if config.IncludePatchKeys {
				keys := make([]string, 0, len(patch))
				for k := range patch {
					keys = append(keys, k)
				}
				attrs = append(attrs, attribute.StringSlice("storelink.patch_keys", keys))
			}

			_, span := config.tracer.Start(context.Background(), "storelink.set_state",
				trace.WithAttributes(attrs...))
			defer span.End()

			next(s, patch)
		}
	}
}
