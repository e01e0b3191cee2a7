package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/storelink-dev/storelink/pkg/store"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "storelink").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "storelink",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for the update pipeline.
type metrics struct {
	updatesTotal   *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	patchKeys      *prometheus.HistogramVec
	subscribers    *prometheus.GaugeVec
}

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of store updates applied",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		updateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "Update apply and fan-out duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store"}),

		patchKeys: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patch_keys",
			Help:        "Number of properties per update patch",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 20, 50},
		}, []string{"store"}),

		subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Current number of subscriptions per store",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),
	}
}

// storeLabel is the metric label for a store; private stores have no
// identifier and are grouped under "(private)".
func storeLabel(s *store.Store) string {
	if name := s.Name(); name != "" {
		return name
	}
	return "(private)"
}

// Prometheus creates middleware that collects Prometheus metrics for every
// store update.
//
// Metrics collected:
//   - storelink_updates_total: Counter of updates by store
//   - storelink_update_duration_seconds: Histogram of apply + fan-out time
//   - storelink_patch_keys: Histogram of patch size in properties
//   - storelink_subscribers: Gauge of subscriptions per store
//
// The middleware registers its metrics on first use. Installing it on more
// than one engine requires distinct registries via WithRegistry.
func Prometheus(opts ...MetricsOption) store.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	m := initMetrics(config)

	return func(next store.ApplyFunc) store.ApplyFunc {
		return func(s *store.Store, patch store.State) {
			label := storeLabel(s)
			start := time.Now()

			next(s, patch)

			m.updatesTotal.WithLabelValues(label).Inc()
			m.updateDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
			m.patchKeys.WithLabelValues(label).Observe(float64(len(patch)))
			m.subscribers.WithLabelValues(label).Set(float64(s.SubscriberCount()))
		}
	}
}
