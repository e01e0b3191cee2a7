// Package persist saves global state snapshots to pluggable sinks.
//
// The engine itself never persists anything; snapshots are plain values and
// storing them is the caller's job. This package is that caller-side
// utility: point a Snapshotter at an engine and a sink, then call Save on
// demand or Run for interval snapshots.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/storelink-dev/storelink/pkg/store"
)

// Sink writes one serialized snapshot under a key.
type Sink interface {
	Write(ctx context.Context, key string, data []byte) error
}

// FileSink writes snapshots as files in a local directory.
type FileSink struct {
	Dir string
}

// Write stores data at Dir/key, creating the directory if needed.
func (f *FileSink) Write(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	return os.WriteFile(filepath.Join(f.Dir, key), data, 0o644)
}

// Option configures a Snapshotter.
type Option func(*Snapshotter)

// WithInterval sets the interval for Run (default: 1 minute).
func WithInterval(d time.Duration) Option {
	return func(s *Snapshotter) {
		s.interval = d
	}
}

// WithPrefix sets the key prefix for snapshot keys.
func WithPrefix(prefix string) Option {
	return func(s *Snapshotter) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Snapshotter) {
		s.logger = logger
	}
}

// Snapshotter serializes an engine's global state registry to a Sink.
type Snapshotter struct {
	engine   *store.Engine
	sink     Sink
	interval time.Duration
	prefix   string
	logger   *slog.Logger

	// now is swapped in tests for stable keys.
	now func() time.Time
}

// New creates a snapshotter for engine writing to sink.
func New(engine *store.Engine, sink Sink, opts ...Option) *Snapshotter {
	s := &Snapshotter{
		engine:   engine,
		sink:     sink,
		interval: time.Minute,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes one snapshot keyed by the current UTC time.
func (s *Snapshotter) Save(ctx context.Context) error {
	data, err := json.MarshalIndent(s.engine.GlobalState(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := s.prefix + s.now().UTC().Format("20060102T150405.000") + ".json"
	if err := s.sink.Write(ctx, key, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}

	s.logger.Debug("snapshot saved", "key", key, "bytes", len(data))
	return nil
}

// Run saves a snapshot every interval until ctx is cancelled. Errors are
// logged, not fatal; the loop keeps going.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Save(ctx); err != nil {
				s.logger.Error("snapshot failed", "error", err)
			}
		}
	}
}
