// Package fetch holds per-screen data resources. A Resource exposes the
// {data, loading, error} triple a view renders and tolerates the screen
// going away mid-load: late results are dropped, never applied.
package fetch

import (
	"context"
	"sync"

	"coopconsole/internal/platform/metrics"
)

// Loader produces a screen's data.
type Loader[T any] func(ctx context.Context) (T, error)

// Snapshot is what a view renders. Loaded is false until the first load
// settles, which lets a view tell "nothing yet" from "empty result".
type Snapshot[T any] struct {
	Data    T
	Loading bool
	Err     error
	Loaded  bool
}

// Ticket identifies one load. Only the newest ticket may resolve.
type Ticket uint64

// Resource tracks a screen's data across loads.
type Resource[T any] struct {
	name    string
	load    Loader[T]
	metrics *metrics.Metrics

	mu     sync.Mutex
	gen    Ticket
	closed bool
	snap   Snapshot[T]
}

// Option configures a Resource.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics counts discarded results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NewResource returns an idle resource.
func NewResource[T any](name string, load Loader[T], opts ...Option) *Resource[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Resource[T]{name: name, load: load, metrics: o.metrics}
}

// Name is the resource's label in logs and metrics.
func (r *Resource[T]) Name() string {
	return r.name
}

// Begin marks the resource loading and returns the ticket the result must
// present. Any earlier ticket is superseded.
func (r *Resource[T]) Begin() Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if !r.closed {
		r.snap.Loading = true
		r.snap.Err = nil
	}
	return r.gen
}

// Resolve applies a load result if t is still the newest ticket and the
// resource is open. It reports whether the result was applied. A failed
// load clears Data so a view never pairs an error with stale rows.
func (r *Resource[T]) Resolve(t Ticket, data T, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || t != r.gen {
		r.metrics.IncDiscarded()
		return false
	}
	var zero T
	if err != nil {
		data = zero
	}
	r.snap = Snapshot[T]{Data: data, Err: err, Loaded: true}
	return true
}

// Run executes the loader for ticket t and resolves it.
func (r *Resource[T]) Run(ctx context.Context, t Ticket) bool {
	data, err := r.load(ctx)
	return r.Resolve(t, data, err)
}

// Load is Begin followed by Run. It blocks until the loader returns and
// reports the snapshot at that point.
func (r *Resource[T]) Load(ctx context.Context) Snapshot[T] {
	r.Run(ctx, r.Begin())
	return r.Snapshot()
}

// Retry is a fresh load.
func (r *Resource[T]) Retry(ctx context.Context) Snapshot[T] {
	return r.Load(ctx)
}

// Close tears the resource down. Loads in flight finish but their results
// are discarded.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.snap.Loading = false
}

// Closed reports whether Close was called.
func (r *Resource[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Snapshot returns the current state.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}
