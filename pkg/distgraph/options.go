package distgraph

import (
	"cmp"
	"time"

	"github.com/ritzau/distgraph/pkg/partition"
)

// Option configures a Builder.
type Option func(*options)

type options struct {
	directed    bool
	parts       int
	partitioner any
	slowPhase   time.Duration
}

// WithDirected stores claimed edges as directed. By default a claimed edge
// (a, b) is also visible from b, so both endpoints can see each other.
func WithDirected(directed bool) Option {
	return func(o *options) { o.directed = directed }
}

// WithParts sets the number of parts requested from the partitioner. The
// default is the world size.
func WithParts(n int) Option {
	return func(o *options) { o.parts = n }
}

// WithPartitioner sets the partitioner. The default honors requested owners.
func WithPartitioner[T cmp.Ordered](p partition.Partitioner[T]) Option {
	return func(o *options) { o.partitioner = p }
}

// WithSlowPhaseWarning logs a warning when a finalize phase takes longer than d.
func WithSlowPhaseWarning(d time.Duration) Option {
	return func(o *options) { o.slowPhase = d }
}
