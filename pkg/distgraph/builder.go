package distgraph

import (
	"cmp"
	"fmt"
	"log/slog"

	"github.com/ritzau/distgraph/pkg/adjacency"
	"github.com/ritzau/distgraph/pkg/comm"
	"github.com/ritzau/distgraph/pkg/logging"
	"github.com/ritzau/distgraph/pkg/partition"
	"github.com/ritzau/distgraph/pkg/wire"
)

// State is the lifecycle state of a Builder.
type State int

const (
	Open State = iota
	Finalized
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Finalized:
		return "finalized"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Builder accumulates one rank's claims and turns them into a Graph.
// A Builder is not safe for concurrent use.
type Builder[T cmp.Ordered] struct {
	comm        comm.Communicator
	codec       wire.Codec[T]
	directed    bool
	parts       int
	partitioner partition.Partitioner[T]
	opts        options
	log         *slog.Logger

	state   State
	store   *adjacency.Dynamic[T]
	claims  map[T]int
	weights map[T]float64
	graph   *Graph[T]
}

// NewBuilder creates an Open builder on a duplicate of c. The duplicate is
// released by Close. Every rank of c must call NewBuilder in the same order.
func NewBuilder[T cmp.Ordered](c comm.Communicator, codec wire.Codec[T], opts ...Option) (*Builder[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var p partition.Partitioner[T] = partition.ByClaim[T]{}
	if o.partitioner != nil {
		typed, ok := o.partitioner.(partition.Partitioner[T])
		if !ok {
			return nil, fmt.Errorf("distgraph: partitioner %T does not match id type", o.partitioner)
		}
		p = typed
	}

	dup, err := c.Dup()
	if err != nil {
		return nil, fmt.Errorf("distgraph: duplicate communicator: %w", err)
	}

	parts := o.parts
	if parts == 0 {
		parts = dup.Size()
	}

	b := &Builder[T]{
		comm:        dup,
		codec:       codec,
		directed:    o.directed,
		parts:       parts,
		partitioner: p,
		opts:        o,
		log:         logging.With("component", "distgraph", "rank", dup.Rank()),
	}
	b.Reset()
	return b, nil
}

// Rank returns this builder's rank.
func (b *Builder[T]) Rank() int { return b.comm.Rank() }

// Size returns the world size.
func (b *Builder[T]) Size() int { return b.comm.Size() }

// State returns the lifecycle state.
func (b *Builder[T]) State() State { return b.state }

// Reset discards every claim and any finalized graph and returns to Open.
func (b *Builder[T]) Reset() {
	var storeOpts []adjacency.Option
	if !b.directed {
		storeOpts = append(storeOpts, adjacency.Undirected())
	}
	b.state = Open
	b.store = adjacency.NewDynamic[T](storeOpts...)
	b.claims = make(map[T]int)
	b.weights = make(map[T]float64)
	b.graph = nil
}

// Close releases the builder's communicator.
func (b *Builder[T]) Close() error {
	return b.comm.Close()
}

// ClaimNode records that this rank believes owner owns id. A later claim of
// the same id on this rank replaces the earlier one.
func (b *Builder[T]) ClaimNode(id T, owner int) error {
	if b.state != Open {
		return ErrFinalized
	}
	if owner < 0 || owner >= b.comm.Size() {
		return fmt.Errorf("%w: %d for node %v (size %d)", ErrInvalidRank, owner, id, b.comm.Size())
	}
	if err := b.store.AddNode(id); err != nil {
		return err
	}
	b.claims[id] = owner
	return nil
}

// ClaimEdge records the edge from->to. from must already be known to this
// rank through ClaimNode or an earlier edge. Claiming an edge twice is a
// no-op.
func (b *Builder[T]) ClaimEdge(from, to T) error {
	if b.state != Open {
		return ErrFinalized
	}
	if !b.store.NodeExists(from) {
		return fmt.Errorf("%w: %v", adjacency.ErrNodeMissing, from)
	}
	if b.store.HasEdge(from, to) {
		return nil
	}
	return b.store.AddEdge(from, to)
}

// SetNodeWeight sets the partitioning weight of a claimed node.
func (b *Builder[T]) SetNodeWeight(id T, w float64) error {
	if b.state != Open {
		return ErrFinalized
	}
	if _, ok := b.claims[id]; !ok {
		return fmt.Errorf("%w: %v", adjacency.ErrNodeMissing, id)
	}
	if !(w > 0) {
		return fmt.Errorf("%w: %v for node %v", ErrInvalidWeight, w, id)
	}
	b.weights[id] = w
	return nil
}

// Graph returns the finalized graph.
func (b *Builder[T]) Graph() (*Graph[T], error) {
	if b.state != Finalized {
		return nil, ErrUnfinalized
	}
	return b.graph, nil
}

// IsLocalOwned reports whether id is owned by this rank.
func (b *Builder[T]) IsLocalOwned(id T) (bool, error) {
	if b.state != Finalized {
		return false, ErrUnfinalized
	}
	return b.graph.IsLocalOwned(id), nil
}

// IsLocalGhost reports whether id is mirrored on this rank.
func (b *Builder[T]) IsLocalGhost(id T) (bool, error) {
	if b.state != Finalized {
		return false, ErrUnfinalized
	}
	return b.graph.IsLocalGhost(id), nil
}

// OwnerRank returns the owning rank of a local node.
func (b *Builder[T]) OwnerRank(id T) (int, error) {
	if b.state != Finalized {
		return 0, ErrUnfinalized
	}
	return b.graph.OwnerRank(id)
}

// Neighbors returns the neighbors of a local node.
func (b *Builder[T]) Neighbors(id T) ([]T, error) {
	if b.state != Finalized {
		return nil, ErrUnfinalized
	}
	return b.graph.Neighbors(id)
}

// NeighborCount returns the degree of a local node.
func (b *Builder[T]) NeighborCount(id T) (int, error) {
	if b.state != Finalized {
		return 0, ErrUnfinalized
	}
	return b.graph.NeighborCount(id)
}

// LocalIndexOf returns the local index of a local node.
func (b *Builder[T]) LocalIndexOf(id T) (int, error) {
	if b.state != Finalized {
		return 0, ErrUnfinalized
	}
	return b.graph.LocalIndexOf(id)
}

// GlobalIDOf returns the node stored at a local index.
func (b *Builder[T]) GlobalIDOf(idx int) (T, error) {
	if b.state != Finalized {
		var zero T
		return zero, ErrUnfinalized
	}
	return b.graph.GlobalIDOf(idx)
}
