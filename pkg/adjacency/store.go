// Package adjacency provides local adjacency storage over a fixed node index
// space.
//
// Two interchangeable representations implement Store:
//
//   - Dynamic keeps one neighbor list per node. Inserts are amortized O(1),
//     which suits incremental construction when the edge count is unknown.
//   - Compressed keeps an offset array of length NodeCount()+1 and a single
//     neighbor array. Degree lookup is O(1) and neighbor iteration is
//     contiguous, which suits the read-mostly traversal paths after a graph
//     has been finalized.
//
// Neighbor order is insertion order for Dynamic and ascending local-index
// order for Compressed. Callers must not rely on the two orders matching.
//
// Errors:
//
//	ErrNodeMissing   - the referenced node is not in the store.
//	ErrEdgeExists    - AddEdge was called for an edge already present.
//	ErrInvalidIndex  - a local index is outside [0, NodeCount()).
package adjacency

import (
	"cmp"
	"errors"
)

// Sentinel errors for adjacency store operations.
var (
	// ErrNodeMissing indicates an operation referenced a node that is not stored.
	ErrNodeMissing = errors.New("adjacency: node missing")

	// ErrEdgeExists indicates a duplicate edge insert.
	ErrEdgeExists = errors.New("adjacency: edge exists")

	// ErrInvalidIndex indicates a local index outside the current node count.
	ErrInvalidIndex = errors.New("adjacency: invalid index")
)

// Edge is a stored from/to pair of global identifiers.
type Edge[T any] struct {
	From T
	To   T
}

// Store is the capability set shared by the Dynamic and Compressed
// representations.
type Store[T cmp.Ordered] interface {
	// AddNode registers id with no neighbors. Adding an existing node is a no-op.
	AddNode(id T) error

	// NodeExists reports whether id is stored.
	NodeExists(id T) bool

	// AddEdge inserts from->to. from must already be stored; to is registered
	// if absent. Duplicate inserts fail with ErrEdgeExists. Undirected stores
	// also insert to->from.
	AddEdge(from, to T) error

	// HasEdge reports whether from->to is stored.
	HasEdge(from, to T) bool

	// NeighborCount returns the degree of id.
	NeighborCount(id T) (int, error)

	// Neighbors returns a caller-owned copy of the neighbors of id.
	Neighbors(id T) ([]T, error)

	// LocalIndexOf returns the local index of a stored node.
	LocalIndexOf(id T) (int, error)

	// GlobalIDOf returns the identifier stored at a local index.
	GlobalIDOf(idx int) (T, error)

	// NodeCount returns the number of stored nodes.
	NodeCount() int

	// EdgeCount returns the number of stored edges. Directed stores count every
	// from->to pair; undirected stores count each pair once.
	EdgeCount() int

	// Nodes returns all node identifiers in local-index order.
	Nodes() []T

	// Edges returns every stored from->to pair in local-index order of From.
	Edges() []Edge[T]

	// Directed reports whether the store treats (a,b) and (b,a) independently.
	Directed() bool

	// ToCompressed builds a compressed copy of the store.
	ToCompressed() *Compressed[T]

	// Reset clears all nodes and edges.
	Reset()
}

// Option configures a store at construction.
type Option func(*options)

type options struct {
	undirected bool
}

// Undirected makes AddEdge(a, b) also insert b->a and count the pair once.
func Undirected() Option {
	return func(o *options) { o.undirected = true }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
