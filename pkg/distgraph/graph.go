package distgraph

import (
	"cmp"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ritzau/distgraph/pkg/adjacency"
)

// Graph is one rank's finalized view of the distributed graph. It is
// immutable and safe for concurrent readers.
type Graph[T cmp.Ordered] struct {
	rank   int
	size   int
	store  *adjacency.Compressed[T]
	owned  int             // local indices [0, owned) are owned
	ghosts *roaring.Bitmap // local indices of ghost nodes
	owners []int           // owning rank by local index
}

func newGraph[T cmp.Ordered](rank, size int, store *adjacency.Compressed[T], owned int, owners []int) *Graph[T] {
	ghosts := roaring.New()
	if n := store.NodeCount(); n > owned {
		ghosts.AddRange(uint64(owned), uint64(n))
	}
	ghosts.RunOptimize()
	return &Graph[T]{
		rank:   rank,
		size:   size,
		store:  store,
		owned:  owned,
		ghosts: ghosts,
		owners: owners,
	}
}

// Rank returns the rank this view belongs to.
func (g *Graph[T]) Rank() int { return g.rank }

// Size returns the world size.
func (g *Graph[T]) Size() int { return g.size }

func (g *Graph[T]) index(id T) (int, bool) {
	idx, err := g.store.LocalIndexOf(id)
	return idx, err == nil
}

// IsLocalOwned reports whether this rank owns id.
func (g *Graph[T]) IsLocalOwned(id T) bool {
	idx, ok := g.index(id)
	return ok && idx < g.owned
}

// IsLocalGhost reports whether id is mirrored here from another rank.
func (g *Graph[T]) IsLocalGhost(id T) bool {
	idx, ok := g.index(id)
	return ok && g.ghosts.Contains(uint32(idx))
}

// OwnerRank returns the owning rank of a local node.
func (g *Graph[T]) OwnerRank(id T) (int, error) {
	idx, ok := g.index(id)
	if !ok {
		return 0, fmt.Errorf("%w: %v is neither owned nor ghost on rank %d", adjacency.ErrNodeMissing, id, g.rank)
	}
	return g.owners[idx], nil
}

// Neighbors returns the local neighbors of id in ascending local-index
// order.
func (g *Graph[T]) Neighbors(id T) ([]T, error) { return g.store.Neighbors(id) }

// NeighborCount returns the local degree of id.
func (g *Graph[T]) NeighborCount(id T) (int, error) { return g.store.NeighborCount(id) }

// LocalIndexOf returns the local index of id.
func (g *Graph[T]) LocalIndexOf(id T) (int, error) { return g.store.LocalIndexOf(id) }

// GlobalIDOf returns the node at local index idx.
func (g *Graph[T]) GlobalIDOf(idx int) (T, error) { return g.store.GlobalIDOf(idx) }

// OwnedCount returns the number of owned nodes.
func (g *Graph[T]) OwnedCount() int { return g.owned }

// GhostCount returns the number of ghost nodes.
func (g *Graph[T]) GhostCount() int { return int(g.ghosts.GetCardinality()) }

// NodeCount returns the number of local nodes, owned and ghost.
func (g *Graph[T]) NodeCount() int { return g.store.NodeCount() }

// EdgeCount returns the number of locally stored edges.
func (g *Graph[T]) EdgeCount() int { return g.store.EdgeCount() }

// Directed reports whether edges are stored directed.
func (g *Graph[T]) Directed() bool { return g.store.Directed() }

// Owned returns the owned node ids in local-index order.
func (g *Graph[T]) Owned() []T { return g.store.Nodes()[:g.owned] }

// Ghosts returns the ghost node ids in local-index order.
func (g *Graph[T]) Ghosts() []T { return g.store.Nodes()[g.owned:] }

// Store returns the compressed adjacency. It must not be mutated.
func (g *Graph[T]) Store() *adjacency.Compressed[T] { return g.store }
