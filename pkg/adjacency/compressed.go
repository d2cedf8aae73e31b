package adjacency

import (
	"cmp"
	"fmt"
	"slices"
)

// Compressed is the offset/neighbor array representation.
//
// offsets has NodeCount()+1 entries, is non-decreasing, and
// offsets[i+1]-offsets[i] is the degree of local node i. The neighbors of
// node i are targets[offsets[i]:offsets[i+1]] sorted by local index.
//
// Mutation is supported for interchangeability with Dynamic but each insert
// shifts the arrays; build with Dynamic and convert once.
type Compressed[T cmp.Ordered] struct {
	index      *IndexMap[T]
	offsets    []int
	targets    []int
	edges      int
	undirected bool
}

var _ Store[int64] = (*Compressed[int64])(nil)

// NewCompressed creates an empty compressed store.
func NewCompressed[T cmp.Ordered](opts ...Option) *Compressed[T] {
	o := buildOptions(opts)
	return &Compressed[T]{
		index:      NewIndexMap[T](),
		offsets:    []int{0},
		undirected: o.undirected,
	}
}

// AddNode registers id with zero neighbors if it is not already stored.
func (c *Compressed[T]) AddNode(id T) error {
	c.ensure(id)
	return nil
}

func (c *Compressed[T]) ensure(id T) int {
	idx := c.index.LocalIndexOf(id)
	if idx == len(c.offsets)-1 {
		c.offsets = append(c.offsets, c.offsets[idx])
	}
	return idx
}

// NodeExists reports whether id is stored.
func (c *Compressed[T]) NodeExists(id T) bool {
	_, ok := c.index.IndexOf(id)
	return ok
}

// AddEdge inserts from->to, and to->from for undirected stores.
func (c *Compressed[T]) AddEdge(from, to T) error {
	fi, ok := c.index.IndexOf(from)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNodeMissing, from)
	}
	if ti, ok := c.index.IndexOf(to); ok && c.hasIndex(fi, ti) {
		return fmt.Errorf("%w: %v -> %v", ErrEdgeExists, from, to)
	}

	ti := c.ensure(to)
	c.insert(fi, ti)
	if c.undirected && fi != ti {
		c.insert(ti, fi)
	}
	c.edges++
	return nil
}

func (c *Compressed[T]) insert(fi, ti int) {
	seg := c.targets[c.offsets[fi]:c.offsets[fi+1]]
	pos, _ := slices.BinarySearch(seg, ti)
	c.targets = slices.Insert(c.targets, c.offsets[fi]+pos, ti)
	for i := fi + 1; i < len(c.offsets); i++ {
		c.offsets[i]++
	}
}

func (c *Compressed[T]) hasIndex(fi, ti int) bool {
	_, found := slices.BinarySearch(c.targets[c.offsets[fi]:c.offsets[fi+1]], ti)
	return found
}

// HasEdge reports whether from->to is stored.
func (c *Compressed[T]) HasEdge(from, to T) bool {
	fi, ok := c.index.IndexOf(from)
	if !ok {
		return false
	}
	ti, ok := c.index.IndexOf(to)
	if !ok {
		return false
	}
	return c.hasIndex(fi, ti)
}

// NeighborCount returns the degree of id in O(1).
func (c *Compressed[T]) NeighborCount(id T) (int, error) {
	idx, ok := c.index.IndexOf(id)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrNodeMissing, id)
	}
	return c.offsets[idx+1] - c.offsets[idx], nil
}

// Neighbors returns the neighbors of id in ascending local-index order.
func (c *Compressed[T]) Neighbors(id T) ([]T, error) {
	idx, ok := c.index.IndexOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNodeMissing, id)
	}
	seg := c.targets[c.offsets[idx]:c.offsets[idx+1]]
	out := make([]T, len(seg))
	for i, n := range seg {
		out[i] = c.index.toID[n]
	}
	return out, nil
}

// NeighborIndices returns the neighbor local indices of local node idx. The
// slice aliases the store and must not be modified.
func (c *Compressed[T]) NeighborIndices(idx int) ([]int, error) {
	if idx < 0 || idx >= len(c.offsets)-1 {
		return nil, fmt.Errorf("%w: %d (count %d)", ErrInvalidIndex, idx, len(c.offsets)-1)
	}
	return c.targets[c.offsets[idx]:c.offsets[idx+1]:c.offsets[idx+1]], nil
}

// Offsets returns the offset array. The slice aliases the store and must not
// be modified.
func (c *Compressed[T]) Offsets() []int {
	return c.offsets[:len(c.offsets):len(c.offsets)]
}

// LocalIndexOf returns the local index of a stored node.
func (c *Compressed[T]) LocalIndexOf(id T) (int, error) {
	idx, ok := c.index.IndexOf(id)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrNodeMissing, id)
	}
	return idx, nil
}

// GlobalIDOf returns the identifier at local index idx.
func (c *Compressed[T]) GlobalIDOf(idx int) (T, error) {
	return c.index.GlobalIDOf(idx)
}

// NodeCount returns the number of stored nodes.
func (c *Compressed[T]) NodeCount() int { return c.index.Count() }

// EdgeCount returns the number of stored edges.
func (c *Compressed[T]) EdgeCount() int { return c.edges }

// Nodes returns all node ids in local-index order.
func (c *Compressed[T]) Nodes() []T { return c.index.IDs() }

// Directed reports whether the store is directed.
func (c *Compressed[T]) Directed() bool { return !c.undirected }

// Edges returns every stored from->to pair.
func (c *Compressed[T]) Edges() []Edge[T] {
	out := make([]Edge[T], 0, len(c.targets))
	for fi := 0; fi < len(c.offsets)-1; fi++ {
		for _, ti := range c.targets[c.offsets[fi]:c.offsets[fi+1]] {
			out = append(out, Edge[T]{From: c.index.toID[fi], To: c.index.toID[ti]})
		}
	}
	return out
}

// ToCompressed returns an independent copy.
func (c *Compressed[T]) ToCompressed() *Compressed[T] {
	index := NewIndexMap[T]()
	for _, id := range c.index.toID {
		index.LocalIndexOf(id)
	}
	return &Compressed[T]{
		index:      index,
		offsets:    slices.Clone(c.offsets),
		targets:    slices.Clone(c.targets),
		edges:      c.edges,
		undirected: c.undirected,
	}
}

// Reset clears all nodes and edges.
func (c *Compressed[T]) Reset() {
	c.index.Reset()
	c.offsets = []int{0}
	c.targets = nil
	c.edges = 0
}
