package adjacency

import (
	"cmp"
	"fmt"
	"slices"
)

// Dynamic is the per-node neighbor list representation used while a graph is
// being built.
type Dynamic[T cmp.Ordered] struct {
	index      *IndexMap[T]
	adj        [][]int            // local index -> neighbor local indices, insertion order
	present    map[[2]int]struct{} // stored from/to local index pairs
	edges      int
	undirected bool
}

var _ Store[int64] = (*Dynamic[int64])(nil)

// NewDynamic creates an empty dynamic store.
func NewDynamic[T cmp.Ordered](opts ...Option) *Dynamic[T] {
	o := buildOptions(opts)
	return &Dynamic[T]{
		index:      NewIndexMap[T](),
		present:    make(map[[2]int]struct{}),
		undirected: o.undirected,
	}
}

// AddNode registers id with zero neighbors if it is not already stored.
func (d *Dynamic[T]) AddNode(id T) error {
	d.ensure(id)
	return nil
}

func (d *Dynamic[T]) ensure(id T) int {
	idx := d.index.LocalIndexOf(id)
	if idx == len(d.adj) {
		d.adj = append(d.adj, nil)
	}
	return idx
}

// NodeExists reports whether id is stored.
func (d *Dynamic[T]) NodeExists(id T) bool {
	_, ok := d.index.IndexOf(id)
	return ok
}

// AddEdge inserts from->to, and to->from for undirected stores.
func (d *Dynamic[T]) AddEdge(from, to T) error {
	fi, ok := d.index.IndexOf(from)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNodeMissing, from)
	}
	if ti, ok := d.index.IndexOf(to); ok {
		if _, dup := d.present[[2]int{fi, ti}]; dup {
			return fmt.Errorf("%w: %v -> %v", ErrEdgeExists, from, to)
		}
	}

	ti := d.ensure(to)
	d.link(fi, ti)
	if d.undirected && fi != ti {
		d.link(ti, fi)
	}
	d.edges++
	return nil
}

func (d *Dynamic[T]) link(fi, ti int) {
	d.adj[fi] = append(d.adj[fi], ti)
	d.present[[2]int{fi, ti}] = struct{}{}
}

// HasEdge reports whether from->to is stored.
func (d *Dynamic[T]) HasEdge(from, to T) bool {
	fi, ok := d.index.IndexOf(from)
	if !ok {
		return false
	}
	ti, ok := d.index.IndexOf(to)
	if !ok {
		return false
	}
	_, ok = d.present[[2]int{fi, ti}]
	return ok
}

// NeighborCount returns the degree of id.
func (d *Dynamic[T]) NeighborCount(id T) (int, error) {
	idx, ok := d.index.IndexOf(id)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrNodeMissing, id)
	}
	return len(d.adj[idx]), nil
}

// Neighbors returns the neighbors of id in insertion order.
func (d *Dynamic[T]) Neighbors(id T) ([]T, error) {
	idx, ok := d.index.IndexOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNodeMissing, id)
	}
	out := make([]T, len(d.adj[idx]))
	for i, n := range d.adj[idx] {
		out[i] = d.index.toID[n]
	}
	return out, nil
}

// LocalIndexOf returns the local index of a stored node.
func (d *Dynamic[T]) LocalIndexOf(id T) (int, error) {
	idx, ok := d.index.IndexOf(id)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrNodeMissing, id)
	}
	return idx, nil
}

// GlobalIDOf returns the identifier at local index idx.
func (d *Dynamic[T]) GlobalIDOf(idx int) (T, error) {
	return d.index.GlobalIDOf(idx)
}

// NodeCount returns the number of stored nodes.
func (d *Dynamic[T]) NodeCount() int { return d.index.Count() }

// EdgeCount returns the number of stored edges.
func (d *Dynamic[T]) EdgeCount() int { return d.edges }

// Nodes returns all node ids in local-index order.
func (d *Dynamic[T]) Nodes() []T { return d.index.IDs() }

// Directed reports whether the store is directed.
func (d *Dynamic[T]) Directed() bool { return !d.undirected }

// Edges returns every stored from->to pair.
func (d *Dynamic[T]) Edges() []Edge[T] {
	out := make([]Edge[T], 0, len(d.present))
	for fi, nbrs := range d.adj {
		for _, ti := range nbrs {
			out = append(out, Edge[T]{From: d.index.toID[fi], To: d.index.toID[ti]})
		}
	}
	return out
}

// ToCompressed builds the offset/neighbor representation in a single pass,
// sorting every neighbor list by local index.
func (d *Dynamic[T]) ToCompressed() *Compressed[T] {
	n := len(d.adj)
	offsets := make([]int, n+1)
	for i, nbrs := range d.adj {
		offsets[i+1] = offsets[i] + len(nbrs)
	}

	targets := make([]int, offsets[n])
	for i, nbrs := range d.adj {
		seg := targets[offsets[i]:offsets[i+1]]
		copy(seg, nbrs)
		slices.Sort(seg)
	}

	index := NewIndexMap[T]()
	for _, id := range d.index.toID {
		index.LocalIndexOf(id)
	}

	return &Compressed[T]{
		index:      index,
		offsets:    offsets,
		targets:    targets,
		edges:      d.edges,
		undirected: d.undirected,
	}
}

// Reset clears all nodes and edges.
func (d *Dynamic[T]) Reset() {
	d.index.Reset()
	d.adj = nil
	d.present = make(map[[2]int]struct{})
	d.edges = 0
}
