package partition

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/ritzau/distgraph/pkg/comm"
	"github.com/ritzau/distgraph/pkg/wire"
)

const (
	tagGrowGather  = TagBase + 10
	tagGrowScatter = TagBase + 11

	growRoot = 0
)

var errRootFailed = errors.New("grow: root rank failed")

// Grow is a greedy graph-growing partitioner. Rank 0 gathers the whole
// graph, walks it breadth first from the smallest unvisited id, and fills
// parts in visit order until each holds its share of the total weight.
// Neighbor order is ascending id, so the result depends only on the graph.
type Grow[T cmp.Ordered] struct{}

func (Grow[T]) Name() string { return "grow" }

func (Grow[T]) Partition(ctx context.Context, c comm.Communicator, s *Summary[T]) ([]int, error) {
	in, err := comm.Gather(ctx, c, tagGrowGather, growRoot, encodeSummary(s))
	if err != nil {
		return nil, fmt.Errorf("grow: gather: %w", err)
	}

	if c.Rank() == growRoot {
		parts, assignErr := growAssign(s.Codec, s.Parts, in)
		if assignErr != nil {
			fail := make([][]byte, c.Size())
			for i := range fail {
				fail[i] = []byte{1}
			}
			if _, err := comm.Scatter(ctx, c, tagGrowScatter, growRoot, fail); err != nil {
				return nil, errors.Join(assignErr, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrNoResult, assignErr)
		}
		mine, err := comm.Scatter(ctx, c, tagGrowScatter, growRoot, parts)
		if err != nil {
			return nil, fmt.Errorf("grow: scatter: %w", err)
		}
		return decodeTargets(mine)
	}

	mine, err := comm.Scatter(ctx, c, tagGrowScatter, growRoot, nil)
	if err != nil {
		return nil, fmt.Errorf("grow: scatter: %w", err)
	}
	return decodeTargets(mine)
}

func encodeSummary[T cmp.Ordered](s *Summary[T]) []byte {
	w := wire.NewWriter(64)
	w.Count(len(s.Nodes))
	for i, id := range s.Nodes {
		wire.Put(w, s.Codec, id)
		w.Float64(s.Weight(i))
		var nbrs []T
		if i < len(s.Neighbors) {
			nbrs = s.Neighbors[i]
		}
		wire.PutSlice(w, s.Codec, nbrs)
	}
	return w.Bytes()
}

type rankNodes[T cmp.Ordered] struct {
	ids       []T
	weights   []float64
	neighbors [][]T
}

func decodeSummary[T cmp.Ordered](codec wire.Codec[T], b []byte) (rankNodes[T], error) {
	var rn rankNodes[T]
	r := wire.NewReader(b)
	n, err := r.Count()
	if err != nil {
		return rn, err
	}
	for i := 0; i < n; i++ {
		id, err := wire.Get(r, codec)
		if err != nil {
			return rn, err
		}
		weight, err := r.Float64()
		if err != nil {
			return rn, err
		}
		nbrs, err := wire.GetSlice(r, codec)
		if err != nil {
			return rn, err
		}
		rn.ids = append(rn.ids, id)
		rn.weights = append(rn.weights, weight)
		rn.neighbors = append(rn.neighbors, nbrs)
	}
	return rn, r.Done()
}

// growAssign runs on the root and returns one encoded target list per rank.
func growAssign[T cmp.Ordered](codec wire.Codec[T], nParts int, in [][]byte) ([][]byte, error) {
	ranks := make([]rankNodes[T], len(in))
	weight := make(map[T]float64)
	for rank, payload := range in {
		rn, err := decodeSummary(codec, payload)
		if err != nil {
			return nil, fmt.Errorf("summary from rank %d: %w", rank, err)
		}
		ranks[rank] = rn
		for i, id := range rn.ids {
			if _, ok := weight[id]; !ok {
				weight[id] = rn.weights[i]
			}
		}
	}

	ids := make([]T, 0, len(weight))
	for id := range weight {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	gid := make(map[T]int64, len(ids))
	for i, id := range ids {
		gid[id] = int64(i)
	}

	g := simple.NewUndirectedGraph()
	for i := range ids {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, rn := range ranks {
		for i, id := range rn.ids {
			u := gid[id]
			for _, nbr := range rn.neighbors[i] {
				v, ok := gid[nbr]
				if !ok || u == v || g.HasEdgeBetween(u, v) {
					continue
				}
				g.SetEdge(g.NewEdge(simple.Node(u), simple.Node(v)))
			}
		}
	}

	var order []int64
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) { order = append(order, n.ID()) },
	}
	og := orderedGraph{g}
	for i := range ids {
		seed := simple.Node(int64(i))
		if bf.Visited(seed) {
			continue
		}
		bf.Walk(og, seed, nil)
	}

	var total float64
	for _, w := range weight {
		total += w
	}
	part := make(map[T]int, len(ids))
	var acc float64
	for _, n := range order {
		id := ids[n]
		p := int(acc * float64(nParts) / total)
		if p >= nParts {
			p = nParts - 1
		}
		part[id] = p
		acc += weight[id]
	}

	out := make([][]byte, len(ranks))
	for rank, rn := range ranks {
		w := wire.NewWriter(1 + len(rn.ids))
		w.Bool(false)
		w.Count(len(rn.ids))
		for _, id := range rn.ids {
			w.Int(part[id])
		}
		out[rank] = w.Bytes()
	}
	return out, nil
}

func decodeTargets(b []byte) ([]int, error) {
	r := wire.NewReader(b)
	failed, err := r.Bool()
	if err != nil {
		return nil, fmt.Errorf("grow: targets: %w", err)
	}
	if failed {
		return nil, fmt.Errorf("%w: %v", ErrNoResult, errRootFailed)
	}
	n, err := r.Count()
	if err != nil {
		return nil, fmt.Errorf("grow: targets: %w", err)
	}
	out := make([]int, n)
	for i := range out {
		if out[i], err = r.Int(); err != nil {
			return nil, fmt.Errorf("grow: targets: %w", err)
		}
	}
	if err := r.Done(); err != nil {
		return nil, fmt.Errorf("grow: targets: %w", err)
	}
	return out, nil
}

// orderedGraph yields neighbors in ascending id order so that breadth-first
// visit order is reproducible.
type orderedGraph struct {
	*simple.UndirectedGraph
}

func (g orderedGraph) From(id int64) graph.Nodes {
	nodes := graph.NodesOf(g.UndirectedGraph.From(id))
	slices.SortFunc(nodes, func(a, b graph.Node) int { return cmp.Compare(a.ID(), b.ID()) })
	return iterator.NewOrderedNodes(nodes)
}
