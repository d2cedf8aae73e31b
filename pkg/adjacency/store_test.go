package adjacency

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// variants runs fn against both representations.
func variants(t *testing.T, fn func(t *testing.T, newStore func(opts ...Option) Store[int64])) {
	t.Run("dynamic", func(t *testing.T) {
		fn(t, func(opts ...Option) Store[int64] { return NewDynamic[int64](opts...) })
	})
	t.Run("compressed", func(t *testing.T) {
		fn(t, func(opts ...Option) Store[int64] { return NewCompressed[int64](opts...) })
	})
}

func TestStore_AddNodeIdempotent(t *testing.T) {
	variants(t, func(t *testing.T, newStore func(...Option) Store[int64]) {
		s := newStore()
		require.NoError(t, s.AddNode(1))
		require.NoError(t, s.AddNode(2))
		require.NoError(t, s.AddEdge(1, 2))

		require.NoError(t, s.AddNode(1))

		assert.True(t, s.NodeExists(1))
		n, err := s.NeighborCount(1)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 2, s.NodeCount())
	})
}

func TestStore_AddEdgeNotIdempotent(t *testing.T) {
	variants(t, func(t *testing.T, newStore func(...Option) Store[int64]) {
		s := newStore()
		require.NoError(t, s.AddNode(1))
		require.NoError(t, s.AddNode(2))

		require.NoError(t, s.AddEdge(1, 2))
		err := s.AddEdge(1, 2)
		assert.ErrorIs(t, err, ErrEdgeExists)

		nbrs, err := s.Neighbors(1)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, nbrs)
		assert.Equal(t, 1, s.EdgeCount())
	})
}

func TestStore_AddEdgeRequiresFrom(t *testing.T) {
	variants(t, func(t *testing.T, newStore func(...Option) Store[int64]) {
		s := newStore()
		require.NoError(t, s.AddNode(2))

		err := s.AddEdge(1, 2)
		assert.ErrorIs(t, err, ErrNodeMissing)
		assert.Contains(t, err.Error(), "1")
		assert.Equal(t, 0, s.EdgeCount())
	})
}

func TestStore_AddEdgeRegistersTarget(t *testing.T) {
	variants(t, func(t *testing.T, newStore func(...Option) Store[int64]) {
		s := newStore()
		require.NoError(t, s.AddNode(3))
		require.NoError(t, s.AddEdge(3, 4))

		assert.True(t, s.NodeExists(4))
		n, err := s.NeighborCount(4)
		require.NoError(t, err)
		assert.Equal(t, 0, n, "directed store must not mirror the edge")
	})
}

func TestStore_Undirected(t *testing.T) {
	variants(t, func(t *testing.T, newStore func(...Option) Store[int64]) {
		s := newStore(Undirected())
		require.NoError(t, s.AddNode(1))
		require.NoError(t, s.AddEdge(1, 2))

		assert.True(t, s.HasEdge(2, 1))
		assert.False(t, s.Directed())
		assert.Equal(t, 1, s.EdgeCount())

		err := s.AddEdge(2, 1)
		assert.ErrorIs(t, err, ErrEdgeExists)

		// Self loops are stored once.
		require.NoError(t, s.AddEdge(1, 1))
		nbrs, err := s.Neighbors(1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{1, 2}, nbrs)
		assert.Equal(t, 2, s.EdgeCount())
	})
}

func TestStore_MissingNodeQueries(t *testing.T) {
	variants(t, func(t *testing.T, newStore func(...Option) Store[int64]) {
		s := newStore()

		_, err := s.NeighborCount(9)
		assert.ErrorIs(t, err, ErrNodeMissing)
		_, err = s.Neighbors(9)
		assert.ErrorIs(t, err, ErrNodeMissing)
		_, err = s.LocalIndexOf(9)
		assert.ErrorIs(t, err, ErrNodeMissing)
		_, err = s.GlobalIDOf(0)
		assert.ErrorIs(t, err, ErrInvalidIndex)
		assert.False(t, s.HasEdge(9, 9))
	})
}

func TestStore_EdgesAndReset(t *testing.T) {
	variants(t, func(t *testing.T, newStore func(...Option) Store[int64]) {
		s := newStore()
		require.NoError(t, s.AddNode(1))
		require.NoError(t, s.AddEdge(1, 2))
		require.NoError(t, s.AddEdge(1, 3))

		assert.ElementsMatch(t, []Edge[int64]{{1, 2}, {1, 3}}, s.Edges())
		assert.Equal(t, []int64{1, 2, 3}, s.Nodes())

		s.Reset()
		assert.Equal(t, 0, s.NodeCount())
		assert.Equal(t, 0, s.EdgeCount())
		assert.Empty(t, s.Edges())
	})
}

func TestDynamic_NeighborsInsertionOrder(t *testing.T) {
	s := NewDynamic[int64]()
	require.NoError(t, s.AddNode(1))
	for _, to := range []int64{9, 4, 7} {
		require.NoError(t, s.AddEdge(1, to))
	}

	nbrs, err := s.Neighbors(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 4, 7}, nbrs)
}

func TestCompressed_NeighborsLocalIndexOrder(t *testing.T) {
	s := NewCompressed[int64]()
	for _, id := range []int64{1, 7, 4, 9} {
		require.NoError(t, s.AddNode(id))
	}
	for _, to := range []int64{9, 4, 7} {
		require.NoError(t, s.AddEdge(1, to))
	}

	nbrs, err := s.Neighbors(1)
	require.NoError(t, err)
	// local indices: 7->1, 4->2, 9->3
	assert.Equal(t, []int64{7, 4, 9}, nbrs)
}

func TestToCompressed_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, undirected := range []bool{false, true} {
		var opts []Option
		if undirected {
			opts = append(opts, Undirected())
		}
		d := NewDynamic[int64](opts...)
		for i := int64(0); i < 50; i++ {
			require.NoError(t, d.AddNode(i))
		}
		for i := 0; i < 400; i++ {
			from, to := rng.Int63n(50), rng.Int63n(60)
			if d.HasEdge(from, to) {
				continue
			}
			require.NoError(t, d.AddEdge(from, to))
		}

		c := d.ToCompressed()

		assert.Equal(t, d.NodeCount(), c.NodeCount())
		assert.Equal(t, d.EdgeCount(), c.EdgeCount())
		assert.Equal(t, d.Directed(), c.Directed())
		for _, id := range d.Nodes() {
			want, err := d.Neighbors(id)
			require.NoError(t, err)
			got, err := c.Neighbors(id)
			require.NoError(t, err)
			assert.ElementsMatch(t, want, got, "node %d", id)

			di, err := d.LocalIndexOf(id)
			require.NoError(t, err)
			ci, err := c.LocalIndexOf(id)
			require.NoError(t, err)
			assert.Equal(t, di, ci)
		}
	}
}

func TestCompressed_OffsetInvariants(t *testing.T) {
	d := NewDynamic[int64]()
	require.NoError(t, d.AddNode(10))
	require.NoError(t, d.AddNode(20))
	require.NoError(t, d.AddNode(30))
	require.NoError(t, d.AddEdge(10, 30))
	require.NoError(t, d.AddEdge(10, 20))
	require.NoError(t, d.AddEdge(30, 10))

	c := d.ToCompressed()
	offsets := c.Offsets()

	require.Len(t, offsets, c.NodeCount()+1)
	assert.True(t, slices.IsSorted(offsets))
	for i := 0; i < c.NodeCount(); i++ {
		id, err := c.GlobalIDOf(i)
		require.NoError(t, err)
		deg, err := c.NeighborCount(id)
		require.NoError(t, err)
		assert.Equal(t, deg, offsets[i+1]-offsets[i])

		idx, err := c.NeighborIndices(i)
		require.NoError(t, err)
		assert.True(t, slices.IsSorted(idx))
	}

	_, err := c.NeighborIndices(3)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestCompressed_MutationKeepsOrder(t *testing.T) {
	c := NewDynamic[int64]().ToCompressed()
	require.NoError(t, c.AddNode(1))
	require.NoError(t, c.AddNode(2))
	require.NoError(t, c.AddEdge(2, 1))
	require.NoError(t, c.AddEdge(1, 3))
	require.NoError(t, c.AddEdge(1, 2))

	nbrs, err := c.Neighbors(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, nbrs)

	nbrs, err = c.Neighbors(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, nbrs)
	assert.Equal(t, []int{0, 2, 3, 3}, c.Offsets())
}

func TestToCompressed_CopyIsIndependent(t *testing.T) {
	c := NewCompressed[int64]()
	require.NoError(t, c.AddNode(1))
	require.NoError(t, c.AddEdge(1, 2))

	cp := c.ToCompressed()
	require.NoError(t, cp.AddEdge(1, 3))

	assert.False(t, c.HasEdge(1, 3))
	assert.Equal(t, 1, c.EdgeCount())
	assert.Equal(t, 2, cp.EdgeCount())
}

func TestStore_DirectedConservation(t *testing.T) {
	variants(t, func(t *testing.T, newStore func(...Option) Store[int64]) {
		s := newStore()
		claimed := map[int64]int{}
		edges := [][2]int64{{1, 2}, {1, 3}, {2, 3}, {3, 1}, {4, 1}}
		for _, id := range []int64{1, 2, 3, 4} {
			require.NoError(t, s.AddNode(id))
		}
		for _, e := range edges {
			require.NoError(t, s.AddEdge(e[0], e[1]))
			claimed[e[0]]++
		}

		total := 0
		for _, id := range s.Nodes() {
			n, err := s.NeighborCount(id)
			require.NoError(t, err)
			assert.Equal(t, claimed[id], n)
			total += n
		}
		assert.Equal(t, len(edges), total)
		assert.Equal(t, len(edges), s.EdgeCount())
	})
}
