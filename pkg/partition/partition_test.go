package partition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/distgraph/pkg/comm"
	"github.com/ritzau/distgraph/pkg/wire"
)

// runRanks calls p on every rank concurrently and returns each rank's targets.
func runRanks(t *testing.T, p Partitioner[int64], sums []*Summary[int64]) [][]int {
	t.Helper()
	w, err := comm.NewWorld(len(sums))
	require.NoError(t, err)

	out := make([][]int, len(sums))
	g, ctx := errgroup.WithContext(context.Background())
	for r := range sums {
		c, err := w.Comm(r)
		require.NoError(t, err)
		g.Go(func() error {
			var err error
			out[r], err = p.Partition(ctx, c, sums[r])
			return err
		})
	}
	require.NoError(t, g.Wait())
	return out
}

// pathSummaries splits the path 1-2-3-4-5-6 over two ranks.
func pathSummaries(parts int) []*Summary[int64] {
	return []*Summary[int64]{
		{
			Nodes:     []int64{1, 2, 3},
			Claims:    []int{0, 0, 0},
			Neighbors: [][]int64{{2}, {1, 3}, {2, 4}},
			Parts:     parts,
			Codec:     wire.Int64,
		},
		{
			Nodes:     []int64{4, 5, 6},
			Claims:    []int{1, 1, 1},
			Neighbors: [][]int64{{3, 5}, {4, 6}, {5}},
			Parts:     parts,
			Codec:     wire.Int64,
		},
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "claim", "block", "grow"} {
		p, err := ByName[int64](name)
		require.NoError(t, err, name)
		if name != "" {
			assert.Equal(t, name, p.Name())
		}
	}

	_, err := ByName[int64]("metis")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestCheckParts(t *testing.T) {
	assert.NoError(t, CheckParts(2, 2))
	assert.ErrorIs(t, CheckParts(0, 2), ErrInvalidPartsCount)
	assert.ErrorIs(t, CheckParts(3, 2), ErrInvalidPartsCount)
}

func TestValidate(t *testing.T) {
	s := &Summary[int64]{Nodes: []int64{1, 2, 3}, Parts: 2}

	_, err := Validate(s, nil)
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = Validate(s, []int{0, 1})
	assert.ErrorIs(t, err, ErrUndersizedArray)

	_, err = Validate(s, []int{0, 1, 1, 0})
	assert.ErrorIs(t, err, ErrOversizedArray)

	_, err = Validate(&Summary[int64]{Parts: 1}, []int{0})
	assert.ErrorIs(t, err, ErrOversizedArray)

	bad, err := Validate(s, []int{0, 2, -1})
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Equal(t, []int64{2, 3}, bad)

	bad, err = Validate(s, []int{0, 1, 1})
	assert.NoError(t, err)
	assert.Empty(t, bad)
}

func TestByClaim(t *testing.T) {
	s := &Summary[int64]{Nodes: []int64{1, 2}, Claims: []int{1, 0}, Parts: 2}
	got, err := ByClaim[int64]{}.Partition(context.Background(), nil, s)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, got)

	got[0] = 5
	assert.Equal(t, 1, s.Claims[0], "result must not alias claims")
}

func TestBlock(t *testing.T) {
	sums := pathSummaries(2)
	// Rank 1 also knows node 3; both ranks must agree on its block.
	sums[1].Nodes = []int64{3, 4, 5, 6}
	sums[1].Claims = []int{0, 1, 1, 1}
	sums[1].Neighbors = [][]int64{{2, 4}, {3, 5}, {4, 6}, {5}}

	got := runRanks(t, Block[int64]{}, sums)
	assert.Equal(t, []int{0, 0, 0}, got[0])
	assert.Equal(t, []int{0, 1, 1, 1}, got[1])
}

func TestGrow_Path(t *testing.T) {
	got := runRanks(t, Grow[int64]{}, pathSummaries(2))
	assert.Equal(t, []int{0, 0, 0}, got[0])
	assert.Equal(t, []int{1, 1, 1}, got[1])
}

func TestGrow_Weighted(t *testing.T) {
	sums := pathSummaries(2)
	sums[0].Weights = []float64{3, 1, 1}

	got := runRanks(t, Grow[int64]{}, sums)
	assert.Equal(t, []int{0, 0, 1}, got[0])
	assert.Equal(t, []int{1, 1, 1}, got[1])
}

func TestGrow_SinglePart(t *testing.T) {
	got := runRanks(t, Grow[int64]{}, pathSummaries(1))
	assert.Equal(t, []int{0, 0, 0}, got[0])
	assert.Equal(t, []int{0, 0, 0}, got[1])
}

func TestGrow_Deterministic(t *testing.T) {
	first := runRanks(t, Grow[int64]{}, pathSummaries(2))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, runRanks(t, Grow[int64]{}, pathSummaries(2)))
	}
}
