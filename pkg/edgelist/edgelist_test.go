package edgelist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/distgraph/pkg/model"
)

const twoRanks = `
# boundary between 3 and 4
rank 0
node 1 0
node 2 0
node 3 0 2.5
edge 1 2
edge 2 3
edge 3 4   # remote target

rank 1
node 4 1
node 5 1
edge 4 5
`

func TestParse(t *testing.T) {
	in, err := Parse(strings.NewReader(twoRanks))
	require.NoError(t, err)
	require.Equal(t, 2, in.Ranks())

	f0 := in.Fragments[0]
	assert.Equal(t, 0, f0.Rank)
	assert.Equal(t, []model.NodeClaim{{ID: 1, Owner: 0}, {ID: 2, Owner: 0}, {ID: 3, Owner: 0, Weight: 2.5}}, f0.Nodes)
	assert.Equal(t, []model.EdgeClaim{{From: 1, To: 2}, {From: 2, To: 3}, {From: 3, To: 4}}, f0.Edges)

	f1 := in.Fragments[1]
	assert.Len(t, f1.Nodes, 2)
	assert.Equal(t, []model.EdgeClaim{{From: 4, To: 5}}, f1.Edges)
}

func TestParse_MissingRankGetsEmptyFragment(t *testing.T) {
	in, err := Parse(strings.NewReader("rank 2\nnode 1 2\n"))
	require.NoError(t, err)
	require.Equal(t, 3, in.Ranks())
	assert.Empty(t, in.Fragments[0].Nodes)
	assert.Equal(t, 1, in.Fragments[1].Rank)
}

func TestParse_RepeatedRankAppends(t *testing.T) {
	in, err := Parse(strings.NewReader("rank 0\nnode 1 0\nrank 1\nnode 2 1\nrank 0\nnode 3 0\n"))
	require.NoError(t, err)
	assert.Len(t, in.Fragments[0].Nodes, 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"node before rank", "node 1 0\n", "line 1"},
		{"unknown directive", "rank 0\nvertex 1\n", "line 2"},
		{"bad id", "rank 0\nnode x 0\n", "line 2"},
		{"bad weight", "rank 0\nnode 1 0 -1\n", "line 2"},
		{"short edge", "rank 0\nnode 1 0\nedge 1\n", "line 3"},
		{"bad rank", "rank -1\n", "line 1"},
		{"rank over limit", "rank 65536\n", "line 1"},
		{"rank overflows int", "rank 4611686018427387903\n", "line 1"},
		{"late huge rank", "rank 0\nnode 1 0\nrank 99999999999\n", "line 3"},
		{"empty", "# nothing\n", "no rank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.ErrorIs(t, err, ErrSyntax)
			assert.Contains(t, err.Error(), tt.line)
		})
	}
}

func TestParse_HighestAllowedRank(t *testing.T) {
	in, err := Parse(strings.NewReader("rank 65535\nnode 1 65535\n"))
	require.NoError(t, err)
	assert.Equal(t, MaxRanks, in.Ranks())
	assert.Len(t, in.Fragments[MaxRanks-1].Nodes, 1)
}

func TestWriteParseRoundTrip(t *testing.T) {
	in, err := Parse(strings.NewReader(twoRanks))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	again, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, in.Fragments, again.Fragments)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.txt")
	require.NoError(t, os.WriteFile(path, []byte(twoRanks), 0o644))

	in, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, in.Source)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
