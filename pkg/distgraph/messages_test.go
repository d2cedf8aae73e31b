package distgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/distgraph/pkg/adjacency"
	"github.com/ritzau/distgraph/pkg/partition"
	"github.com/ritzau/distgraph/pkg/wire"
)

func TestGhostMessages(t *testing.T) {
	reqs := []GhostRequest[int64]{{ID: 4, RequestingRank: 0}, {ID: 9, RequestingRank: 0}}
	gotReqs, err := DecodeGhostRequests(wire.Int64, EncodeGhostRequests(wire.Int64, reqs))
	require.NoError(t, err)
	assert.Equal(t, reqs, gotReqs)

	resps := []GhostResponse[int64]{
		{ID: 4, Found: true, Neighbors: []int64{3, 5}},
		{ID: 9, Found: false, Neighbors: []int64{}},
	}
	b := EncodeGhostResponses(wire.Int64, resps)
	gotResps, err := DecodeGhostResponses(wire.Int64, b)
	require.NoError(t, err)
	assert.Equal(t, resps, gotResps)

	_, err = DecodeGhostResponses(wire.Int64, b[:len(b)-1])
	assert.ErrorIs(t, err, wire.ErrTruncated)
	_, err = DecodeGhostRequests(wire.Int64, append(EncodeGhostRequests(wire.Int64, reqs), 1))
	assert.ErrorIs(t, err, wire.ErrTrailing)
}

func TestEmptyBatchesAreCountPrefixed(t *testing.T) {
	assert.Equal(t, []byte{0}, EncodeGhostRequests[int64](wire.Int64, nil))
	assert.Equal(t, []byte{0}, EncodeGhostResponses[int64](wire.Int64, nil))
}

func TestNodeRecords(t *testing.T) {
	recs := []nodeRecord[int64]{
		{ID: 1, Neighbors: []ownerRecord[int64]{{ID: 2, Owner: 0}, {ID: 7, Owner: 3}}},
		{ID: 2, Neighbors: []ownerRecord[int64]{}},
	}
	got, err := decodeNodes(wire.Int64, encodeNodes(wire.Int64, recs))
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestHome(t *testing.T) {
	for _, size := range []int{1, 2, 7} {
		for id := int64(-50); id < 50; id++ {
			h := home(wire.Int64, id, size)
			assert.GreaterOrEqual(t, h, 0)
			assert.Less(t, h, size)
			assert.Equal(t, h, home(wire.Int64, id, size))
		}
	}
}

func TestVoteCodes(t *testing.T) {
	for code, sentinel := range voteCodes[1:] {
		wrapped := errors.Join(errors.New("context"), sentinel)
		assert.Equal(t, code+1, codeOf(wrapped))
		assert.ErrorIs(t, sentinelOf(code+1), sentinel)
	}
	assert.Equal(t, 0, codeOf(nil))
	assert.Equal(t, codeOf(ErrPeerFailed), codeOf(errors.New("transport")))
	assert.ErrorIs(t, sentinelOf(99), ErrPeerFailed)
}

func TestBuildError(t *testing.T) {
	err := error(&BuildError[int64]{
		Phase: "directory",
		Rank:  2,
		IDs:   []int64{99},
		Err:   &peerError{sentinel: adjacency.ErrNodeMissing, msg: "adjacency: node missing: 99"},
	})
	assert.ErrorIs(t, err, adjacency.ErrNodeMissing)
	assert.NotErrorIs(t, err, partition.ErrNoResult)
	assert.Equal(t, "distgraph: directory failed on rank 2: adjacency: node missing: 99 (ids [99])", err.Error())
}
