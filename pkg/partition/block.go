package partition

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/ritzau/distgraph/pkg/comm"
	"github.com/ritzau/distgraph/pkg/wire"
)

const tagBlockIDs = TagBase + 1

// Block is the naive partitioner: every rank learns the full id set, sorts
// it, and cuts it into Parts contiguous blocks of near-equal size.
type Block[T cmp.Ordered] struct{}

func (Block[T]) Name() string { return "block" }

func (Block[T]) Partition(ctx context.Context, c comm.Communicator, s *Summary[T]) ([]int, error) {
	in, err := comm.AllGather(ctx, c, tagBlockIDs, wire.EncodeIDs(s.Codec, s.Nodes))
	if err != nil {
		return nil, fmt.Errorf("block: gather ids: %w", err)
	}

	var all []T
	for rank, payload := range in {
		ids, err := wire.DecodeIDs(s.Codec, payload)
		if err != nil {
			return nil, fmt.Errorf("block: ids from rank %d: %w", rank, err)
		}
		all = append(all, ids...)
	}
	slices.Sort(all)
	all = slices.Compact(all)

	out := make([]int, len(s.Nodes))
	for i, id := range s.Nodes {
		pos, _ := slices.BinarySearch(all, id)
		out[i] = pos * s.Parts / len(all)
	}
	return out, nil
}
