// Package partition defines the contract between the distributed graph
// builder and the algorithm that decides which rank owns each node.
//
// A Partitioner is invoked collectively: every rank calls Partition with its
// own Summary and receives the targets for its own nodes. Implementations
// may communicate over the supplied communicator using tags in the range
// [TagBase, TagBase+100).
package partition

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/ritzau/distgraph/pkg/comm"
	"github.com/ritzau/distgraph/pkg/wire"
)

var (
	// ErrNoResult indicates the partitioner produced no assignment.
	ErrNoResult = errors.New("partition: no result")

	// ErrUndersizedArray indicates an assignment shorter than the node list.
	ErrUndersizedArray = errors.New("partition: assignment shorter than node count")

	// ErrOversizedArray indicates an assignment longer than the node list.
	ErrOversizedArray = errors.New("partition: assignment longer than node count")

	// ErrInvalidPartsCount indicates a part count <= 0 or above the world size.
	ErrInvalidPartsCount = errors.New("partition: invalid parts count")

	// ErrInvalidTarget indicates an assigned rank outside [0, parts).
	ErrInvalidTarget = errors.New("partition: target rank out of range")

	// ErrUnknown indicates an unregistered partitioner name.
	ErrUnknown = errors.New("partition: unknown partitioner")
)

// TagBase is the first message tag reserved for partitioners.
const TagBase comm.Tag = 100

// Summary is one rank's view of the graph handed to a Partitioner. Nodes,
// Claims and Neighbors are parallel slices; Nodes is in ascending order.
type Summary[T cmp.Ordered] struct {
	Nodes     []T
	Claims    []int // requested owner of Nodes[i]
	Neighbors [][]T // out-neighbors of Nodes[i]
	Weights   []float64
	Parts     int
	Codec     wire.Codec[T]
}

// Weight returns the weight of Nodes[i], defaulting to 1.
func (s *Summary[T]) Weight(i int) float64 {
	if i < len(s.Weights) && s.Weights[i] > 0 {
		return s.Weights[i]
	}
	return 1
}

// Partitioner assigns every node of a Summary to a target rank. The returned
// slice is parallel to Summary.Nodes.
type Partitioner[T cmp.Ordered] interface {
	Name() string
	Partition(ctx context.Context, c comm.Communicator, s *Summary[T]) ([]int, error)
}

// CheckParts validates a requested part count against the world size.
func CheckParts(parts, size int) error {
	if parts <= 0 || parts > size {
		return fmt.Errorf("%w: %d (world size %d)", ErrInvalidPartsCount, parts, size)
	}
	return nil
}

// Validate checks that assign covers every node of s exactly once with a
// target in [0, Parts). On ErrInvalidTarget the offending node ids are
// returned.
func Validate[T cmp.Ordered](s *Summary[T], assign []int) ([]T, error) {
	if assign == nil && len(s.Nodes) > 0 {
		return nil, ErrNoResult
	}
	if len(assign) < len(s.Nodes) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUndersizedArray, len(assign), len(s.Nodes))
	}
	if len(assign) > len(s.Nodes) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrOversizedArray, len(assign), len(s.Nodes))
	}
	var bad []T
	for i, id := range s.Nodes {
		if assign[i] < 0 || assign[i] >= s.Parts {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return bad, fmt.Errorf("%w: parts %d, ids %v", ErrInvalidTarget, s.Parts, bad)
	}
	return nil, nil
}

// ByName resolves a partitioner by its configuration name.
func ByName[T cmp.Ordered](name string) (Partitioner[T], error) {
	switch name {
	case "", "claim":
		return ByClaim[T]{}, nil
	case "block":
		return Block[T]{}, nil
	case "grow":
		return Grow[T]{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// ByClaim assigns every node to the rank that requested it.
type ByClaim[T cmp.Ordered] struct{}

func (ByClaim[T]) Name() string { return "claim" }

func (ByClaim[T]) Partition(_ context.Context, _ comm.Communicator, s *Summary[T]) ([]int, error) {
	out := make([]int, len(s.Nodes))
	copy(out, s.Claims)
	return out, nil
}

// Func adapts a plain function to a Partitioner.
type Func[T cmp.Ordered] func(ctx context.Context, c comm.Communicator, s *Summary[T]) ([]int, error)

func (Func[T]) Name() string { return "func" }

func (f Func[T]) Partition(ctx context.Context, c comm.Communicator, s *Summary[T]) ([]int, error) {
	return f(ctx, c, s)
}
