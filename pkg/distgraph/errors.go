package distgraph

import (
	"errors"
	"fmt"

	"github.com/ritzau/distgraph/pkg/adjacency"
	"github.com/ritzau/distgraph/pkg/partition"
)

var (
	// ErrFinalized indicates a mutation after Finalize.
	ErrFinalized = errors.New("distgraph: graph finalized")

	// ErrUnfinalized indicates a query before Finalize.
	ErrUnfinalized = errors.New("distgraph: graph not finalized")

	// ErrNoLocalNodes indicates Finalize on a rank with no claimed nodes.
	ErrNoLocalNodes = errors.New("distgraph: no local nodes")

	// ErrNodeClaimMismatch indicates conflicting owners for the same node.
	ErrNodeClaimMismatch = errors.New("distgraph: node claim mismatch")

	// ErrInvalidRank indicates a requested owner outside [0, Size()).
	ErrInvalidRank = errors.New("distgraph: invalid rank")

	// ErrInvalidWeight indicates a non-positive node weight.
	ErrInvalidWeight = errors.New("distgraph: invalid node weight")

	// ErrPeerFailed indicates a peer failed with an error that has no
	// portable sentinel, such as a transport or decode failure.
	ErrPeerFailed = errors.New("distgraph: peer failed")
)

// BuildError describes a failed Finalize. Rank is the rank that detected the
// failure and IDs are the offending node identifiers, if any. Every rank
// returns a BuildError wrapping the same sentinel.
type BuildError[T any] struct {
	Phase string
	Rank  int
	IDs   []T
	Err   error
}

func (e *BuildError[T]) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("distgraph: %s failed on rank %d: %v (ids %v)", e.Phase, e.Rank, e.Err, e.IDs)
	}
	return fmt.Sprintf("distgraph: %s failed on rank %d: %v", e.Phase, e.Rank, e.Err)
}

func (e *BuildError[T]) Unwrap() error { return e.Err }

// voteCodes orders the sentinels that travel between ranks. Code 0 means
// success; errors matching none of these travel as ErrPeerFailed.
var voteCodes = []error{
	nil,
	ErrNoLocalNodes,
	ErrNodeClaimMismatch,
	adjacency.ErrNodeMissing,
	partition.ErrNoResult,
	partition.ErrUndersizedArray,
	partition.ErrOversizedArray,
	partition.ErrInvalidTarget,
	partition.ErrInvalidPartsCount,
	ErrPeerFailed,
}

func codeOf(err error) int {
	if err == nil {
		return 0
	}
	for code, sentinel := range voteCodes[1:] {
		if errors.Is(err, sentinel) {
			return code + 1
		}
	}
	return len(voteCodes) - 1
}

func sentinelOf(code int) error {
	if code <= 0 || code >= len(voteCodes) {
		return ErrPeerFailed
	}
	return voteCodes[code]
}
