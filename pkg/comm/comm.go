// Package comm exposes the process-group capability used by the distributed
// graph: a rank, a world size, and point-to-point send/receive of opaque
// byte payloads. Collectives are built on top of those two primitives.
//
// A Communicator is a scoped resource. Dup creates an isolated message space
// (every rank must call Dup in the same order, as with MPI_Comm_dup) and
// Close releases it.
package comm

import (
	"context"
	"errors"
)

// Sentinel errors for communicator operations.
var (
	// ErrClosed indicates use of a communicator after Close.
	ErrClosed = errors.New("comm: communicator closed")

	// ErrTimeout indicates a receive exceeded the transport watchdog.
	ErrTimeout = errors.New("comm: receive timed out")

	// ErrInvalidRank indicates a peer rank outside [0, Size()).
	ErrInvalidRank = errors.New("comm: invalid rank")

	// ErrSizeMismatch indicates a collective was given the wrong number of parts.
	ErrSizeMismatch = errors.New("comm: payload count does not match world size")
)

// Tag separates independent message streams between the same pair of ranks.
type Tag int

// Communicator is the opaque rank/size/send/receive capability.
type Communicator interface {
	// Rank returns this process's rank in [0, Size()).
	Rank() int

	// Size returns the number of ranks.
	Size() int

	// Send delivers payload to dst under tag. Send must not wait for a
	// matching Recv.
	Send(ctx context.Context, dst int, tag Tag, payload []byte) error

	// Recv returns the next payload sent by src under tag, in send order.
	Recv(ctx context.Context, src int, tag Tag) ([]byte, error)

	// Dup returns a communicator over the same ranks with its own message space.
	Dup() (Communicator, error)

	// Close releases the communicator.
	Close() error
}
