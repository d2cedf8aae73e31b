package comm

import (
	"context"
	"fmt"
)

// AllToAll sends out[p] to every rank p and returns the payloads received
// from every rank, indexed by source. All sends are issued before any receive
// so that a rank never waits on a peer that is itself waiting to send.
func AllToAll(ctx context.Context, c Communicator, tag Tag, out [][]byte) ([][]byte, error) {
	size, rank := c.Size(), c.Rank()
	if len(out) != size {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(out), size)
	}

	for p := 0; p < size; p++ {
		if p == rank {
			continue
		}
		if err := c.Send(ctx, p, tag, out[p]); err != nil {
			return nil, fmt.Errorf("send to rank %d: %w", p, err)
		}
	}

	in := make([][]byte, size)
	in[rank] = out[rank]
	for p := 0; p < size; p++ {
		if p == rank {
			continue
		}
		msg, err := c.Recv(ctx, p, tag)
		if err != nil {
			return nil, fmt.Errorf("recv from rank %d: %w", p, err)
		}
		in[p] = msg
	}
	return in, nil
}

// AllGather sends payload to every rank and returns every rank's payload.
func AllGather(ctx context.Context, c Communicator, tag Tag, payload []byte) ([][]byte, error) {
	out := make([][]byte, c.Size())
	for i := range out {
		out[i] = payload
	}
	return AllToAll(ctx, c, tag, out)
}

// Gather collects every rank's payload at root. Non-root ranks receive nil.
func Gather(ctx context.Context, c Communicator, tag Tag, root int, payload []byte) ([][]byte, error) {
	size, rank := c.Size(), c.Rank()
	if root < 0 || root >= size {
		return nil, fmt.Errorf("%w: root %d", ErrInvalidRank, root)
	}
	if rank != root {
		if err := c.Send(ctx, root, tag, payload); err != nil {
			return nil, fmt.Errorf("send to root %d: %w", root, err)
		}
		return nil, nil
	}

	in := make([][]byte, size)
	in[rank] = payload
	for p := 0; p < size; p++ {
		if p == rank {
			continue
		}
		msg, err := c.Recv(ctx, p, tag)
		if err != nil {
			return nil, fmt.Errorf("recv from rank %d: %w", p, err)
		}
		in[p] = msg
	}
	return in, nil
}

// Scatter delivers parts[p] from root to every rank p. parts is only read on
// root.
func Scatter(ctx context.Context, c Communicator, tag Tag, root int, parts [][]byte) ([]byte, error) {
	size, rank := c.Size(), c.Rank()
	if root < 0 || root >= size {
		return nil, fmt.Errorf("%w: root %d", ErrInvalidRank, root)
	}
	if rank != root {
		msg, err := c.Recv(ctx, root, tag)
		if err != nil {
			return nil, fmt.Errorf("recv from root %d: %w", root, err)
		}
		return msg, nil
	}

	if len(parts) != size {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(parts), size)
	}
	for p := 0; p < size; p++ {
		if p == rank {
			continue
		}
		if err := c.Send(ctx, p, tag, parts[p]); err != nil {
			return nil, fmt.Errorf("send to rank %d: %w", p, err)
		}
	}
	return parts[rank], nil
}

// Broadcast delivers root's payload to every rank.
func Broadcast(ctx context.Context, c Communicator, tag Tag, root int, payload []byte) ([]byte, error) {
	var parts [][]byte
	if c.Rank() == root {
		parts = make([][]byte, c.Size())
		for i := range parts {
			parts[i] = payload
		}
	}
	return Scatter(ctx, c, tag, root, parts)
}
