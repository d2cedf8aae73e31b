package comm

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// World is an in-process process group. Each rank is driven by its own
// goroutine through the Communicator returned by Comm.
type World struct {
	size    int
	timeout time.Duration

	mu    sync.Mutex
	boxes map[boxKey]*mailbox
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithRecvTimeout sets the watchdog applied to every Recv. Zero disables it.
func WithRecvTimeout(d time.Duration) WorldOption {
	return func(w *World) { w.timeout = d }
}

type boxKey struct {
	space string
	src   int
	dst   int
	tag   Tag
}

type mailbox struct {
	mu     sync.Mutex
	queue  [][]byte
	notify chan struct{}
}

// NewWorld creates a world of size ranks.
func NewWorld(size int, opts ...WorldOption) (*World, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: world size %d", ErrInvalidRank, size)
	}
	w := &World{
		size:  size,
		boxes: make(map[boxKey]*mailbox),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Size returns the number of ranks.
func (w *World) Size() int { return w.size }

// Comm returns the root communicator for rank.
func (w *World) Comm(rank int) (Communicator, error) {
	if rank < 0 || rank >= w.size {
		return nil, fmt.Errorf("%w: %d (size %d)", ErrInvalidRank, rank, w.size)
	}
	return &local{world: w, rank: rank, space: "world"}, nil
}

func (w *World) box(k boxKey) *mailbox {
	w.mu.Lock()
	defer w.mu.Unlock()
	mb, ok := w.boxes[k]
	if !ok {
		mb = &mailbox{notify: make(chan struct{}, 1)}
		w.boxes[k] = mb
	}
	return mb
}

func (w *World) release(space string, dst int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k := range w.boxes {
		if k.space == space && k.dst == dst {
			delete(w.boxes, k)
		}
	}
}

type local struct {
	world  *World
	rank   int
	space  string
	dups   int
	closed atomic.Bool
}

func (c *local) Rank() int { return c.rank }

func (c *local) Size() int { return c.world.size }

func (c *local) check(peer int) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if peer < 0 || peer >= c.world.size {
		return fmt.Errorf("%w: %d (size %d)", ErrInvalidRank, peer, c.world.size)
	}
	return nil
}

func (c *local) Send(ctx context.Context, dst int, tag Tag, payload []byte) error {
	if err := c.check(dst); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := make([]byte, len(payload))
	copy(msg, payload)

	mb := c.world.box(boxKey{space: c.space, src: c.rank, dst: dst, tag: tag})
	mb.mu.Lock()
	mb.queue = append(mb.queue, msg)
	mb.mu.Unlock()

	select {
	case mb.notify <- struct{}{}:
	default:
	}
	return nil
}

func (c *local) Recv(ctx context.Context, src int, tag Tag) ([]byte, error) {
	if err := c.check(src); err != nil {
		return nil, err
	}

	var watchdog <-chan time.Time
	if c.world.timeout > 0 {
		t := time.NewTimer(c.world.timeout)
		defer t.Stop()
		watchdog = t.C
	}

	mb := c.world.box(boxKey{space: c.space, src: src, dst: c.rank, tag: tag})
	for {
		mb.mu.Lock()
		if len(mb.queue) > 0 {
			msg := mb.queue[0]
			mb.queue[0] = nil
			mb.queue = mb.queue[1:]
			mb.mu.Unlock()
			return msg, nil
		}
		mb.mu.Unlock()

		select {
		case <-mb.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-watchdog:
			return nil, fmt.Errorf("%w: rank %d waiting on rank %d tag %d after %s",
				ErrTimeout, c.rank, src, tag, c.world.timeout)
		}
	}
}

func (c *local) Dup() (Communicator, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.dups++
	return &local{
		world: c.world,
		rank:  c.rank,
		space: c.space + "/" + strconv.Itoa(c.dups),
	}, nil
}

func (c *local) Close() error {
	if c.closed.Swap(true) {
		return ErrClosed
	}
	c.world.release(c.space, c.rank)
	return nil
}
