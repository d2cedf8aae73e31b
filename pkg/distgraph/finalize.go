package distgraph

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ritzau/distgraph/pkg/comm"
	"github.com/ritzau/distgraph/pkg/logging"
	"github.com/ritzau/distgraph/pkg/partition"
	"github.com/ritzau/distgraph/pkg/wire"
)

// Finalize collectively builds the distributed graph. Every rank of the
// builder's communicator must call Finalize. On error the builder is
// unchanged and still Open.
func (b *Builder[T]) Finalize(ctx context.Context) (*Graph[T], error) {
	if b.state != Open {
		return nil, ErrFinalized
	}

	f := &finalizer[T]{
		ctx:   ctx,
		b:     b,
		c:     b.comm,
		codec: b.codec,
		rank:  b.comm.Rank(),
		size:  b.comm.Size(),
		log:   b.log.With(logging.ContextAttrs(ctx)...),
	}

	phases := []struct {
		name string
		run  func() error
	}{
		{"precheck", f.precheck},
		{"reconcile", f.reconcile},
		{"partition", f.partition},
		{"directory", f.directory},
		{"redistribute", f.redistribute},
		{"ghost exchange", f.exchangeGhosts},
		{"commit", f.commit},
	}

	start := time.Now()
	for i, p := range phases {
		f.phase = p.name
		t := time.Now()
		if err := p.run(); err != nil {
			f.log.DebugContext(ctx, fmt.Sprintf("[%d/%d] %s failed", i+1, len(phases), p.name), "error", err)
			return nil, err
		}
		elapsed := time.Since(t)
		f.log.DebugContext(ctx, fmt.Sprintf("[%d/%d] %s", i+1, len(phases), p.name),
			"durationMs", elapsed.Milliseconds())
		if b.opts.slowPhase > 0 && elapsed > b.opts.slowPhase {
			f.log.WarnContext(ctx, "slow finalize phase", "phase", p.name, "durationMs", elapsed.Milliseconds())
		}
	}

	b.graph = f.graph
	b.state = Finalized
	f.log.DebugContext(ctx, "finalized",
		"owned", f.graph.OwnedCount(),
		"ghosts", f.graph.GhostCount(),
		"edges", f.graph.EdgeCount(),
		"durationMs", time.Since(start).Milliseconds(),
	)
	return f.graph, nil
}

// finalizer holds the intermediate state of one Finalize call. Nothing in
// it is visible through the builder until commit succeeds on every rank.
type finalizer[T cmp.Ordered] struct {
	ctx   context.Context
	b     *Builder[T]
	c     comm.Communicator
	codec wire.Codec[T]
	rank  int
	size  int
	log   *slog.Logger
	phase string

	claimed    []T             // ascending
	assign     map[T]int       // partitioner target for each claimed node
	dir        map[T]int       // owners of the ids this rank is home for
	owner      map[T]int       // owner of every id in the builder store
	owned      map[T]map[T]int // owned id -> neighbor -> neighbor owner
	ghosts     map[T][]T       // ghost id -> neighbors that are local here
	ghostOwner map[T]int
	graph      *Graph[T]
}

// peerError is a failure reported by another rank. It unwraps to the
// sentinel the peer matched.
type peerError struct {
	sentinel error
	msg      string
}

func (e *peerError) Error() string { return e.msg }
func (e *peerError) Unwrap() error { return e.sentinel }

// vote shares every rank's outcome of the current phase. It returns nil only
// if every rank succeeded; otherwise the local failure, or else the failure
// of the lowest failing rank.
func (f *finalizer[T]) vote(ids []T, local error) error {
	w := wire.NewWriter(16)
	w.Uvarint(uint64(codeOf(local)))
	if local != nil {
		w.String(local.Error())
	} else {
		w.String("")
	}
	wire.PutSlice(w, f.codec, ids)

	in, err := comm.AllGather(f.ctx, f.c, tagVote, w.Bytes())
	if local != nil {
		return &BuildError[T]{Phase: f.phase, Rank: f.rank, IDs: ids, Err: local}
	}
	if err != nil {
		return f.abort(fmt.Errorf("vote: %w", err))
	}

	for rank, payload := range in {
		r := wire.NewReader(payload)
		code, err := r.Uvarint()
		if err != nil {
			return f.abort(fmt.Errorf("%w: vote from rank %d: %v", ErrPeerFailed, rank, err))
		}
		if code == 0 {
			continue
		}
		msg, err := r.String()
		if err != nil {
			return f.abort(fmt.Errorf("%w: vote from rank %d: %v", ErrPeerFailed, rank, err))
		}
		peerIDs, err := wire.GetSlice(r, f.codec)
		if err != nil {
			return f.abort(fmt.Errorf("%w: vote from rank %d: %v", ErrPeerFailed, rank, err))
		}
		return &BuildError[T]{
			Phase: f.phase,
			Rank:  rank,
			IDs:   peerIDs,
			Err:   &peerError{sentinel: sentinelOf(int(code)), msg: msg},
		}
	}
	return nil
}

// abort fails the current phase without a vote. It is used when the
// transport itself failed, which is fatal for every rank.
func (f *finalizer[T]) abort(err error) error {
	return &BuildError[T]{Phase: f.phase, Rank: f.rank, Err: err}
}

func (f *finalizer[T]) precheck() error {
	var err error
	if len(f.b.claims) == 0 {
		err = fmt.Errorf("%w: rank %d", ErrNoLocalNodes, f.rank)
	} else {
		err = partition.CheckParts(f.b.parts, f.size)
	}
	f.claimed = sortedKeys(f.b.claims)
	return f.vote(nil, err)
}

// exchange runs one all-to-all round.
func (f *finalizer[T]) exchange(tag comm.Tag, out [][]byte) ([][]byte, error) {
	in, err := comm.AllToAll(f.ctx, f.c, tag, out)
	if err != nil {
		return nil, f.abort(err)
	}
	return in, nil
}

func joinErr(dst *error, err error) {
	if err != nil {
		*dst = errors.Join(*dst, err)
	}
}
