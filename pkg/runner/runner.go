// Package runner drives one complete distributed build: it loads the claims
// of every rank into a builder, finalizes all ranks concurrently over an
// in-process world and summarizes the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/distgraph/pkg/comm"
	"github.com/ritzau/distgraph/pkg/distgraph"
	"github.com/ritzau/distgraph/pkg/logging"
	"github.com/ritzau/distgraph/pkg/model"
	"github.com/ritzau/distgraph/pkg/partition"
	"github.com/ritzau/distgraph/pkg/pubsub"
	"github.com/ritzau/distgraph/pkg/wire"
)

// ErrNoRanks is returned for an input without fragments.
var ErrNoRanks = errors.New("runner: input has no ranks")

// DefaultTimeout bounds a single receive during finalization.
const DefaultTimeout = 30 * time.Second

const totalSteps = 3

// Options configures one run.
type Options struct {
	Partitioner string        // partition.ByName name; empty keeps claimed owners
	Directed    bool          // store edges directed
	Timeout     time.Duration // per-receive watchdog; zero uses DefaultTimeout
	SlowPhase   time.Duration // warn about finalize phases slower than this; zero disables
	Reason      string        // e.g. "initial build", "input changed"
}

// Result is the outcome of a run. Graphs is indexed by rank and is nil
// when the run failed.
type Result struct {
	Report *model.RunReport
	Graphs []*distgraph.Graph[int64]
}

// Runner executes builds one at a time and keeps the last result.
type Runner struct {
	publisher pubsub.Publisher
	mu        sync.Mutex // serializes runs
	lastMu    sync.RWMutex
	last      *Result
}

// New creates a runner. publisher may be nil.
func New(publisher pubsub.Publisher) *Runner {
	return &Runner{publisher: publisher}
}

// SetPublisher replaces the status publisher. It waits for a running
// build to finish.
func (r *Runner) SetPublisher(publisher pubsub.Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = publisher
}

// Last returns the result of the most recent run, or nil.
func (r *Runner) Last() *Result {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last
}

// Run builds the distributed graph described by in. A failed finalization
// is not an error of Run: it is recorded in the report. Run returns an error
// only when the build could not be attempted.
func (r *Runner) Run(ctx context.Context, in *model.Input, opts Options) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	start := time.Now()

	logging.InfoContext(ctx, "starting build", "reason", opts.Reason, "source", in.Source, "ranks", in.Ranks())
	r.publish(runID, "loading", fmt.Sprintf("Loading %d fragments...", in.Ranks()), 1)

	if in.Ranks() == 0 {
		r.publish(runID, "error", ErrNoRanks.Error(), 1)
		return nil, ErrNoRanks
	}
	if _, err := partition.ByName[int64](opts.Partitioner); err != nil {
		r.publish(runID, "error", err.Error(), 1)
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	world, err := comm.NewWorld(in.Ranks(), comm.WithRecvTimeout(timeout))
	if err != nil {
		return nil, err
	}

	builders, err := r.load(world, in, opts)
	if err != nil {
		r.publish(runID, "error", err.Error(), 1)
		return nil, err
	}
	defer func() {
		for _, b := range builders {
			_ = b.Close()
		}
	}()

	r.publish(runID, "finalizing", fmt.Sprintf("Finalizing %d ranks...", len(builders)), 2)
	graphs, buildErr := finalize(ctx, builders)

	report := &model.RunReport{
		RunID:       runID,
		Source:      in.Source,
		Partitioner: partitionerName(opts.Partitioner),
		Directed:    opts.Directed,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	result := &Result{Report: report}

	if buildErr != nil {
		report.Error = buildErr.Error()
		var be *distgraph.BuildError[int64]
		if errors.As(buildErr, &be) {
			rank := be.Rank
			report.FailedRank = &rank
			report.FailedIDs = be.IDs
		}
		logging.ErrorContext(ctx, "build failed", "error", buildErr, "durationMs", report.DurationMs)
		r.publish(runID, "error", report.Error, totalSteps)
	} else {
		result.Graphs = graphs
		for _, g := range graphs {
			report.Ranks = append(report.Ranks, RankReport(g))
		}
		report.SortRanks()
		logging.InfoContext(ctx, "build complete",
			"owned", report.TotalOwned(),
			"durationMs", report.DurationMs,
		)
		r.publish(runID, "ready", fmt.Sprintf("Built %d nodes over %d ranks", report.TotalOwned(), len(graphs)), totalSteps)
	}

	r.lastMu.Lock()
	r.last = result
	r.lastMu.Unlock()
	return result, nil
}

// load creates one builder per rank and applies that rank's fragment.
func (r *Runner) load(world *comm.World, in *model.Input, opts Options) ([]*distgraph.Builder[int64], error) {
	builders := make([]*distgraph.Builder[int64], 0, in.Ranks())
	fail := func(err error) ([]*distgraph.Builder[int64], error) {
		for _, b := range builders {
			_ = b.Close()
		}
		return nil, err
	}

	for rank, frag := range in.Fragments {
		c, err := world.Comm(rank)
		if err != nil {
			return fail(err)
		}
		p, err := partition.ByName[int64](opts.Partitioner)
		if err != nil {
			return fail(err)
		}
		b, err := distgraph.NewBuilder(c, wire.Int64,
			distgraph.WithDirected(opts.Directed),
			distgraph.WithPartitioner(p),
			distgraph.WithSlowPhaseWarning(opts.SlowPhase),
		)
		_ = c.Close()
		if err != nil {
			return fail(err)
		}
		builders = append(builders, b)

		if err := apply(b, frag); err != nil {
			return fail(fmt.Errorf("rank %d: %w", rank, err))
		}
	}
	return builders, nil
}

// apply claims a fragment's nodes before its edges.
func apply(b *distgraph.Builder[int64], frag *model.Fragment) error {
	for _, n := range frag.Nodes {
		if err := b.ClaimNode(n.ID, n.Owner); err != nil {
			return err
		}
		if n.Weight > 0 {
			if err := b.SetNodeWeight(n.ID, n.Weight); err != nil {
				return err
			}
		}
	}
	for _, e := range frag.Edges {
		if err := b.ClaimEdge(e.From, e.To); err != nil {
			return err
		}
	}
	return nil
}

// finalize runs Finalize on every rank concurrently. Ranks are not
// cancelled on a peer's failure: the build protocol reports failures to
// every rank itself.
func finalize(ctx context.Context, builders []*distgraph.Builder[int64]) ([]*distgraph.Graph[int64], error) {
	graphs := make([]*distgraph.Graph[int64], len(builders))
	errs := make([]error, len(builders))
	var g errgroup.Group
	for i, b := range builders {
		g.Go(func() error {
			graphs[i], errs[i] = b.Finalize(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if err := pickError(errs); err != nil {
		return nil, err
	}
	return graphs, nil
}

// pickError chooses the error to report from the per-rank results of
// Finalize, indexed by rank. Every rank reports the same failure; the error
// returned by the rank that detected it wins over a peer's copy. An error
// that is not a build failure wins over both.
func pickError(errs []error) error {
	var local, peer error
	for rank, err := range errs {
		if err == nil {
			continue
		}
		var be *distgraph.BuildError[int64]
		switch {
		case !errors.As(err, &be):
			return err
		case be.Rank == rank && local == nil:
			local = err
		case peer == nil:
			peer = err
		}
	}
	if local != nil {
		return local
	}
	return peer
}

func (r *Runner) publish(runID, state, message string, step int) {
	if r.publisher == nil {
		return
	}
	status := pubsub.BuildStatus{
		RunID:   runID,
		State:   state,
		Message: message,
		Step:    step,
		Total:   totalSteps,
	}
	if err := r.publisher.Publish(pubsub.TopicBuildStatus, state, status); err != nil {
		logging.Warn("failed to publish build status", "state", state, "error", err)
	}
}

func partitionerName(name string) string {
	if name == "" {
		return "claim"
	}
	return name
}

// RankReport summarizes a finalized rank.
func RankReport(g *distgraph.Graph[int64]) model.RankReport {
	return model.RankReport{
		Rank:     g.Rank(),
		Owned:    g.OwnedCount(),
		Ghosts:   g.GhostCount(),
		Edges:    g.EdgeCount(),
		OwnedIDs: g.Owned(),
		GhostIDs: g.Ghosts(),
	}
}

// NodeView describes id as seen from g.
func NodeView(g *distgraph.Graph[int64], id int64) (model.NodeView, error) {
	idx, err := g.LocalIndexOf(id)
	if err != nil {
		return model.NodeView{}, err
	}
	owner, err := g.OwnerRank(id)
	if err != nil {
		return model.NodeView{}, err
	}
	nbrs, err := g.Neighbors(id)
	if err != nil {
		return model.NodeView{}, err
	}
	return model.NodeView{
		ID:         id,
		LocalIndex: idx,
		Owner:      owner,
		Ghost:      g.IsLocalGhost(id),
		Neighbors:  nbrs,
	}, nil
}
