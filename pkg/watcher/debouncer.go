package watcher

import (
	"context"
	"time"

	"github.com/ritzau/distgraph/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive rebuilds.
// A batch is emitted after quietPeriod without new events, or maxWait after
// its first event, whichever comes first.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet       <-chan time.Time
		deadline    <-chan time.Time
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	flush := func() {
		quiet, deadline = nil, nil
		if eventCount == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", eventCount)

		// Config first: it can change how the input is built.
		for _, typ := range []ChangeType{ChangeTypeConfig, ChangeTypeInput} {
			if paths := accumulated[typ]; len(paths) > 0 {
				d.output <- ChangeEvent{Type: typ, Paths: paths, Timestamp: time.Now()}
			}
		}
		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			for _, p := range event.Paths {
				accumulated[event.Type] = appendUnique(accumulated[event.Type], p)
			}
			eventCount++

			quiet = time.After(d.quietPeriod)
			if deadline == nil {
				deadline = time.After(d.maxWait)
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
