package resolver

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"resolvd/internal/shared"
)

// EventType enumerates streaming event kinds.
type EventType int

const (
	// EventResult carries one resolved query.
	EventResult EventType = iota
	// EventComplete is the terminal event of a successful run.
	EventComplete
	// EventError is the terminal event of an aborted run.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventResult:
		return "result"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	default:
		return ""
	}
}

// Event is a streaming resolution update.
//
// Result is set for EventResult, MatchRate for EventComplete (percentage of
// queries that resolved to a track), and Err for EventError.
type Event struct {
	Type      EventType    `json:"type"`
	Index     int          `json:"index,omitempty"`
	Result    *MatchResult `json:"result,omitempty"`
	MatchRate float64      `json:"match_rate,omitempty"`
	Err       error        `json:"-"`
}

// ResolveStream resolves all queries concurrently, emitting one result event
// per completed query followed by exactly one terminal event, then closes
// the channel.
//
// Unlike Resolve, any per-query failure aborts the run: remaining work is
// cancelled and the terminal event carries the first failure. The channel is
// buffered for the whole run, so a slow consumer never stalls the workers.
func (e *Engine) ResolveStream(ctx context.Context, queries []Query, opts Opts) <-chan Event {
	events := make(chan Event, len(queries)+1)
	go e.runStream(ctx, queries, opts, events)
	return events
}

func (e *Engine) runStream(ctx context.Context, queries []Query, opts Opts, events chan<- Event) {
	defer close(events)

	if e.finder == nil {
		events <- Event{Type: EventError, Err: fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)}
		return
	}
	opts = opts.normalized()

	if len(queries) == 0 {
		events <- Event{Type: EventComplete, MatchRate: 0}
		return
	}

	qs := make([]Query, len(queries))
	copy(qs, queries)
	for i := range qs {
		qs[i].Index = i
	}

	runID := shared.GenerateID()
	logger := e.logger.With("run", runID)
	logger.Info("streaming batch", "queries", len(qs), "workers", opts.NumWorkers)

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limiter *rate.Limiter
	if opts.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1)
	}

	jobs := make(chan Query, len(qs))
	outcomes := make(chan MatchResult, len(qs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, jobs, outcomes, limiter, opts.Threshold)
	}

	for _, q := range qs {
		jobs <- q
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	matched := 0
	var fatal error

	for res := range outcomes {
		if res.Err != nil {
			if fatal == nil {
				fatal = res.Err
				cancel()
			}
			continue
		}

		if res.Matched() {
			matched++
		}
		r := res
		events <- Event{Type: EventResult, Index: res.Query.Index, Result: &r}
	}

	switch {
	case fatal != nil:
		logger.Error("stream aborted", "error", fatal)
		events <- Event{Type: EventError, Err: fatal}
	case parent.Err() != nil:
		events <- Event{Type: EventError, Err: parent.Err()}
	default:
		logger.Info("stream finished", "matched", matched, "total", len(qs))
		events <- Event{Type: EventComplete, MatchRate: 100 * float64(matched) / float64(len(qs))}
	}
}
