// package resolver schedules track resolution against a catalog.
//
// The core abstraction is Engine, which fans a batch of queries out over a
// fixed worker pool, retries transient catalog failures through a backoff
// policy, and reports outcomes either as an ordered slice (Resolve) or as a
// live event stream (ResolveStream) for CLI/UI layers.
package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"resolvd/internal/backoff"
	"resolvd/internal/match"
	"resolvd/internal/services"
	"resolvd/internal/shared"
)

// Worker pool bounds.
const (
	DefaultNumWorkers = 5
	MaxNumWorkers     = 10
)

// Query is a single track to resolve. Index is assigned by the engine from
// the query's position in the batch.
type Query struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// MatchResult is the outcome of resolving one query.
//
// Track is nil when no candidate cleared the threshold (a valid outcome) and
// when the query failed; Err distinguishes the two.
type MatchResult struct {
	Query Query                  `json:"query"`
	Track *services.CatalogTrack `json:"track,omitempty"`
	Err   error                  `json:"-"`
}

// Matched reports whether the query resolved to a track.
func (r MatchResult) Matched() bool {
	return r.Err == nil && r.Track != nil
}

// TrackFinder searches the catalog for a single track.
// Implemented by services.SpotifyCatalog.
type TrackFinder interface {
	FindTrack(ctx context.Context, title, artist string, threshold float64) (*services.CatalogTrack, error)
}

// Cache stores resolved matches keyed by query. A nil track with a nil error
// is a miss. Implemented by repositories.MatchCache.
type Cache interface {
	Get(title, artist string) (*services.CatalogTrack, error)
	Put(title, artist string, track services.CatalogTrack) error
}

// Opts contains per-run configuration.
type Opts struct {
	NumWorkers     int     // Concurrent workers (default: 5, capped at 10)
	Threshold      float64 // Similarity threshold (default: match.DefaultThreshold)
	RequestsPerSec float64 // Outbound request pacing, 0 disables
}

func (o Opts) normalized() Opts {
	if o.NumWorkers <= 0 {
		o.NumWorkers = DefaultNumWorkers
	}
	if o.NumWorkers > MaxNumWorkers {
		o.NumWorkers = MaxNumWorkers
	}
	if o.Threshold <= 0 {
		o.Threshold = match.DefaultThreshold
	}
	return o
}

// Engine resolves batches of queries against a catalog.
type Engine struct {
	finder TrackFinder
	policy *backoff.Policy
	cache  Cache
	logger *log.Logger
}

// NewEngine creates an Engine. The cache is optional; pass nil to resolve
// every query against the catalog.
func NewEngine(finder TrackFinder, policy *backoff.Policy, cache Cache, logger *log.Logger) *Engine {
	if policy == nil {
		policy = backoff.NewPolicy(backoff.DefaultConfig())
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		finder: finder,
		policy: policy,
		cache:  cache,
		logger: logger,
	}
}

// Resolve resolves all queries concurrently and returns one result per query,
// ordered by batch position.
//
// A client-classified failure marks only its own slot; siblings continue. An
// auth failure cancels the remaining work and is returned alongside the
// partial results. On context cancellation no new queries are dequeued,
// in-flight attempts finish, and the completed results are returned with the
// context's error.
func (e *Engine) Resolve(ctx context.Context, queries []Query, opts Opts) ([]MatchResult, error) {
	if e.finder == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	opts = opts.normalized()

	qs := make([]Query, len(queries))
	copy(qs, queries)
	results := make([]MatchResult, len(qs))
	for i := range qs {
		qs[i].Index = i
		results[i] = MatchResult{Query: qs[i]}
	}

	if len(qs) == 0 {
		return results, nil
	}

	runID := shared.GenerateID()
	logger := e.logger.With("run", runID)
	logger.Info("resolving batch", "queries", len(qs), "workers", opts.NumWorkers)

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

	var fatal error
	completed := make([]bool, len(qs))
	matched := 0

	for res := range outcomes {
		completed[res.Query.Index] = true
		results[res.Query.Index] = res

		if res.Matched() {
			matched++
		}
		if res.Err != nil {
			if cerr, ok := services.AsCatalogError(res.Err); ok && cerr.Kind == services.KindAuth && fatal == nil {
				fatal = res.Err
				cancel()
			}
		}
	}

	if err := ctx.Err(); err != nil {
		for i := range results {
			if !completed[i] {
				results[i].Err = err
			}
		}
	}

	logger.Info("batch finished", "matched", matched, "total", len(qs))

	if fatal != nil {
		return results, fatal
	}
	if err := parent.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// worker resolves queries from the jobs channel until it closes or the
// context is cancelled.
func (e *Engine) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan Query,
	outcomes chan<- MatchResult,
	limiter *rate.Limiter,
	threshold float64,
) {
	defer wg.Done()

	for q := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		track, err := e.resolveOne(ctx, q, limiter, threshold)
		outcomes <- MatchResult{Query: q, Track: track, Err: err}
	}
}

// resolveOne resolves a single query: cache lookup, then catalog search with
// a backoff-driven retry loop. Cache errors never fail the resolution.
func (e *Engine) resolveOne(ctx context.Context, q Query, limiter *rate.Limiter, threshold float64) (*services.CatalogTrack, error) {
	if e.cache != nil {
		if track, err := e.cache.Get(q.Title, q.Artist); err == nil && track != nil {
			e.logger.Debug("cache hit", "title", q.Title, "artist", q.Artist)
			return track, nil
		}
	}

	attempt := 0
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		track, err := e.finder.FindTrack(ctx, q.Title, q.Artist, threshold)
		if err == nil {
			if track != nil && e.cache != nil {
				if cerr := e.cache.Put(q.Title, q.Artist, *track); cerr != nil {
					e.logger.Warn("failed to cache match", "title", q.Title, "error", cerr)
				}
			}
			return track, nil
		}

		attempt++
		decision := e.policy.Decide(attempt, err)
		if !decision.Retry {
			return nil, err
		}

		e.logger.Warn("search failed, retrying",
			"title", q.Title,
			"artist", q.Artist,
			"attempt", attempt,
			"delay", decision.Delay,
			"error", err,
		)
		if err := backoff.Sleep(ctx, decision.Delay); err != nil {
			return nil, err
		}
	}
}
