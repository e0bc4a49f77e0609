package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/quotawatch/quotawatch/pkg/lkg"
	"github.com/quotawatch/quotawatch/pkg/model"
)

// Reader fetches quota snapshots for a named series.
type Reader interface {
	// FetchDetails reads the fullest snapshot available.
	FetchDetails(ctx context.Context, name, token string) (model.Snapshot, error)
	// FetchRemaining is the cheaper remaining-only variant.
	FetchRemaining(ctx context.Context, name, token string) (float64, error)
}

// Resolver resolves the access token for a series. A second Resolve
// call after Invalidate is expected to retry the full precedence.
type Resolver interface {
	Resolve(ctx context.Context, name string) (token string, ok bool)
	Invalidate(name string)
}

// Result is one poll's assembled view over all tracked series.
type Result struct {
	// Details holds the displayed snapshot per series. Missing series
	// keep their zero/implausible value.
	Details map[string]model.Snapshot
	// Stale marks series whose value came from the last-known-good
	// cache rather than this poll.
	Stale map[string]bool
	// Missing marks series with neither a current nor a fresh cached
	// value.
	Missing map[string]bool
}

// DecisionOK reports whether the threshold engine may act on the
// primary series this poll.
func (r Result) DecisionOK(primary string) bool {
	return model.IsPlausible(r.Details[primary]) || r.Stale[primary]
}

// Aggregator assembles the per-poll snapshot map for all tracked
// series, masking transient bad reads through the LKG cache.
type Aggregator struct {
	reader   Reader
	resolver Resolver
	cache    *lkg.Cache
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewAggregator creates an aggregator. maxAge bounds how old an LKG
// fallback may be (the cache TTL when zero).
func NewAggregator(reader Reader, resolver Resolver, cache *lkg.Cache, maxAge time.Duration, logger *slog.Logger) *Aggregator {
	if maxAge <= 0 {
		maxAge = cache.TTL()
	}
	return &Aggregator{
		reader:   reader,
		resolver: resolver,
		cache:    cache,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Collect resolves every series through fresh read, partial read,
// LKG fallback, then missing. Series still missing after the main
// pass get a single token re-resolution retry to absorb transient
// upstream listing failures.
func (a *Aggregator) Collect(ctx context.Context, series []string) Result {
	res := Result{
		Details: make(map[string]model.Snapshot, len(series)),
		Stale:   make(map[string]bool),
		Missing: make(map[string]bool),
	}

	for _, name := range series {
		a.collectOne(ctx, name, &res)
	}

	// Retry pass: one extra token resolution for anything missing.
	for _, name := range series {
		if !res.Missing[name] {
			continue
		}
		a.resolver.Invalidate(name)
		a.collectOne(ctx, name, &res)
	}

	return res
}

func (a *Aggregator) collectOne(ctx context.Context, name string, res *Result) {
	res.Stale[name] = false
	res.Missing[name] = false

	token, ok := a.resolver.Resolve(ctx, name)
	if !ok {
		// No identifier, no read.
		res.Details[name] = model.Snapshot{Name: name}
		res.Missing[name] = true
		return
	}

	snap, err := a.reader.FetchDetails(ctx, name, token)
	if err != nil {
		a.logger.Debug("details read failed", "series", name, "error", err)
	}
	if err == nil && model.IsPlausible(snap) {
		a.cache.Remember(name, snap)
		res.Details[name] = snap
		return
	}

	// Cheaper partial read to at least fill remaining.
	if rem, err := a.reader.FetchRemaining(ctx, name, token); err == nil {
		partial := model.Snapshot{Name: name, Remaining: rem, Timestamp: time.Now()}
		if model.IsPlausible(partial) {
			a.cache.Remember(name, partial)
			res.Details[name] = partial
			return
		}
	} else {
		a.logger.Debug("remaining read failed", "series", name, "error", err)
	}

	// Fall back to the last known good value while it is fresh.
	if cached, ok := a.cache.GetIfFresh(name, a.maxAge); ok {
		res.Details[name] = cached
		res.Stale[name] = true
		return
	}

	res.Details[name] = snap
	res.Missing[name] = true
}
