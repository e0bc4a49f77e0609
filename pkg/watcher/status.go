package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/notify"
)

// StateStore persists per-series status state across restarts.
type StateStore interface {
	Load() map[string]model.SeriesState
	Save(map[string]model.SeriesState)
}

// StatusConfig configures the availability crossing engine.
type StatusConfig struct {
	// Watch lists the service names that get alerts. Everything else
	// is display-only.
	Watch []string
	// Down are the descending degradation thresholds (percent).
	Down []float64
	// Up are the recovery thresholds (percent). Only the highest one
	// gates recovery.
	Up []float64
}

// StatusEngine tracks per-service 24h availability and fires alerts
// on threshold crossings. Unlike the quota engine it persists its
// working state, so a restart does not re-fire crossings already
// alerted on.
type StatusEngine struct {
	cfg     StatusConfig
	down    []float64
	maxDown float64
	maxUp   float64
	watch   map[string]bool
	sink    notify.Sink
	store   StateStore
	logger  *slog.Logger

	prev map[string]model.SeriesState
}

// NewStatusEngine creates an engine seeded from the persisted state.
func NewStatusEngine(cfg StatusConfig, sink notify.Sink, store StateStore, logger *slog.Logger) *StatusEngine {
	down := dedupeSorted(cfg.Down, true)
	up := dedupeSorted(cfg.Up, false)

	maxDown, maxUp := 100.0, 100.0
	if len(down) > 0 {
		maxDown = down[0]
	}
	if len(up) > 0 {
		maxUp = up[len(up)-1]
	}

	watch := make(map[string]bool, len(cfg.Watch))
	for _, w := range cfg.Watch {
		watch[w] = true
	}

	return &StatusEngine{
		cfg:     cfg,
		down:    down,
		maxDown: maxDown,
		maxUp:   maxUp,
		watch:   watch,
		sink:    sink,
		store:   store,
		logger:  logger,
		prev:    store.Load(),
	}
}

// MaxDown returns the most severe down threshold. The state store
// uses it to infer the degraded flag on legacy entries.
func MaxDown(down []float64) float64 {
	if len(down) == 0 {
		return 100.0
	}
	m := down[0]
	for _, t := range down[1:] {
		if t > m {
			m = t
		}
	}
	return m
}

// Observe feeds one poll's {service: percent} readings through the
// crossing rules and persists the resulting state. The returned map
// is the state written, keyed by the services seen this poll.
func (e *StatusEngine) Observe(ctx context.Context, cur map[string]float64) map[string]model.SeriesState {
	next := make(map[string]model.SeriesState, len(cur))

	for name, pct := range cur {
		prev, seen := e.prev[name]
		if !seen {
			// First sighting seeds at the current value, no crossing.
			prev = model.SeriesState{Value: pct}
		}

		entry := model.SeriesState{Value: pct, Degraded: prev.Degraded}

		if e.watch[name] {
			for _, t := range e.down {
				if prev.Value >= t && pct < t {
					e.sink.Notify(ctx,
						"service status degraded",
						fmt.Sprintf("%s 24h availability dropped below %.0f%% (now %.2f%%)", name, t, pct))
					entry.Degraded = true
				}
			}

			// Recovery only on an explicit crossing above the highest
			// up threshold while degraded. Hovering above it without a
			// crossing does not clear the flag.
			if prev.Degraded && prev.Value <= e.maxUp && pct > e.maxUp {
				e.sink.Notify(ctx,
					"service status recovered",
					fmt.Sprintf("%s 24h availability rose above %.0f%% (now %.2f%%)", name, e.maxUp, pct))
				entry.Degraded = false
			}
		}

		next[name] = entry
	}

	e.prev = next
	e.store.Save(next)
	return next
}

// Degraded reports whether a service is currently flagged degraded.
func (e *StatusEngine) Degraded(name string) bool {
	return e.prev[name].Degraded
}

func dedupeSorted(vals []float64, descending bool) []float64 {
	seen := make(map[float64]bool, len(vals))
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if descending {
		sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	} else {
		sort.Float64s(out)
	}
	return out
}
