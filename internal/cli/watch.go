package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/pkg/lkg"
	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/state"
	"github.com/quotawatch/quotawatch/pkg/storage"
	"github.com/quotawatch/quotawatch/pkg/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the quota balance and alert on threshold crossings",
	Long: `Polls the balance of every configured series at a fixed interval.
The primary series drives the two-phase threshold engine; the rest
are recorded for display and history only.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 0, "Polling interval (default from config)")
	watchCmd.Flags().Bool("once", false, "Run a single poll and exit")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if v, _ := cmd.Flags().GetDuration("interval"); v > 0 {
		cfg.Quota.Interval = v
	}
	once, _ := cmd.Flags().GetBool("once")

	defs, err := loadSources(cfg)
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	cache, err := lkg.New(cfg.Quota.LKGTTL)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer cache.Close()

	agg := buildAggregator(cfg, defs, cache, logger)
	states := state.NewStore(cfg.State.QuotaStatePath(), cfg.State.AckPath(),
		watcher.MaxDown(cfg.Status.Down), logger)

	engine := watcher.NewEngine(watcher.EngineConfig{
		Series:        defs.Primary().Name,
		BaseThreshold: cfg.Quota.BaseThreshold,
		Milestones:    cfg.Quota.Milestones,
		NotifyLimit:   cfg.Quota.NotifyLimit,
	}, initSink(cfg, store, logger), initMail(cfg, logger), states, logger)

	loop := &quotaLoop{
		agg:     agg,
		engine:  engine,
		states:  states,
		store:   store,
		series:  defs.Names(),
		primary: defs.Primary().Name,
		known:   states.Load(),
		logger:  logger,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("quota watcher started",
		"primary", loop.primary,
		"series", len(loop.series),
		"interval", cfg.Quota.Interval,
		"base", cfg.Quota.BaseThreshold)

	for {
		loop.cycle(ctx)
		if once {
			return nil
		}

		// Sleep after completion: a slow poll delays the next one
		// rather than overlapping it.
		select {
		case <-ctx.Done():
			logger.Info("quota watcher stopping")
			return nil
		case <-time.After(cfg.Quota.Interval):
		}
	}
}

// quotaLoop holds one poll iteration's collaborators. A single
// goroutine drives it; nothing here is safe for concurrent use.
type quotaLoop struct {
	agg     *watcher.Aggregator
	engine  *watcher.Engine
	states  *state.Store
	store   storage.Storage
	series  []string
	primary string
	known   map[string]model.SeriesState
	logger  *slog.Logger
}

// cycle runs one poll. A panic anywhere inside counts as "no decision
// this cycle" and must never kill the loop.
func (l *quotaLoop) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("poll cycle panicked, skipping", "panic", r)
		}
	}()

	res := l.agg.Collect(ctx, l.series)

	for _, name := range l.series {
		snap := res.Details[name]
		rec := model.ReadingRecord{
			Series:    name,
			Remaining: snap.Remaining,
			Total:     snap.Total,
			Used:      snap.Used,
			Stale:     res.Stale[name],
			Missing:   res.Missing[name],
		}
		if err := l.store.RecordReading(ctx, &rec); err != nil {
			l.logger.Warn("record reading", "series", name, "error", err)
		}

		if !res.Missing[name] {
			prev := l.known[name]
			l.known[name] = model.SeriesState{Value: snap.Remaining, Degraded: prev.Degraded}
		}

		l.logger.Info("reading",
			"series", name,
			"remaining", snap.Remaining,
			"stale", res.Stale[name],
			"missing", res.Missing[name])
	}

	if res.DecisionOK(l.primary) {
		l.engine.Observe(ctx, res.Details[l.primary].Remaining)
	} else {
		l.logger.Warn("skipped decision, no plausible or fresh value",
			"series", l.primary)
	}

	l.states.Save(l.known)
}
