package cli

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/pkg/source"
	"github.com/quotawatch/quotawatch/pkg/state"
	"github.com/quotawatch/quotawatch/pkg/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Watch per-service availability and alert on crossings",
	Long: `Polls the status page for per-service 24h availability. Watched
services fire a desktop alert whenever their percentage crosses a
down threshold, and a recovery alert when it climbs back above the
highest up threshold.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Duration("interval", 0, "Polling interval (default from config)")
	statusCmd.Flags().Bool("once", false, "Run a single poll and exit")
	statusCmd.Flags().StringArray("watch", nil, "Service name to watch; repeat to add multiple (overrides config)")
	statusCmd.Flags().Float64Slice("down", nil, "Downward thresholds in percent (overrides config)")
	statusCmd.Flags().Float64Slice("up", nil, "Upward thresholds in percent (overrides config)")
	statusCmd.Flags().Bool("only-watch", false, "Only print watched services")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if v, _ := cmd.Flags().GetDuration("interval"); v > 0 {
		cfg.Status.Interval = v
	}
	if v, _ := cmd.Flags().GetStringArray("watch"); len(v) > 0 {
		cfg.Status.Watch = v
	}
	if v, _ := cmd.Flags().GetFloat64Slice("down"); len(v) > 0 {
		cfg.Status.Down = v
	}
	if v, _ := cmd.Flags().GetFloat64Slice("up"); len(v) > 0 {
		cfg.Status.Up = v
	}
	once, _ := cmd.Flags().GetBool("once")
	onlyWatch, _ := cmd.Flags().GetBool("only-watch")

	defs, err := loadSources(cfg)
	if err != nil {
		return err
	}
	if defs.StatusScript == "" {
		return fmt.Errorf("no status_script configured in %s", cfg.Sources.File)
	}

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	fetcher := source.NewStatusFetcher(defs.StatusScript, cfg.Sources.ScriptTimeout)
	states := state.NewStore(cfg.State.StatusStatePath(), cfg.State.AckPath(),
		watcher.MaxDown(cfg.Status.Down), logger)

	engine := watcher.NewStatusEngine(watcher.StatusConfig{
		Watch: cfg.Status.Watch,
		Down:  cfg.Status.Down,
		Up:    cfg.Status.Up,
	}, initSink(cfg, store, logger), states, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("status watcher started",
		"interval", cfg.Status.Interval,
		"watch", cfg.Status.Watch,
		"down", cfg.Status.Down,
		"up", cfg.Status.Up)

	for {
		cur, err := fetcher.Fetch(ctx)
		if err != nil {
			logger.Warn("status poll failed", "error", err)
		} else {
			printSnapshot(cur, cfg.Status.Watch, engine, onlyWatch)
			engine.Observe(ctx, cur)
		}

		if once {
			return nil
		}
		select {
		case <-ctx.Done():
			logger.Info("status watcher stopping")
			return nil
		case <-time.After(cfg.Status.Interval):
		}
	}
}

// printSnapshot writes one poll's readings, watched services first in
// the user's order, then the rest alphabetically.
func printSnapshot(cur map[string]float64, watch []string, engine *watcher.StatusEngine, onlyWatch bool) {
	fmt.Printf("\n--- %s ---\n", time.Now().Format("2006-01-02 15:04:05"))

	seen := make(map[string]bool, len(cur))
	var ordered []string
	for _, w := range watch {
		if _, ok := cur[w]; ok && !seen[w] {
			ordered = append(ordered, w)
			seen[w] = true
		}
	}
	var rest []string
	for name := range cur {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	if !onlyWatch {
		ordered = append(ordered, rest...)
	}

	watched := make(map[string]bool, len(watch))
	for _, w := range watch {
		watched[w] = true
	}

	for _, name := range ordered {
		mark := " "
		if watched[name] {
			mark = "*"
		}
		flag := ""
		if engine.Degraded(name) {
			flag = "  [degraded]"
		}
		fmt.Printf("%s %-36s %7.2f%%%s\n", mark, name, cur[name], flag)
	}
}
