package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quotawatch/quotawatch/internal/config"
	"github.com/quotawatch/quotawatch/pkg/lkg"
	"github.com/quotawatch/quotawatch/pkg/model"
	"github.com/quotawatch/quotawatch/pkg/notify"
	"github.com/quotawatch/quotawatch/pkg/source"
	"github.com/quotawatch/quotawatch/pkg/storage"
	"github.com/quotawatch/quotawatch/pkg/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "quotawatch",
	Short: "Quota and status watcher with threshold alerts",
	Long: `quotawatch polls a third-party balance endpoint and a status page,
raising desktop and email alerts on threshold crossings. Alerting for
the primary series runs as a two-phase state machine: every-poll
alerts above a base threshold, then at-most-once milestone alerts
while the value declines.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.quotawatch/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initSink builds the alert fanout: the desktop command sink always,
// the webhook when enabled, and a recorder that appends every alert
// to the history database. Delivery stays best-effort; the recorder
// logs and swallows insert failures like any other sink would.
func initSink(cfg *config.Config, store storage.Storage, logger *slog.Logger) notify.Sink {
	fanout := notify.Fanout{notify.NewCommandSink(cfg.Notify.Command, logger)}

	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		fanout = append(fanout, notify.NewWebhookSink(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Secret, logger))
	}

	if store != nil {
		fanout = append(fanout, &alertRecorder{store: store, logger: logger})
	}

	return fanout
}

// initMail builds the message sink, or nil when email is disabled.
func initMail(cfg *config.Config, logger *slog.Logger) notify.MessageSink {
	if !cfg.Mail.Enabled {
		return nil
	}
	return notify.NewMailSink(notify.MailConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		To:       cfg.Mail.To,
		DryRun:   cfg.Mail.DryRun,
	}, logger)
}

// loadSources reads the series definition file.
func loadSources(cfg *config.Config) (*source.Definitions, error) {
	return source.LoadDefinitions(cfg.Sources.File)
}

// alertRecorder appends delivered alerts to the history database.
type alertRecorder struct {
	store  storage.Storage
	logger *slog.Logger
}

func (a *alertRecorder) Name() string { return "history" }

func (a *alertRecorder) Notify(ctx context.Context, title, body string) {
	rec := model.AlertRecord{Title: title, Body: body}
	if err := a.store.RecordAlert(ctx, &rec); err != nil {
		a.logger.Warn("record alert", "error", err)
	}
}

// buildAggregator wires the reader chain, token resolver, and cache
// into an aggregator for the quota watcher.
func buildAggregator(cfg *config.Config, defs *source.Definitions, cache *lkg.Cache, logger *slog.Logger) *watcher.Aggregator {
	api := source.NewAPIClient(defs.APIURL, cfg.Sources.APITimeout)

	var site *source.SiteScraper
	if defs.SiteScript != "" {
		site = source.NewSiteScraper(defs.SiteScript, cfg.Sources.ScriptTimeout)
	}

	chain := source.NewChain(site, api, logger)
	resolver := source.NewTokenResolver(defs, cfg.Sources.TokenTimeout, logger)
	return watcher.NewAggregator(chain, resolver, cache, cfg.Quota.LKGTTL, logger)
}
