package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all quotawatch configuration.
type Config struct {
	Quota   QuotaConfig   `mapstructure:"quota"`
	Status  StatusConfig  `mapstructure:"status"`
	Sources SourcesConfig `mapstructure:"sources"`
	State   StateConfig   `mapstructure:"state"`
	Storage StorageConfig `mapstructure:"storage"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Mail    MailConfig    `mapstructure:"mail"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// QuotaConfig defines the quota watcher loop and thresholds.
type QuotaConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	BaseThreshold float64       `mapstructure:"base_threshold"`
	Milestones    []float64     `mapstructure:"milestones"`
	NotifyLimit   int           `mapstructure:"notify_limit"`
	LKGTTL        time.Duration `mapstructure:"lkg_ttl"`
}

// StatusConfig defines the status watcher loop and thresholds.
type StatusConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Watch    []string      `mapstructure:"watch"`
	Down     []float64     `mapstructure:"down"`
	Up       []float64     `mapstructure:"up"`
}

// SourcesConfig points at the series definitions file and bounds the
// external readers.
type SourcesConfig struct {
	File          string        `mapstructure:"file"`
	APITimeout    time.Duration `mapstructure:"api_timeout"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout"`
	TokenTimeout  time.Duration `mapstructure:"token_timeout"`
}

// StateConfig defines where persisted watcher state lives.
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// QuotaStatePath returns the quota watcher state file.
func (s StateConfig) QuotaStatePath() string { return filepath.Join(s.Dir, "quota_state.json") }

// StatusStatePath returns the status watcher state file.
func (s StateConfig) StatusStatePath() string { return filepath.Join(s.Dir, "status_state.json") }

// AckPath returns the acknowledgement marker file.
func (s StateConfig) AckPath() string { return filepath.Join(s.Dir, "ack") }

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// NotifyConfig defines desktop and webhook alert settings.
type NotifyConfig struct {
	Command string        `mapstructure:"command"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// MailConfig defines SMTP notification settings.
type MailConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	DryRun   bool     `mapstructure:"dry_run"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".quotawatch"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".quotawatch")
	v.SetDefault("quota.interval", "60s")
	v.SetDefault("quota.base_threshold", 5.0)
	v.SetDefault("quota.milestones", []float64{50, 20, 10, 5, 3})
	v.SetDefault("quota.notify_limit", 5)
	v.SetDefault("quota.lkg_ttl", "10m")
	v.SetDefault("status.interval", "300s")
	v.SetDefault("status.down", []float64{70, 60, 50, 30, 10})
	v.SetDefault("status.up", []float64{80})
	v.SetDefault("sources.file", filepath.Join(base, "sources.yaml"))
	v.SetDefault("sources.api_timeout", "10s")
	v.SetDefault("sources.script_timeout", "60s")
	v.SetDefault("sources.token_timeout", "45s")
	v.SetDefault("state.dir", base)
	v.SetDefault("storage.path", filepath.Join(base, "quotawatch.db"))
	v.SetDefault("notify.command", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Environment variables
	v.SetEnvPrefix("QW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
