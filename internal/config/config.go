package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/azretail/chainscan/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Log      LogConfig               `yaml:"log" mapstructure:"log"`
	Store    StoreConfig             `yaml:"store" mapstructure:"store"`
	Paths    PathsConfig             `yaml:"paths" mapstructure:"paths"`
	Fetch    FetchConfig             `yaml:"fetch" mapstructure:"fetch"`
	Resolve  ResolveConfig           `yaml:"resolve" mapstructure:"resolve"`
	Scrape   ScrapeConfig            `yaml:"scrape" mapstructure:"scrape"`
	Sources  map[string]SourceConfig `yaml:"sources" mapstructure:"sources"`
	Bounds   BoundsConfig            `yaml:"bounds" mapstructure:"bounds"`
	Geo      GeoConfig               `yaml:"geo" mapstructure:"geo"`
	Merge    MergeConfig             `yaml:"merge" mapstructure:"merge"`
	Analysis AnalysisConfig          `yaml:"analysis" mapstructure:"analysis"`
	Monitor  MonitorConfig           `yaml:"monitor" mapstructure:"monitor"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the run history and dataset database.
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PathsConfig locates the data files and generated artifacts.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" mapstructure:"data_dir"`
	Combined   string `yaml:"combined" mapstructure:"combined"`
	ChartsDir  string `yaml:"charts_dir" mapstructure:"charts_dir"`
	ReportsDir string `yaml:"reports_dir" mapstructure:"reports_dir"`
}

// CombinedPath is the merged table's location.
func (p PathsConfig) CombinedPath() string {
	if p.Combined != "" {
		return p.Combined
	}
	return filepath.Join(p.DataDir, "combined.csv")
}

// FetchConfig configures page and API requests.
type FetchConfig struct {
	UserAgent        string             `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout          time.Duration      `yaml:"timeout" mapstructure:"timeout"`
	RatePerSecond    float64            `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst            int                `yaml:"burst" mapstructure:"burst"`
	HostRates        map[string]float64 `yaml:"host_rates" mapstructure:"host_rates"`
	MaxAttempts      int                `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff   time.Duration      `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration      `yaml:"max_backoff" mapstructure:"max_backoff"`
	CloudflareBypass bool               `yaml:"cloudflare_bypass" mapstructure:"cloudflare_bypass"`
}

// ResolveConfig configures short map link resolution.
type ResolveConfig struct {
	ShortHosts []string      `yaml:"short_hosts" mapstructure:"short_hosts"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxHops    int           `yaml:"max_hops" mapstructure:"max_hops"`
}

// ScrapeConfig configures the extractor engine.
type ScrapeConfig struct {
	Concurrency     int    `yaml:"concurrency" mapstructure:"concurrency"`
	NormalizePhones bool   `yaml:"normalize_phones" mapstructure:"normalize_phones"`
	PhoneRegion     string `yaml:"phone_region" mapstructure:"phone_region"`
}

// SourceConfig overrides one chain's built-in endpoint.
type SourceConfig struct {
	URL      string        `yaml:"url" mapstructure:"url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Disabled bool          `yaml:"disabled" mapstructure:"disabled"`
}

// BoundsConfig is the envelope every stored coordinate must fall in.
type BoundsConfig struct {
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLon float64 `yaml:"min_lon" mapstructure:"min_lon"`
	MaxLon float64 `yaml:"max_lon" mapstructure:"max_lon"`
}

// GeoConfig selects the gazetteer used for city inference.
type GeoConfig struct {
	Gazetteer string `yaml:"gazetteer" mapstructure:"gazetteer"` // YAML path; empty uses the built-in one
}

// MergeConfig configures the schema-aligned merge.
type MergeConfig struct {
	MissingMarker string `yaml:"missing_marker" mapstructure:"missing_marker"`
}

// AnalysisConfig configures chart rendering.
type AnalysisConfig struct {
	ChartWidth  float64 `yaml:"chart_width" mapstructure:"chart_width"`
	ChartHeight float64 `yaml:"chart_height" mapstructure:"chart_height"`
}

// MonitorConfig configures run health checks and alert delivery.
type MonitorConfig struct {
	LookbackHours        int           `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	FailureRateThreshold float64       `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	DropThreshold        float64       `yaml:"drop_threshold" mapstructure:"drop_threshold"` // fraction of stores lost between scrapes
	WebhookURL           string        `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckInterval        time.Duration `yaml:"check_interval" mapstructure:"check_interval"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHAINSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "chainscan.db")
	v.SetDefault("store.max_conns", 5)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.charts_dir", "charts")
	v.SetDefault("paths.reports_dir", "reports")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.initial_backoff", "500ms")
	v.SetDefault("fetch.max_backoff", "10s")
	v.SetDefault("fetch.cloudflare_bypass", false)
	v.SetDefault("resolve.short_hosts", []string{"maps.app.goo.gl", "goo.gl", "bit.ly"})
	v.SetDefault("resolve.timeout", "10s")
	v.SetDefault("resolve.max_hops", 5)
	v.SetDefault("scrape.concurrency", 5)
	v.SetDefault("scrape.normalize_phones", false)
	v.SetDefault("scrape.phone_region", "AZ")
	v.SetDefault("bounds.min_lat", 38.0)
	v.SetDefault("bounds.max_lat", 42.0)
	v.SetDefault("bounds.min_lon", 44.0)
	v.SetDefault("bounds.max_lon", 51.0)
	v.SetDefault("merge.missing_marker", model.DefaultMissingMarker)
	v.SetDefault("analysis.chart_width", 10.0)
	v.SetDefault("analysis.chart_height", 6.0)
	v.SetDefault("monitor.lookback_hours", 168)
	v.SetDefault("monitor.failure_rate_threshold", 0.25)
	v.SetDefault("monitor.drop_threshold", 0.3)
	v.SetDefault("monitor.check_interval", "1h")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Command names that Validate knows preconditions for.
const (
	CommandScrape  = "scrape"
	CommandMerge   = "merge"
	CommandAnalyze = "analyze"
	CommandRun     = "run"
	CommandRuns    = "runs"
)

// Validate checks the settings the given command depends on. Every problem
// found is reported in a single error.
func (c *Config) Validate(command string) error {
	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch command {
	case CommandScrape, CommandMerge, CommandAnalyze, CommandRun, CommandRuns:
	default:
		return eris.Errorf("config: unknown mode %q", command)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		add("log.level %q is not a valid level", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		add("log.format must be json or console, got %q", c.Log.Format)
	}
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			add("store.dsn is required for postgres")
		}
	default:
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}

	if command != CommandRuns {
		if c.Paths.DataDir == "" {
			add("paths.data_dir is required")
		}
		if c.Merge.MissingMarker == "" {
			add("merge.missing_marker must not be empty")
		}
	}

	if command == CommandScrape || command == CommandRun {
		if c.Scrape.Concurrency < 1 {
			add("scrape.concurrency must be at least 1, got %d", c.Scrape.Concurrency)
		}
		if c.Fetch.RatePerSecond <= 0 {
			add("fetch.rate_per_second must be > 0, got %g", c.Fetch.RatePerSecond)
		}
		if c.Fetch.MaxAttempts < 1 {
			add("fetch.max_attempts must be at least 1, got %d", c.Fetch.MaxAttempts)
		}
		b := c.Bounds
		if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
			add("bounds are empty: lat [%g,%g] lon [%g,%g]", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
		}
		if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
			add("bounds exceed valid latitude/longitude ranges")
		}
		names := make([]string, 0, len(c.Sources))
		for name := range c.Sources {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := model.ParseChain(name); err != nil {
				add("sources.%s is not a known chain", name)
			}
		}
	}

	if command == CommandAnalyze || command == CommandRun {
		if c.Paths.ChartsDir == "" || c.Paths.ReportsDir == "" {
			add("paths.charts_dir and paths.reports_dir are required")
		}
		if c.Analysis.ChartWidth <= 0 || c.Analysis.ChartHeight <= 0 {
			add("analysis.chart_width and analysis.chart_height must be > 0")
		}
	}

	if command == CommandRuns {
		m := c.Monitor
		if m.LookbackHours < 1 {
			add("monitor.lookback_hours must be at least 1, got %d", m.LookbackHours)
		}
		if m.FailureRateThreshold < 0 || m.FailureRateThreshold > 1 {
			add("monitor.failure_rate_threshold must be within [0,1], got %g", m.FailureRateThreshold)
		}
		if m.DropThreshold <= 0 || m.DropThreshold > 1 {
			add("monitor.drop_threshold must be within (0,1], got %g", m.DropThreshold)
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
