package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Simulate SimulateConfig `yaml:"simulate" mapstructure:"simulate"`
	Details  DetailsConfig  `yaml:"details" mapstructure:"details"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the job database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
}

// StorageConfig configures where job artifacts are written.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SimulateConfig holds the catalog and funnel simulation defaults.
type SimulateConfig struct {
	NumProducts           int     `yaml:"num_products" mapstructure:"num_products"`
	Seed                  int64   `yaml:"seed" mapstructure:"seed"`
	DateStart             string  `yaml:"date_start" mapstructure:"date_start"`
	DateEnd               string  `yaml:"date_end" mapstructure:"date_end"`
	Granularity           string  `yaml:"granularity" mapstructure:"granularity"`
	SaleProb              float64 `yaml:"sale_prob" mapstructure:"sale_prob"`
	ImpressionToVisitRate float64 `yaml:"impression_to_visit_rate" mapstructure:"impression_to_visit_rate"`
	VisitToCartRate       float64 `yaml:"visit_to_cart_rate" mapstructure:"visit_to_cart_rate"`
	CartToOrderRate       float64 `yaml:"cart_to_order_rate" mapstructure:"cart_to_order_rate"`
	MinImpressions        int     `yaml:"min_impressions" mapstructure:"min_impressions"`
	MaxImpressions        int     `yaml:"max_impressions" mapstructure:"max_impressions"`
}

// DetailsConfig configures product detail backends.
type DetailsConfig struct {
	Seed           int64   `yaml:"seed" mapstructure:"seed"`
	RetryAttempts  int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMS int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MetricsConfig configures run metrics export and job alerting.
type MetricsConfig struct {
	// Textfile, when set, receives Prometheus metrics after each command.
	Textfile             string  `yaml:"textfile" mapstructure:"textfile"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinFinishedJobs      int     `yaml:"min_finished_jobs" mapstructure:"min_finished_jobs"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RETAILSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "retail-sim.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("storage.path", "jobs")
	v.SetDefault("simulate.num_products", 100)
	v.SetDefault("simulate.seed", 42)
	v.SetDefault("simulate.date_start", "2024-11-01")
	v.SetDefault("simulate.date_end", "2024-11-30")
	v.SetDefault("simulate.granularity", "daily")
	v.SetDefault("simulate.sale_prob", 0.7)
	v.SetDefault("simulate.impression_to_visit_rate", 0.1)
	v.SetDefault("simulate.visit_to_cart_rate", 0.3)
	v.SetDefault("simulate.cart_to_order_rate", 0.5)
	v.SetDefault("simulate.min_impressions", 50)
	v.SetDefault("simulate.max_impressions", 500)
	v.SetDefault("details.seed", 42)
	v.SetDefault("details.retry_attempts", 3)
	v.SetDefault("details.retry_backoff_ms", 500)
	v.SetDefault("details.timeout_secs", 60)
	v.SetDefault("metrics.failure_rate_threshold", 0.25)
	v.SetDefault("metrics.min_finished_jobs", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on. All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "simulate", "enrich", "jobs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode == "simulate" || mode == "enrich" {
		if c.Storage.Path == "" {
			errs = append(errs, "storage.path is required")
		}
	}

	if mode == "simulate" {
		s := c.Simulate
		if s.NumProducts < 1 {
			errs = append(errs, "simulate.num_products must be >= 1")
		}
		if s.Granularity != "daily" && s.Granularity != "weekly" {
			errs = append(errs, fmt.Sprintf("simulate.granularity must be daily or weekly, got %q", s.Granularity))
		}
		for name, rate := range map[string]float64{
			"sale_prob":                s.SaleProb,
			"impression_to_visit_rate": s.ImpressionToVisitRate,
			"visit_to_cart_rate":       s.VisitToCartRate,
			"cart_to_order_rate":       s.CartToOrderRate,
		} {
			if rate < 0 || rate > 1 {
				errs = append(errs, fmt.Sprintf("simulate.%s must be between 0 and 1", name))
			}
		}
	}

	if mode == "enrich" {
		if c.Details.RetryAttempts < 1 || c.Details.RetryAttempts > 10 {
			errs = append(errs, "details.retry_attempts must be between 1 and 10")
		}
		if c.Details.RatePerSecond < 0 {
			errs = append(errs, "details.rate_per_second must be >= 0")
		}
	}

	if mode == "jobs" {
		if t := c.Metrics.FailureRateThreshold; t < 0 || t > 1 {
			errs = append(errs, "metrics.failure_rate_threshold must be between 0 and 1")
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
