// Package config provides Viper-based configuration for the harvester.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HARVESTER_OUTPUT_DIR.
const EnvPrefix = "HARVESTER"

// Output backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Config represents the complete harvester configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Output     OutputConfig     `mapstructure:"output"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Publishers PublishersConfig `mapstructure:"publishers"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProvidersConfig selects the catalog. An empty File uses the built-in catalog.
type ProvidersConfig struct {
	File string   `mapstructure:"file"`
	Only []string `mapstructure:"only"`
}

type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	ErrorLog string `mapstructure:"error_log"`
	Format   string `mapstructure:"format"`
	Backend  string `mapstructure:"backend"`
	BoltPath string `mapstructure:"bolt_path"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScheduleConfig controls the provider worker pool. A zero Interval means a single pass.
type ScheduleConfig struct {
	Workers    int           `mapstructure:"workers"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
	Interval   time.Duration `mapstructure:"interval"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Burst      int           `mapstructure:"burst"`
}

type PublishersConfig struct {
	File string `mapstructure:"file"`
}

// MetricsConfig enables the /metrics listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads .env, defaults, the optional config file and HARVESTER_* environment overrides.
func Load(cfgFile string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		v.SetConfigName("harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Providers.Only = splitList(cfg.Providers.Only)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("providers.file", "")
	v.SetDefault("providers.only", []string{})

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.error_log", "errorLog.json")
	v.SetDefault("output.format", "concat")
	v.SetDefault("output.backend", BackendFile)
	v.SetDefault("output.bolt_path", "harvest.db")

	v.SetDefault("http.timeout", 15*time.Second)

	v.SetDefault("schedule.workers", 0)
	v.SetDefault("schedule.run_timeout", time.Duration(0))
	v.SetDefault("schedule.interval", time.Duration(0))
	v.SetDefault("schedule.rate_limit", 0.0)
	v.SetDefault("schedule.burst", 1)

	v.SetDefault("publishers.file", "")
	v.SetDefault("metrics.addr", "")
}

// normalize lowercases enum values so callers can compare them against the constants.
func (c *Config) normalize() {
	c.Log.Format = enumValue(c.Log.Format)
	c.Output.Format = enumValue(c.Output.Format)
	c.Output.Backend = enumValue(c.Output.Backend)
}

func enumValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate rejects unknown enum values and negative limits.
func (c *Config) Validate() error {
	switch enumValue(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q not supported", c.Log.Format)
	}

	switch enumValue(c.Output.Format) {
	case "concat", "ndjson":
	default:
		return fmt.Errorf("output.format %q not supported", c.Output.Format)
	}

	switch enumValue(c.Output.Backend) {
	case BackendFile:
	case BackendBolt:
		if strings.TrimSpace(c.Output.BoltPath) == "" {
			return errors.New("output.bolt_path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("output.backend %q not supported", c.Output.Backend)
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if c.Schedule.Workers < 0 {
		return fmt.Errorf("schedule.workers must not be negative, got %d", c.Schedule.Workers)
	}
	if c.Schedule.RunTimeout < 0 {
		return fmt.Errorf("schedule.run_timeout must not be negative, got %s", c.Schedule.RunTimeout)
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("schedule.interval must not be negative, got %s", c.Schedule.Interval)
	}
	if c.Schedule.RateLimit < 0 {
		return fmt.Errorf("schedule.rate_limit must not be negative, got %v", c.Schedule.RateLimit)
	}
	if c.Schedule.RateLimit > 0 && c.Schedule.Burst < 1 {
		return fmt.Errorf("schedule.burst must be at least 1 when rate_limit is set, got %d", c.Schedule.Burst)
	}
	return nil
}
