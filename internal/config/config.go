// Package config loads application configuration for the pair-credit
// shell. Core packages never read it; the shell unpacks values into
// explicit arguments.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Pair   PairConfig   `mapstructure:"pair"`
	Sweep  SweepConfig  `mapstructure:"sweep"`
	Risk   RiskConfig   `mapstructure:"risk"`
	Window WindowConfig `mapstructure:"window"`
	Log    LogConfig    `mapstructure:"log"`

	ReportDir string `mapstructure:"report_dir"`
}

// PairConfig describes the two instruments and the entry structure.
type PairConfig struct {
	InstrumentA           string  `mapstructure:"instrument_a"`
	InstrumentB           string  `mapstructure:"instrument_b"`
	IncrementA            float64 `mapstructure:"increment_a"`
	IncrementB            float64 `mapstructure:"increment_b"`
	Multiplier            float64 `mapstructure:"multiplier"`
	QtyA                  int     `mapstructure:"qty_a"`
	QtyB                  int     `mapstructure:"qty_b"`
	CommissionPerContract float64 `mapstructure:"commission_per_contract"`
	ContractMultiplier    float64 `mapstructure:"contract_multiplier"`
	Expiry                string  `mapstructure:"expiry"` // 2006-01-02
}

// SweepConfig bounds the hypothetical P&L sweep.
type SweepConfig struct {
	HalfWidth float64 `mapstructure:"half_width"`
	Samples   int     `mapstructure:"samples"`
	Workers   int     `mapstructure:"workers"`
}

// RiskConfig parameterizes the short-leg trigger.
type RiskConfig struct {
	DepthThreshold float64 `mapstructure:"depth_threshold"`
	TriggerRule    string  `mapstructure:"trigger_rule"`
}

// WindowConfig is the evaluation window.
type WindowConfig struct {
	Start string `mapstructure:"start"` // RFC3339
	End   string `mapstructure:"end"`
	Step  string `mapstructure:"step"` // Go duration, e.g. "15m"
}

// LogConfig mirrors the logger package options.
type LogConfig struct {
	Verbosity  int    `mapstructure:"verbosity"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from the given file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("pair.increment_a", 1.0)
	v.SetDefault("pair.increment_b", 5.0)
	v.SetDefault("pair.multiplier", 10.0)
	v.SetDefault("pair.qty_a", 100)
	v.SetDefault("pair.qty_b", 10)
	v.SetDefault("pair.contract_multiplier", 100.0)
	v.SetDefault("sweep.half_width", 0.03)
	v.SetDefault("sweep.samples", 121)
	v.SetDefault("sweep.workers", 1)
	v.SetDefault("risk.depth_threshold", 10.0)
	v.SetDefault("window.step", "15m")
	v.SetDefault("log.verbosity", 1)
	v.SetDefault("report_dir", "./out")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the core would refuse anyway, early
// and with better messages.
func (c *Config) Validate() error {
	if c.Pair.InstrumentA == "" || c.Pair.InstrumentB == "" {
		return fmt.Errorf("both instruments must be set")
	}
	if c.Pair.Multiplier <= 0 {
		return fmt.Errorf("multiplier must be positive, got %.4f", c.Pair.Multiplier)
	}
	if c.Pair.QtyA <= 0 || c.Pair.QtyB <= 0 {
		return fmt.Errorf("leg quantities must be positive, got %d/%d", c.Pair.QtyA, c.Pair.QtyB)
	}
	if c.Sweep.HalfWidth < 0 {
		return fmt.Errorf("sweep half width must be non-negative, got %.4f", c.Sweep.HalfWidth)
	}
	if c.Sweep.Samples < 1 {
		return fmt.Errorf("sweep samples must be at least 1, got %d", c.Sweep.Samples)
	}
	if _, err := c.ExpiryTime(); err != nil {
		return err
	}
	if _, _, _, err := c.WindowTimes(); err != nil {
		return err
	}
	return nil
}

// ExpiryTime parses the configured option expiry.
func (c *Config) ExpiryTime() (time.Time, error) {
	if c.Pair.Expiry == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", c.Pair.Expiry)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing expiry %q: %w", c.Pair.Expiry, err)
	}
	return t, nil
}

// WindowTimes parses the evaluation window.
func (c *Config) WindowTimes() (start, end time.Time, step time.Duration, err error) {
	if c.Window.Start == "" && c.Window.End == "" {
		return time.Time{}, time.Time{}, 0, nil
	}
	start, err = time.Parse(time.RFC3339, c.Window.Start)
	if err != nil {
		return start, end, step, fmt.Errorf("parsing window start: %w", err)
	}
	end, err = time.Parse(time.RFC3339, c.Window.End)
	if err != nil {
		return start, end, step, fmt.Errorf("parsing window end: %w", err)
	}
	step, err = time.ParseDuration(c.Window.Step)
	if err != nil {
		return start, end, step, fmt.Errorf("parsing window step: %w", err)
	}
	return start, end, step, nil
}
