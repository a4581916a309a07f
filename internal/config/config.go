// Package config loads runtime configuration from an optional YAML file
// with environment-variable overrides, following the teacher's
// getEnv/getEnvBool/getEnvInt/getEnvDuration/getEnvDecimal helper family
// in internal/config.Load — a YAML base layer is new (the teacher only
// read env vars), added because a replay tool with a dozen tunables
// benefits from a checked-in defaults file the way the teacher never
// needed one for a handful of bot flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config but with yaml tags; every field except Debug
// can be set from the YAML file, and environment variables override it.
type fileConfig struct {
	SourceMode             string  `yaml:"source_mode"`
	ReplayDir              string  `yaml:"replay_dir"`
	LiveURL                string  `yaml:"live_url"`
	RecorderDir            string  `yaml:"recorder_dir"`
	RecorderFlushThreshold int     `yaml:"recorder_flush_threshold_ticks"`
	RecorderFlushIntervalS int     `yaml:"recorder_flush_interval_s"`
	RecorderMaxBufferSize  int     `yaml:"recorder_max_buffer_size"`
	RecorderMinFreeDiskMiB int64   `yaml:"recorder_min_free_disk_mib"`
	RingBufferMaxSessions  int     `yaml:"ring_buffer_max_sessions"`
	RingBufferMaxTicks     int     `yaml:"ring_buffer_max_ticks_per_game"`
	InitialBalanceSOL      string  `yaml:"initial_balance_sol"`
	MinBetSOL              string  `yaml:"min_bet_sol"`
	MaxBetSOL              string  `yaml:"max_bet_sol"`
	SidebetWindowTicks     int     `yaml:"sidebet_window_ticks"`
	SidebetCooldownTicks   int     `yaml:"sidebet_cooldown_ticks"`
	SidebetMultiplier      string  `yaml:"sidebet_multiplier"`
	RugLiquidationPrice    string  `yaml:"rug_liquidation_price"`
	StorePath              string  `yaml:"store_path"`
	MetricsAddr            string  `yaml:"metrics_addr"`
	PlaybackSpeed          float64 `yaml:"playback_speed"`
	PlaybackMinTickIntervalMs int  `yaml:"playback_min_tick_interval_ms"`
	PlaybackMaxTickIntervalS  float64 `yaml:"playback_max_tick_interval_s"`
	PlaybackAutoAdvance       *bool `yaml:"playback_auto_advance"`
}

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	SourceMode string // "file" or "live"
	ReplayDir  string
	LiveURL    string

	RecorderDir            string
	RecorderFlushThreshold int
	RecorderFlushInterval  time.Duration
	RecorderMaxBufferSize  int
	RecorderMinFreeDiskBytes int64

	RingBufferMaxSessions int
	RingBufferMaxTicks    int

	InitialBalanceSOL decimal.Decimal
	MinBetSOL         decimal.Decimal
	MaxBetSOL         decimal.Decimal

	SidebetWindowTicks   int64
	SidebetCooldownTicks int64
	SidebetMultiplier    decimal.Decimal
	RugLiquidationPrice  decimal.Decimal

	StorePath   string
	MetricsAddr string

	// PlaybackSpeed scales wall-clock pacing in replay mode; 0 means
	// as-fast-as-possible (no pacing), 1.0 means real-time.
	PlaybackSpeed          float64
	PlaybackMinTickInterval time.Duration
	PlaybackMaxTickInterval time.Duration
	PlaybackAutoAdvance     bool

	Debug bool
}

// Load reads an optional YAML file at path (skipped silently if it
// doesn't exist) as the base layer, then applies environment-variable
// overrides on top, then validates.
func Load(path string) (*Config, error) {
	fc := fileConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg := &Config{
		SourceMode: getEnv("SOURCE_MODE", orDefault(fc.SourceMode, "file")),
		ReplayDir:  getEnv("REPLAY_DIR", orDefault(fc.ReplayDir, "./data/replays")),
		LiveURL:    getEnv("LIVE_URL", fc.LiveURL),

		RecorderDir:              getEnv("RECORDER_DIR", orDefault(fc.RecorderDir, "./data/recordings")),
		RecorderFlushThreshold:   getEnvInt("RECORDER_FLUSH_THRESHOLD_TICKS", orDefaultInt(fc.RecorderFlushThreshold, 100)),
		RecorderFlushInterval:    getEnvDuration("RECORDER_FLUSH_INTERVAL", orDefaultDuration(fc.RecorderFlushIntervalS, 10*time.Second)),
		RecorderMaxBufferSize:    getEnvInt("RECORDER_MAX_BUFFER_SIZE", orDefaultInt(fc.RecorderMaxBufferSize, 5000)),
		RecorderMinFreeDiskBytes: getEnvInt64("RECORDER_MIN_FREE_DISK_BYTES", orDefaultInt64(fc.RecorderMinFreeDiskMiB*1<<20, 100*1<<20)),

		RingBufferMaxSessions: getEnvInt("RING_BUFFER_MAX_SESSIONS", orDefaultInt(fc.RingBufferMaxSessions, 10)),
		RingBufferMaxTicks:    getEnvInt("RING_BUFFER_MAX_TICKS_PER_GAME", orDefaultInt(fc.RingBufferMaxTicks, 10000)),

		InitialBalanceSOL: getEnvDecimal("INITIAL_BALANCE_SOL", orDefaultDecimal(fc.InitialBalanceSOL, decimal.RequireFromString("0.100"))),
		MinBetSOL:         getEnvDecimal("MIN_BET_SOL", orDefaultDecimal(fc.MinBetSOL, decimal.RequireFromString("0.001"))),
		MaxBetSOL:         getEnvDecimal("MAX_BET_SOL", orDefaultDecimal(fc.MaxBetSOL, decimal.RequireFromString("1.0"))),

		SidebetWindowTicks:   int64(getEnvInt("SIDEBET_WINDOW_TICKS", orDefaultInt(fc.SidebetWindowTicks, 40))),
		SidebetCooldownTicks: int64(getEnvInt("SIDEBET_COOLDOWN_TICKS", orDefaultInt(fc.SidebetCooldownTicks, 5))),
		SidebetMultiplier:    getEnvDecimal("SIDEBET_MULTIPLIER", orDefaultDecimal(fc.SidebetMultiplier, decimal.RequireFromString("5.0"))),
		RugLiquidationPrice:  getEnvDecimal("RUG_LIQUIDATION_PRICE", orDefaultDecimal(fc.RugLiquidationPrice, decimal.RequireFromString("0.02"))),

		StorePath:   getEnv("STORE_PATH", orDefault(fc.StorePath, "./data/sessions.db")),
		MetricsAddr: getEnv("METRICS_ADDR", orDefault(fc.MetricsAddr, ":9090")),

		PlaybackSpeed:           getEnvFloat("PLAYBACK_SPEED", orDefaultFloat(fc.PlaybackSpeed, 1.0)),
		PlaybackMinTickInterval: time.Duration(getEnvInt("PLAYBACK_MIN_TICK_INTERVAL_MS", int(orDefaultMillis(fc.PlaybackMinTickIntervalMs, 50*time.Millisecond)/time.Millisecond))) * time.Millisecond,
		PlaybackMaxTickInterval: orDefaultDurationFloat(getEnvFloat("PLAYBACK_MAX_TICK_INTERVAL_S", fc.PlaybackMaxTickIntervalS), 5*time.Second),
		PlaybackAutoAdvance:     getEnvBool("PLAYBACK_AUTO_ADVANCE", orDefaultBoolPtr(fc.PlaybackAutoAdvance, true)),
		Debug:                   getEnvBool("DEBUG", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SourceMode != "file" && c.SourceMode != "live" {
		return fmt.Errorf("config: SOURCE_MODE must be \"file\" or \"live\", got %q", c.SourceMode)
	}
	if c.SourceMode == "live" && c.LiveURL == "" {
		return fmt.Errorf("config: LIVE_URL is required when SOURCE_MODE=live")
	}
	if c.MinBetSOL.GreaterThan(c.MaxBetSOL) {
		return fmt.Errorf("config: MIN_BET_SOL (%s) exceeds MAX_BET_SOL (%s)", c.MinBetSOL, c.MaxBetSOL)
	}
	if c.InitialBalanceSOL.IsNegative() {
		return fmt.Errorf("config: INITIAL_BALANCE_SOL cannot be negative")
	}
	if c.PlaybackSpeed < 0 {
		return fmt.Errorf("config: PLAYBACK_SPEED cannot be negative")
	}
	if c.RingBufferMaxSessions < 1 {
		return fmt.Errorf("config: RING_BUFFER_MAX_SESSIONS must be >= 1, got %d", c.RingBufferMaxSessions)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultDuration(seconds int, def time.Duration) time.Duration {
	if seconds == 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

func orDefaultDurationFloat(seconds float64, def time.Duration) time.Duration {
	if seconds == 0 {
		return def
	}
	return time.Duration(seconds * float64(time.Second))
}

func orDefaultMillis(ms int, def time.Duration) time.Duration {
	if ms == 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func orDefaultInt64(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultBoolPtr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func orDefaultDecimal(v string, def decimal.Decimal) decimal.Decimal {
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
