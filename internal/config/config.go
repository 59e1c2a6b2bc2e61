// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and PODIUM_* env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the ops HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// UpdateIntervalSeconds is the pause between scheduler cycles.
	UpdateIntervalSeconds int `koanf:"update_interval_seconds" validate:"gte=1"`

	// APICooldownMS is the courtesy wait before each judge fetch.
	APICooldownMS int `koanf:"api_cooldown_ms" validate:"gte=0"`

	// WindowCap bounds the number of recent submissions fetched per contest.
	WindowCap int `koanf:"window_cap" validate:"gte=1,lte=10000"`

	// ContestConcurrency caps how many contests one cycle updates in parallel.
	ContestConcurrency int `koanf:"contest_concurrency" validate:"gte=1"`

	// Judge API client.
	JudgeBaseURL       string  `koanf:"judge_base_url" validate:"required,url"`
	JudgeTimeoutMS     int     `koanf:"judge_timeout_ms" validate:"gte=100"`
	JudgeRatePerSecond float64 `koanf:"judge_rate_per_second" validate:"gt=0"`
	JudgeRetries       int     `koanf:"judge_retries" validate:"gte=0,lte=10"`

	// Database.
	DBDriver string `koanf:"db_driver" validate:"oneof=mysql sqlite"`
	DBDSN    string `koanf:"db_dsn" validate:"required"`

	// Per-contest lock backend.
	LockBackend   string `koanf:"lock_backend" validate:"oneof=memory redis"`
	LockTTLMS     int    `koanf:"lock_ttl_ms" validate:"gte=1000"`
	RedisAddr     string `koanf:"redis_addr" validate:"required_if=LockBackend redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`

	// Manual resync queue and workers.
	ResyncWorkers   int `koanf:"resync_workers" validate:"gte=1"`
	ResyncQueueSize int `koanf:"resync_queue_size" validate:"gte=1"`

	// DefaultRating is assigned to profiles created without a rating.
	DefaultRating int `koanf:"default_rating" validate:"gte=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		UpdateIntervalSeconds: 60,
		APICooldownMS:         500,
		WindowCap:             1000,
		ContestConcurrency:    1,
		JudgeBaseURL:          "https://codeforces.com/api",
		JudgeTimeoutMS:        10_000,
		JudgeRatePerSecond:    2,
		JudgeRetries:          2,
		DBDriver:              "sqlite",
		DBDSN:                 "file:podium.db?_pragma=busy_timeout(5000)",
		LockBackend:           "memory",
		LockTTLMS:             120_000,
		RedisAddr:             "localhost:6379",
		ResyncWorkers:         2,
		ResyncQueueSize:       256,
		DefaultRating:         1500,
	}
}

// UpdateInterval returns the scheduler interval as a duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}

// APICooldown returns the pre-fetch courtesy wait as a duration.
func (c *Config) APICooldown() time.Duration {
	return time.Duration(c.APICooldownMS) * time.Millisecond
}

// JudgeTimeout returns the judge HTTP timeout as a duration.
func (c *Config) JudgeTimeout() time.Duration {
	return time.Duration(c.JudgeTimeoutMS) * time.Millisecond
}

// LockTTL returns the per-contest lock lease as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMS) * time.Millisecond
}
