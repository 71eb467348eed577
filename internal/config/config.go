// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment on top.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// SnapshotPath is the scraped-results JSON export read by sync runs.
	SnapshotPath string `koanf:"snapshot_path"`

	// ModelPath is where the external trainer writes its artifact. Only its
	// existence matters here.
	ModelPath string `koanf:"model_path"`

	// WindowSize is the number of recent bouts aggregated per competitor.
	WindowSize int `koanf:"window_size"`

	// KFactor and InitialRating parameterize the rating engine.
	KFactor       float64 `koanf:"k_factor"`
	InitialRating float64 `koanf:"initial_rating"`

	// RetrainThreshold is how many new contests since the last training run
	// are needed before recommending a retrain.
	RetrainThreshold int `koanf:"retrain_threshold"`

	// RunTimeout bounds a single sync run end to end.
	RunTimeout time.Duration `koanf:"run_timeout"`

	// LeaseTTL is how long a run's writer lease lives before a crashed run
	// is considered abandoned.
	LeaseTTL time.Duration `koanf:"lease_ttl"`

	// SyncSchedule is the cron expression for scheduled sync runs in serve
	// mode. Empty disables the scheduler.
	SyncSchedule string `koanf:"sync_schedule"`

	// MaxLeaderboardLimit caps GET /api/ratings?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DBPath:              "valetudo.db",
		SnapshotPath:        "data/events.json",
		ModelPath:           "data/model.bin",
		WindowSize:          5,
		KFactor:             32,
		InitialRating:       1500,
		RetrainThreshold:    25,
		RunTimeout:          10 * time.Minute,
		LeaseTTL:            15 * time.Minute,
		SyncSchedule:        "0 6 * * *",
		MaxLeaderboardLimit: 100,
	}
}
