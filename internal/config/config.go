// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/history"
	"github.com/okian/rally/internal/domain/rating"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// StoreBackend selects the roster store: file, sqlite, redis or memory.
	StoreBackend string `koanf:"store_backend"`
	DataDir      string `koanf:"data_dir"`
	SQLitePath   string `koanf:"sqlite_path"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// Rating engine parameters.
	KFactor        int `koanf:"k_factor"`
	RatingFloor    int `koanf:"rating_floor"`
	StartingRating int `koanf:"starting_rating"`
	DisparityMin   int `koanf:"disparity_min"`
	DisparityMax   int `koanf:"disparity_max"`
	NewPlayerWins  int `koanf:"new_player_wins"`
	NewPlayerBonus int `koanf:"new_player_bonus"`
	HistoryLimit   int `koanf:"history_limit"`

	// MaxLeaderboardLimit caps the limit of every listing endpoint.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DedupeSize sets how many report ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		StoreBackend:        repository.BackendFile,
		DataDir:             "data",
		SQLitePath:          "data/rally.db",
		RedisAddr:           "localhost:6379",
		RedisPrefix:         "rally",
		KFactor:             rating.DefaultKFactor,
		RatingFloor:         rating.DefaultFloor,
		StartingRating:      rating.DefaultStartingRating,
		DisparityMin:        rating.DefaultDisparityMin,
		DisparityMax:        rating.DefaultDisparityMax,
		NewPlayerWins:       rating.DefaultNewPlayerWins,
		NewPlayerBonus:      rating.DefaultNewPlayerBonus,
		HistoryLimit:        history.DefaultLimit,
		MaxLeaderboardLimit: 100,
		DedupeSize:          10_000,
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !validLevel(c.LogLevel):
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k_factor must be positive", ErrInvalidConfig)
	case c.RatingFloor < 0:
		return fmt.Errorf("%w: rating_floor must not be negative", ErrInvalidConfig)
	case c.StartingRating < c.RatingFloor:
		return fmt.Errorf("%w: starting_rating %d below rating_floor %d", ErrInvalidConfig, c.StartingRating, c.RatingFloor)
	case c.DisparityMin < 0 || c.DisparityMax <= c.DisparityMin:
		return fmt.Errorf("%w: disparity range [%d,%d]", ErrInvalidConfig, c.DisparityMin, c.DisparityMax)
	case c.NewPlayerWins < 0 || c.NewPlayerBonus < 0:
		return fmt.Errorf("%w: new player bonus settings must not be negative", ErrInvalidConfig)
	case c.HistoryLimit <= 0:
		return fmt.Errorf("%w: history_limit must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.StoreBackend) {
	case repository.BackendFile, repository.BackendMemory:
	case repository.BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path required for the sqlite backend", ErrInvalidConfig)
		}
	case repository.BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}

func validLevel(l string) bool {
	switch strings.ToLower(l) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// EngineOptions translates the rating settings into engine options.
func (c *Config) EngineOptions() []rating.Option {
	return []rating.Option{
		rating.WithKFactor(c.KFactor),
		rating.WithFloor(c.RatingFloor),
		rating.WithStartingRating(c.StartingRating),
		rating.WithDisparityBounds(c.DisparityMin, c.DisparityMax),
		rating.WithNewPlayerBonus(c.NewPlayerWins, c.NewPlayerBonus),
		rating.WithHistoryLimit(c.HistoryLimit),
	}
}

// RepositorySettings translates the store settings for repository.Open.
func (c *Config) RepositorySettings() repository.Settings {
	return repository.Settings{
		Backend:    c.StoreBackend,
		DataDir:    c.DataDir,
		SQLitePath: c.SQLitePath,
		Redis: repository.RedisSettings{
			Address:  c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
		RedisPrefix: c.RedisPrefix,
	}
}
