// Package config holds the service configuration tree.
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// IsDevelopment reports whether the service runs with development defaults.
func (a AppConfig) IsDevelopment() bool {
	return a.Environment == "" || a.Environment == "development"
}

type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the profile store driver. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig bounds how long a computed breakdown stays usable.
type CacheConfig struct {
	MaxAge        time.Duration `mapstructure:"max_age"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ChartConfig drives the radar renderer and the interactive widgets.
type ChartConfig struct {
	Size           int           `mapstructure:"size"`
	FullscreenSize int           `mapstructure:"fullscreen_size"`
	HoverScale     float64       `mapstructure:"hover_scale"`
	Animation      time.Duration `mapstructure:"animation"`
	FrameInterval  time.Duration `mapstructure:"frame_interval"`
	Locale         string        `mapstructure:"locale"`
	FontPath       string        `mapstructure:"font_path"`
}

type ScoringConfig struct {
	TuningPath  string `mapstructure:"tuning_path"`
	Timezone    string `mapstructure:"timezone"`
	Concurrency int    `mapstructure:"concurrency"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.HTTP.Address == "" {
		return fmt.Errorf("http.address is required")
	}
	if cfg.Chart.Size <= 0 || cfg.Chart.FullscreenSize <= 0 {
		return fmt.Errorf("chart sizes must be positive")
	}
	if cfg.Chart.HoverScale < 1 || cfg.Chart.HoverScale > 1.5 {
		return fmt.Errorf("chart.hover_scale must be within [1, 1.5], got %v", cfg.Chart.HoverScale)
	}
	if cfg.Chart.Animation <= 0 || cfg.Chart.FrameInterval <= 0 {
		return fmt.Errorf("chart animation timings must be positive")
	}
	if cfg.Cache.MaxAge <= 0 {
		return fmt.Errorf("cache.max_age must be positive")
	}
	if cfg.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache.sweep_interval must be positive")
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("http.shutdown_timeout must be positive")
	}
	if cfg.Scoring.Concurrency < 1 {
		return fmt.Errorf("scoring.concurrency must be at least 1")
	}
	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}
	if !cfg.App.IsDevelopment() && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required outside development")
	}
	return nil
}
