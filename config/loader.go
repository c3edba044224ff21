package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "MATCHRADAR"

const devJWTSecret = "your_secret_key_please_change_in_production"

// Load reads config.yaml (from path, ./configs or .), merges a .env file when
// present and applies MATCHRADAR_* environment overrides.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// DATABASE_URL is what the deploy scripts export
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.Auth.JWTSecret == "" && cfg.App.IsDevelopment() {
		cfg.Auth.JWTSecret = devJWTSecret
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	for _, p := range []string{".env", "../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "matchradar")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.address", ":8080")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:5173", "http://localhost:3001"})
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.max_age", "30m")
	v.SetDefault("cache.sweep_interval", "1m")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("chart.size", 200)
	v.SetDefault("chart.fullscreen_size", 600)
	v.SetDefault("chart.hover_scale", 1.08)
	v.SetDefault("chart.animation", "300ms")
	v.SetDefault("chart.frame_interval", "16ms")
	v.SetDefault("chart.locale", "ja")
	v.SetDefault("chart.font_path", "")

	v.SetDefault("scoring.tuning_path", "")
	v.SetDefault("scoring.timezone", "Asia/Tokyo")
	v.SetDefault("scoring.concurrency", 8)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
