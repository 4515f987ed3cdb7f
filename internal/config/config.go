package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Model     ModelConfig
	Storage   StorageConfig
	Explain   ExplainConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the pool connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type ModelConfig struct {
	Path         string
	FallbackPath string
	Warmup       bool
}

type StorageConfig struct {
	Dir string
}

type ExplainConfig struct {
	Timeout time.Duration
	Opacity float64
}

type RateLimitConfig struct {
	// Rate uses the limiter "<count>-<unit>" format, e.g. "100-S".
	Rate string
}

type LoggerConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_NAME", "brain_tumor")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("MODEL_PATH", "models/brain_tumor_cnn_v1.safetensors")
	v.SetDefault("MODEL_FALLBACK_PATH", "brain_tumor_cnn_v1.safetensors")
	v.SetDefault("MODEL_WARMUP", false)
	v.SetDefault("STORAGE_DIR", "data/images")
	v.SetDefault("GRADCAM_TIMEOUT", "10s")
	v.SetDefault("OVERLAY_OPACITY", 0.4)
	v.SetDefault("RATE_LIMIT", "100-S")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")

	// Env
	v.AutomaticEnv()

	connLifetime, err := time.ParseDuration(v.GetString("DATABASE_CONN_MAX_LIFETIME"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}
	gradTimeout, err := time.ParseDuration(v.GetString("GRADCAM_TIMEOUT"))
	if err != nil {
		gradTimeout = 10 * time.Second
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connLifetime,
		},
		Model: ModelConfig{
			Path:         v.GetString("MODEL_PATH"),
			FallbackPath: v.GetString("MODEL_FALLBACK_PATH"),
			Warmup:       v.GetBool("MODEL_WARMUP"),
		},
		Storage: StorageConfig{
			Dir: v.GetString("STORAGE_DIR"),
		},
		Explain: ExplainConfig{
			Timeout: gradTimeout,
			Opacity: v.GetFloat64("OVERLAY_OPACITY"),
		},
		RateLimit: RateLimitConfig{
			Rate: v.GetString("RATE_LIMIT"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
			File:   v.GetString("LOG_FILE"),
		},
	}

	return cfg, nil
}
