// Package config loads server configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration tree.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig groups the listener settings.
type ServerConfig struct {
	GRPC            GRPCConfig      `mapstructure:"grpc"`
	WebSocket       WebSocketConfig `mapstructure:"websocket"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
}

// GRPCConfig configures the gRPC listener.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// WebSocketConfig configures the WebSocket listener.
type WebSocketConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig configures the PostgreSQL pool. An empty URL runs the
// engine memory-only.
type DatabaseConfig struct {
	URL      string        `mapstructure:"url"`
	MaxConns int32         `mapstructure:"max_conns"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig carries the match-engine parameters.
type GameConfig struct {
	BoardLength       int `mapstructure:"board_length"`
	SeatCount         int `mapstructure:"seat_count"`
	SubscriberBacklog int `mapstructure:"subscriber_backlog"`
}

// Load reads configuration from the given file, environment variables
// (PESAMALI_ prefix), and defaults, in that order of precedence. A missing
// file is not an error; defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.timeout", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("game.board_length", 80)
	v.SetDefault("game.seat_count", 2)
	v.SetDefault("game.subscriber_backlog", 64)

	v.SetEnvPrefix("PESAMALI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// Tolerate a missing file; reject a malformed one.
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
