package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STACK"

// LoaderConfig holds optional file overrides.
type LoaderConfig struct {
	ConfigFile string // Config file path (optional)
	EnvFile    string // .env file path (optional)
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path. Any format Viper
// understands may be used.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load builds a Config from the defaults, the config file, the .env file and
// STACK_-prefixed environment variables, in increasing precedence, and
// validates it. Missing files are skipped; unreadable ones are errors.
func Load(opts ...LoaderOption) (*Config, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	setDefaults(v, Default())

	if lc.ConfigFile != "" && exists(lc.ConfigFile) {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", lc.ConfigFile, err)
		}
	}

	if lc.EnvFile != "" && exists(lc.EnvFile) {
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", lc.EnvFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment variables are seen by
// Unmarshal even when no file sets them.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("stream.buffer_size", d.Stream.BufferSize)
	v.SetDefault("channel.capacity", d.Channel.Capacity)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("rate_limit.rate", d.RateLimit.Rate)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("max_in_flight", d.MaxInFlight)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("websocket.addr", d.WebSocket.Addr)
	v.SetDefault("websocket.read_timeout", d.WebSocket.ReadTimeout)
	v.SetDefault("websocket.write_timeout", d.WebSocket.WriteTimeout)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
