package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/stack-go/adapter"
	"github.com/felixgeelhaar/stack-go/bridge"
	"github.com/felixgeelhaar/stack-go/middleware"
	"github.com/felixgeelhaar/stack-go/stage"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds the knobs of a stack.
type Config struct {
	Stream      StreamConfig    `mapstructure:"stream"`
	Channel     ChannelConfig   `mapstructure:"channel"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	MaxInFlight int             `mapstructure:"max_in_flight"`
	Log         LogConfig       `mapstructure:"log"`
	WebSocket   WebSocketConfig `mapstructure:"websocket"`
}

// StreamConfig configures the stream adapter.
type StreamConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// ChannelConfig configures the channel adapter.
type ChannelConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	Rate  int `mapstructure:"rate"`
	Burst int `mapstructure:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WebSocketConfig configures the WebSocket transport.
type WebSocketConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Stream:  StreamConfig{BufferSize: bridge.DefaultBufferSize},
		Channel: ChannelConfig{Capacity: adapter.DefaultChannelCapacity},
		Log:     LogConfig{Level: "info", Format: FormatJSON},
		WebSocket: WebSocketConfig{
			Addr:         ":8080",
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Stream.BufferSize <= 0 {
		return fmt.Errorf("stream.buffer_size must be positive (got: %d)", c.Stream.BufferSize)
	}
	if c.Channel.Capacity < 0 {
		return fmt.Errorf("channel.capacity must not be negative (got: %d)", c.Channel.Capacity)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative (got: %s)", c.Timeout)
	}
	if c.RateLimit.Rate < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.rate and rate_limit.burst must not be negative")
	}
	if c.RateLimit.Rate > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit.burst is required when rate_limit.rate is set")
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("max_in_flight must not be negative (got: %d)", c.MaxInFlight)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		return fmt.Errorf("log.level must be one of [debug, info, warn, error] (got: %s)", c.Log.Level)
	}
	switch c.Log.Format {
	case FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("log.format must be one of [json, console] (got: %s)", c.Log.Format)
	}
	return nil
}

// StreamOptions returns the stream adapter options for c.
func (c *Config) StreamOptions() []adapter.StreamOption {
	return []adapter.StreamOption{adapter.WithBufferSize(c.Stream.BufferSize)}
}

// ChannelOptions returns the channel adapter options for c.
func (c *Config) ChannelOptions() []adapter.ChannelOption {
	return []adapter.ChannelOption{adapter.WithCapacity(c.Channel.Capacity)}
}

// Logger returns a zerolog-backed logger writing to stderr.
func (c *Config) Logger() middleware.Logger {
	return c.LoggerTo(os.Stderr)
}

// LoggerTo returns a zerolog-backed logger writing to w.
func (c *Config) LoggerTo(w io.Writer) middleware.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(c.Log.Format, FormatConsole) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return middleware.NewZerologLogger(zl)
}

// Middleware returns the middleware stack c describes for the named stage:
// recovery, request IDs and logging, then each of timeout, rate limit and
// concurrency limit that is enabled.
func Middleware[I, O any](c *Config, name string) []stage.Middleware[I, O] {
	logger := c.Logger()
	mws := middleware.DefaultStack[I, O](logger, name)

	if c.Timeout > 0 {
		mws = append(mws, middleware.Timeout[I, O](c.Timeout))
	}
	if c.RateLimit.Rate > 0 {
		mws = append(mws, middleware.RateLimit[I, O](c.RateLimit.Rate, c.RateLimit.Burst,
			middleware.WithRateLimitLogger(logger)))
	}
	if c.MaxInFlight > 0 {
		mws = append(mws, middleware.ConcurrencyLimit[I, O](c.MaxInFlight))
	}
	return mws
}
