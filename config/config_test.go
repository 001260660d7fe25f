package config

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/stack-go/stage"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero buffer size", func(c *Config) { c.Stream.BufferSize = 0 }, "stream.buffer_size"},
		{"negative capacity", func(c *Config) { c.Channel.Capacity = -1 }, "channel.capacity"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"rate without burst", func(c *Config) { c.RateLimit.Rate = 10 }, "rate_limit.burst"},
		{"negative in flight", func(c *Config) { c.MaxInFlight = -2 }, "max_in_flight"},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Stream.BufferSize != Default().Stream.BufferSize {
		t.Errorf("buffer size = %d", cfg.Stream.BufferSize)
	}
	if cfg.WebSocket.ReadTimeout != 60*time.Second {
		t.Errorf("read timeout = %s", cfg.WebSocket.ReadTimeout)
	}
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stack.yml")

	yamlContent := `
stream:
  buffer_size: 4096
channel:
  capacity: 8
timeout: 5s
rate_limit:
  rate: 100
  burst: 20
log:
  level: debug
  format: console
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.Stream.BufferSize != 4096 {
		t.Errorf("buffer size = %d, want 4096", cfg.Stream.BufferSize)
	}
	if cfg.Channel.Capacity != 8 {
		t.Errorf("capacity = %d, want 8", cfg.Channel.Capacity)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.Timeout)
	}
	if cfg.RateLimit.Rate != 100 || cfg.RateLimit.Burst != 20 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != FormatConsole {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.WebSocket.Addr != ":8080" {
		t.Errorf("unset keys should keep defaults, addr = %q", cfg.WebSocket.Addr)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stack.yml")
	if err := os.WriteFile(configPath, []byte("max_in_flight: 4\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("STACK_MAX_IN_FLIGHT", "16")
	t.Setenv("STACK_WEBSOCKET_ADDR", "127.0.0.1:9000")

	cfg, err := Load(WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.MaxInFlight != 16 {
		t.Errorf("max_in_flight = %d, want 16", cfg.MaxInFlight)
	}
	if cfg.WebSocket.Addr != "127.0.0.1:9000" {
		t.Errorf("addr = %q", cfg.WebSocket.Addr)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("STACK_CHANNEL_CAPACITY=32\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	// godotenv skips variables that are already set, even when empty.
	t.Setenv("STACK_CHANNEL_CAPACITY", "")
	os.Unsetenv("STACK_CHANNEL_CAPACITY")

	cfg, err := Load(WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Channel.Capacity != 32 {
		t.Errorf("capacity = %d, want 32", cfg.Channel.Capacity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(WithConfigFile("/nonexistent/stack.yml"), WithEnvFile("/nonexistent/.env")); err != nil {
		t.Fatalf("expected Load to succeed with missing files, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("STACK_LOG_FORMAT", "xml")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "log.format") {
		t.Fatalf("Load() = %v, want log.format error", err)
	}
}

func TestLoggerTo(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.LoggerTo(&buf)
	logger.Info("dropped")
	logger.Warn("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %q", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["message"] != "kept" {
		t.Errorf("message = %v, want kept", entry["message"])
	}
}

func TestMiddleware(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "error"
	cfg.Timeout = time.Second
	cfg.RateLimit = RateLimitConfig{Rate: 1, Burst: 1}
	cfg.MaxInFlight = 2

	mws := Middleware[string, string](&cfg, "echo")
	if len(mws) != 6 {
		t.Fatalf("len = %d, want 6", len(mws))
	}

	s := stage.Chain(mws...)(stage.Func[string, string](func(_ context.Context, in string) (string, error) {
		return in, nil
	}))

	if out, err := s.Call(context.Background(), "a"); err != nil || out != "a" {
		t.Fatalf("first call = %q, %v", out, err)
	}
	if _, err := s.Call(context.Background(), "b"); !stage.IsMediation(err) {
		t.Fatalf("second call = %v, want rate limit mediation", err)
	}
}

func TestAdapterOptions(t *testing.T) {
	cfg := Default()
	if len(cfg.StreamOptions()) != 1 || len(cfg.ChannelOptions()) != 1 {
		t.Error("expected one option each")
	}
}
