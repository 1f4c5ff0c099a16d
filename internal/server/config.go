// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the chat hub.
package server

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAddress is the listen address used when none is configured.
	DefaultAddress = "127.0.0.1"
	// DefaultPort is the listen port used when none is configured.
	DefaultPort = 12345
	// DefaultMaxMessageSize caps inbound frames and POST bodies.
	DefaultMaxMessageSize int64 = 32 << 10
	// DefaultShutdownTimeout bounds the graceful listener shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate
// limiting. A Burst of zero disables limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings.
type Config struct {
	Address         string
	Port            int
	AllowedOrigins  []string
	MaxMessageSize  int64
	RateLimit       RateLimitConfig
	Dashboard       bool
	ShutdownTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		Address:         DefaultAddress,
		Port:            DefaultPort,
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  DefaultMaxMessageSize,
		RateLimit:       RateLimitConfig{RefillInterval: time.Second},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// Sanitize returns a copy of the configuration with invalid values replaced
// by their defaults.
func (c Config) Sanitize() Config {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = DefaultAddress
	}

	if c.Port <= 0 || c.Port > 65535 {
		c.Port = DefaultPort
	}

	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}

	if c.RateLimit.Burst < 0 {
		c.RateLimit.Burst = 0
	}

	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// ListenAddr returns the host:port the listener binds.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if address := os.Getenv("CHAT_ADDRESS"); address != "" {
		cfg.Address = address
	}

	if port := os.Getenv("CHAT_PORT"); port != "" {
		cfg.Port = parsePort(port, cfg.Port)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	if dashboard := os.Getenv("CHAT_DASHBOARD"); dashboard != "" {
		cfg.Dashboard = parseBoolValue(dashboard, cfg.Dashboard)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parsePort(value string, defaultValue int) int {
	if port, err := strconv.Atoi(value); err == nil && port > 0 && port <= 65535 {
		return port
	}
	return defaultValue
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func parseBoolValue(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}
