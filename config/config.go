// Package config holds the relay server's runtime settings.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the relay server configuration.
type Config struct {
	Addr           string        // listen address, default ":9090"
	SendBuffer     int           // outbound frames buffered per connection
	HealthInterval time.Duration // cadence of the health report
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Addr:           ":9090",
		SendBuffer:     256,
		HealthInterval: 60 * time.Second,
	}
}

// FromEnv loads configuration from environment variables.
// Falls back to defaults for any missing values.
func FromEnv() *Config {
	cfg := Default()

	if addr := os.Getenv("RELAY_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if v := os.Getenv("RELAY_SEND_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendBuffer = n
		}
	}
	if v := os.Getenv("RELAY_HEALTH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HealthInterval = time.Duration(n) * time.Second
		}
	}
	return cfg
}
