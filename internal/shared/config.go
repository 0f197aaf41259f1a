package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Catalog   CatalogConfig   `toml:"catalog"`
	Resolver  ResolverConfig  `toml:"resolver"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
}

// CatalogConfig contains catalog API settings and the bearer credential.
//
// The access token is opaque to this application; it is forwarded as-is
// and never refreshed or validated locally.
type CatalogConfig struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
	SearchLimit int    `toml:"search_limit"`
}

// ResolverConfig contains track resolution settings.
type ResolverConfig struct {
	Concurrency    int     `toml:"concurrency"`
	MatchThreshold float64 `toml:"match_threshold"`
	MaxRetries     int     `toml:"max_retries"`
	BaseDelayMS    int     `toml:"base_delay_ms"`
	MaxDelayMS     int     `toml:"max_delay_ms"`
	JitterFactor   float64 `toml:"jitter_factor"`
	RequestsPerSec float64 `toml:"requests_per_sec"`
}

// RateLimitConfig contains settings for the per-caller token bucket guard.
type RateLimitConfig struct {
	Capacity        int `toml:"capacity"`
	WindowMS        int `toml:"window_ms"`
	SweepIntervalMS int `toml:"sweep_interval_ms"`
	MaxIdleMS       int `toml:"max_idle_ms"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
