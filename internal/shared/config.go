package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Resolver  ResolverConfig  `toml:"resolver"`
	Playback  PlaybackConfig  `toml:"playback"`
	Transport TransportConfig `toml:"transport"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr joins host and port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ResolverConfig selects and tunes the track resolver.
type ResolverConfig struct {
	Backend   string   `toml:"backend"`
	ProxyURL  string   `toml:"proxy_url"`
	RateLimit float64  `toml:"rate_limit"`
	Burst     int      `toml:"burst"`
	Timeout   Duration `toml:"timeout"`
}

// PlaybackConfig tunes sessions and the idle sweeper.
type PlaybackConfig struct {
	MaxConsecutiveFailures int      `toml:"max_consecutive_failures"`
	IdleGrace              Duration `toml:"idle_grace"`
	SweepInterval          Duration `toml:"sweep_interval"`
	EventBuffer            int      `toml:"event_buffer"`
	PlaceholderTitle       string   `toml:"placeholder_title"`
}

// TransportConfig tunes the loopback transport.
type TransportConfig struct {
	// Speed divides every track length; 60 plays a minute-long track in a second.
	Speed         float64  `toml:"speed"`
	DefaultLength Duration `toml:"default_length"`
	Unreachable   []string `toml:"unreachable"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that decodes from strings like "30s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Validate reports settings that would leave the player unusable.
func (c *Config) Validate() error {
	switch c.Resolver.Backend {
	case "ytdlp", "proxy":
	default:
		return fmt.Errorf("%w: unknown resolver backend %q", ErrInvalidConfig, c.Resolver.Backend)
	}

	if c.Playback.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("%w: max_consecutive_failures must be at least 1", ErrInvalidConfig)
	}

	if c.Playback.SweepInterval.Duration <= 0 {
		return fmt.Errorf("%w: sweep_interval must be positive", ErrInvalidConfig)
	}

	if c.Transport.Speed <= 0 {
		return fmt.Errorf("%w: transport speed must be positive", ErrInvalidConfig)
	}

	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
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
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
