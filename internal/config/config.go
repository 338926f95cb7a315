package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "GUNZGO_CONFIG"

// DefaultPath is used when EnvPath is unset.
const DefaultPath = "config/server.toml"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Network   NetworkConfig   `toml:"network"`
	Match     MatchConfig     `toml:"match"`
	Content   ContentConfig   `toml:"content"`
	Scripting ScriptingConfig `toml:"scripting"`
	Auth      AuthConfig      `toml:"auth"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "postgres", "sqlite" or "none"
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	StoreTimeout    time.Duration `toml:"store_timeout"`
}

type NetworkConfig struct {
	BindAddress      string        `toml:"bind_address"` // TCP frames
	WSAddress        string        `toml:"ws_address"`   // WebSocket + HTTP API
	Codec            string        `toml:"codec"`        // "json" or "msgpack"
	InQueueSize      int           `toml:"in_queue_size"`
	OutQueueSize     int           `toml:"out_queue_size"`
	MaxInputsPerTick int           `toml:"max_inputs_per_tick"`
	WriteTimeout     time.Duration `toml:"write_timeout"`
	ReadTimeout      time.Duration `toml:"read_timeout"`
}

type MatchConfig struct {
	EnforceContentHash bool          `toml:"enforce_content_hash"`
	RecipeHash         string        `toml:"recipe_hash"`
	MaxMatches         int           `toml:"max_matches"`
	IdleTimeout        time.Duration `toml:"idle_timeout"` // empty rooms close after this long
}

type ContentConfig struct {
	Dir          string        `toml:"dir"`
	PollInterval time.Duration `toml:"poll_interval"` // 0 disables reload polling
}

type ScriptingConfig struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

type AuthConfig struct {
	TokenSecret string        `toml:"token_secret"`
	TokenTTL    time.Duration `toml:"token_ttl"`
	// Dev mode issues tokens to anyone over the HTTP API.
	DevLogin bool `toml:"dev_login"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	File   string `toml:"file"`   // optional rotated log file
	// Rotation, only used with File.
	MaxSizeMB  int `toml:"max_size_mb"`
	MaxBackups int `toml:"max_backups"`
	MaxAgeDays int `toml:"max_age_days"`
}

type RateLimitConfig struct {
	Enabled         bool `toml:"enabled"`
	InputsPerSecond int  `toml:"inputs_per_second"`
}

// Path returns the config file path from the environment.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse overlays TOML data on the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "none":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.Network.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("config: unknown codec %q", c.Network.Codec)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "gunzgo",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:gunzgo.db?_pragma=busy_timeout(5000)",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			StoreTimeout:    3 * time.Second,
		},
		Network: NetworkConfig{
			BindAddress:      "0.0.0.0:7350",
			WSAddress:        "0.0.0.0:7351",
			Codec:            "json",
			InQueueSize:      128,
			OutQueueSize:     256,
			MaxInputsPerTick: 32,
			WriteTimeout:     10 * time.Second,
			ReadTimeout:      60 * time.Second,
		},
		Match: MatchConfig{
			MaxMatches:  64,
			IdleTimeout: 60 * time.Second,
		},
		Content: ContentConfig{
			Dir:          "data/yaml",
			PollInterval: 0,
		},
		Scripting: ScriptingConfig{
			Dir:     "scripts",
			Enabled: true,
		},
		Auth: AuthConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			InputsPerSecond: 60,
		},
	}
}
