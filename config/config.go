package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport names accepted by server.transport
const (
	TransportAPI      = "api"
	TransportMCPStdio = "mcp-stdio"
	TransportMCPHTTP  = "mcp-http"
)

// EnvPrefix is the prefix for environment variable overrides (REQBOX_SANDBOX_TIMEOUT_MS).
const EnvPrefix = "REQBOX"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Client  ClientConfig  `mapstructure:"client"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// SandboxConfig holds pre-request script sandbox configuration
type SandboxConfig struct {
	TimeoutMs        int      `mapstructure:"timeout_ms"`
	MaxScriptSizeKB  int      `mapstructure:"max_script_size_kb"`
	MaxCallStackSize int      `mapstructure:"max_call_stack_size"`
	MaxConsoleLines  int      `mapstructure:"max_console_lines"`
	Capabilities     []string `mapstructure:"capabilities"`
}

// ClientConfig holds outgoing HTTP client configuration
type ClientConfig struct {
	TimeoutSec      int  `mapstructure:"timeout_sec"`
	MaxResponseMB   int  `mapstructure:"max_response_mb"`
	FollowRedirects bool `mapstructure:"follow_redirects"`
}

// HistoryConfig holds request history configuration
type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration from config.yaml
// in the working directory or ./config, falling back to defaults.
func New() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	return decode(v)
}

// Load reads the configuration from an explicit file path. An empty path
// behaves like New.
func Load(path string) (*Config, error) {
	if path == "" {
		return New()
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Default returns the validated default configuration without touching the filesystem.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// defaults are static and always valid
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.transport", TransportAPI)
	v.SetDefault("server.http_port", 3001)

	v.SetDefault("sandbox.timeout_ms", 5000)
	v.SetDefault("sandbox.max_script_size_kb", 256)
	v.SetDefault("sandbox.max_call_stack_size", 1024)
	v.SetDefault("sandbox.max_console_lines", 200)
	v.SetDefault("sandbox.capabilities", []string{"console", "timers", "buffer"})

	v.SetDefault("client.timeout_sec", 30)
	v.SetDefault("client.max_response_mb", 10)
	v.SetDefault("client.follow_redirects", true)

	v.SetDefault("history.limit", 50)

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportAPI, TransportMCPStdio, TransportMCPHTTP:
	default:
		return fmt.Errorf("invalid server.transport: %s, must be one of '%s', '%s', '%s'",
			c.Server.Transport, TransportAPI, TransportMCPStdio, TransportMCPHTTP)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535, got: %d", c.Server.HTTPPort)
	}

	if c.Sandbox.TimeoutMs <= 0 {
		return fmt.Errorf("sandbox.timeout_ms must be positive, got: %d", c.Sandbox.TimeoutMs)
	}

	if c.Sandbox.MaxScriptSizeKB <= 0 {
		return fmt.Errorf("sandbox.max_script_size_kb must be positive, got: %d", c.Sandbox.MaxScriptSizeKB)
	}

	if c.Sandbox.MaxCallStackSize <= 0 {
		return fmt.Errorf("sandbox.max_call_stack_size must be positive, got: %d", c.Sandbox.MaxCallStackSize)
	}

	if c.Sandbox.MaxConsoleLines < 0 {
		return fmt.Errorf("sandbox.max_console_lines must not be negative, got: %d", c.Sandbox.MaxConsoleLines)
	}

	if c.Client.TimeoutSec <= 0 {
		return fmt.Errorf("client.timeout_sec must be positive, got: %d", c.Client.TimeoutSec)
	}

	if c.Client.MaxResponseMB <= 0 {
		return fmt.Errorf("client.max_response_mb must be positive, got: %d", c.Client.MaxResponseMB)
	}

	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be positive, got: %d", c.History.Limit)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
		"dpanic": true, "panic": true, "fatal": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// GetScriptTimeout returns the pre-request script budget as a duration
func (c *Config) GetScriptTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutMs) * time.Millisecond
}

// GetClientTimeout returns the outgoing request timeout as a duration
func (c *Config) GetClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSec) * time.Second
}

// ListenAddr returns the address the HTTP transports bind to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.HTTPPort)
}
