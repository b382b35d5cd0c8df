package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config defines server configuration.
type Config struct {
	OpenProject OpenProjectConfig `yaml:"openproject"`
	Server      ServerConfig      `yaml:"server"`
	Transport   TransportConfig   `yaml:"transport"`
	Log         LogConfig         `yaml:"log"`

	// ErrorHints maps tool names to guidance appended to their error
	// results. Absent keeps the built-in defaults; an empty map disables them.
	ErrorHints map[string]string `yaml:"error_hints"`
}

type OpenProjectConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TLSInsecure bool          `yaml:"tls_insecure"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// AuthToken, when set, is required as a bearer token on /mcp in HTTP mode.
	AuthToken string `yaml:"auth_token"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		OpenProject: OpenProjectConfig{
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Name:    "openproject-mcp",
			Version: "1.0.0",
		},
		Transport: TransportConfig{
			Mode: TransportStdio,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("OPENPROJECT_MCP_CONFIG"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.OpenProject.BaseURL, "OPENPROJECT_BASE_URL")
	setString(&cfg.OpenProject.APIKey, "OPENPROJECT_API_KEY")
	setString(&cfg.OpenProject.Username, "OPENPROJECT_USERNAME")
	setString(&cfg.OpenProject.Password, "OPENPROJECT_PASSWORD")
	setString(&cfg.Transport.Mode, "MCP_TRANSPORT")
	setString(&cfg.Server.Host, "MCP_SERVER_HOST")
	setString(&cfg.Server.Name, "MCP_SERVER_NAME")
	setString(&cfg.Server.Version, "MCP_SERVER_VERSION")
	setString(&cfg.Server.AuthToken, "MCP_AUTH_TOKEN")
	setString(&cfg.Log.Level, "MCP_LOG_LEVEL")
	setString(&cfg.Log.File, "MCP_LOG_FILE")

	if os.Getenv("NODE_TLS_REJECT_UNAUTHORIZED") == "0" {
		cfg.OpenProject.TLSInsecure = true
	}
	if raw := os.Getenv("OPENPROJECT_TLS_INSECURE"); raw != "" {
		insecure, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid OPENPROJECT_TLS_INSECURE: %w", err)
		}
		cfg.OpenProject.TLSInsecure = insecure
	}
	if raw := os.Getenv("OPENPROJECT_TIMEOUT"); raw != "" {
		timeout, err := parseTimeout(raw)
		if err != nil {
			return fmt.Errorf("invalid OPENPROJECT_TIMEOUT: %w", err)
		}
		cfg.OpenProject.Timeout = timeout
	}
	if raw := os.Getenv("MCP_SERVER_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid MCP_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

// parseTimeout accepts a Go duration ("45s") or a bare number of
// milliseconds ("30000").
func parseTimeout(raw string) (time.Duration, error) {
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(raw)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error

	switch {
	case c.OpenProject.BaseURL == "":
		errs = append(errs, errors.New("OPENPROJECT_BASE_URL is required"))
	default:
		u, err := url.Parse(c.OpenProject.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("OPENPROJECT_BASE_URL must be an http(s) URL, got %q", c.OpenProject.BaseURL))
		}
	}
	if c.OpenProject.APIKey == "" && (c.OpenProject.Username == "" || c.OpenProject.Password == "") {
		errs = append(errs, errors.New("either OPENPROJECT_API_KEY or OPENPROJECT_USERNAME and OPENPROJECT_PASSWORD are required"))
	}
	if c.OpenProject.Timeout < 0 {
		errs = append(errs, errors.New("OPENPROJECT_TIMEOUT must not be negative"))
	}

	switch c.Transport.Mode {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Errorf("MCP_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("MCP_TRANSPORT must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Transport.Mode))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("MCP_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}
