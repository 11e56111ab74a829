package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file and
// the environment.
const (
	DefaultAPIBase           = "http://localhost:8000"
	DefaultRequestTimeout    = 10 * time.Second
	DefaultPollInterval      = 15 * time.Second
	DefaultLogWindow         = 40
	DefaultHTTPPort          = 8080
	DefaultBroadcastInterval = 5 * time.Second
	DefaultLogLevel          = "info"
)

// Config is the top-level configuration for the dashboard and the console.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
}

// ClientConfig holds the settings for talking to the remote prediction service.
type ClientConfig struct {
	// APIBase is the base URL of the prediction service, without trailing slash.
	// Overridden by the API_BASE environment variable.
	APIBase string `yaml:"api_base"`

	// RequestTimeout bounds a single HTTP request to the prediction service.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PollInterval controls how often /health is queried.
	PollInterval time.Duration `yaml:"poll_interval"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS dial options for the prediction service.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ServerConfig holds the dashboard's own HTTP surface and display settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket stream and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// BroadcastInterval controls how often the status snapshot is pushed to
	// WebSocket clients even when nothing changed.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// LogWindow is the number of recent activity-log entries kept for display.
	LogWindow int `yaml:"log_window"`

	// LogLevel is the process log level: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`
}

// SlogLevel returns LogLevel as a slog.Level. Unknown values map to info;
// validate rejects them before this is reached.
func (s ServerConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// envOverrides lists the environment variables that take precedence over
// the config file. Zero values mean "not set".
type envOverrides struct {
	APIBase      string        `envconfig:"API_BASE"`
	PollInterval time.Duration `envconfig:"KUROHANA_POLL_INTERVAL"`
	HTTPPort     int           `envconfig:"KUROHANA_HTTP_PORT"`
	LogLevel     string        `envconfig:"KUROHANA_LOG_LEVEL"`
}

// Load reads the YAML config file at path, overlays environment variables
// and validates the result.
//
// An empty path or a missing file is not an error: defaults plus the
// environment are used, so `API_BASE=... dashboard` works without a file.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("config: file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("config: read file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse yaml: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	cfg.Client.APIBase = strings.TrimRight(cfg.Client.APIBase, "/")

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Client: ClientConfig{
			APIBase:        DefaultAPIBase,
			RequestTimeout: DefaultRequestTimeout,
			PollInterval:   DefaultPollInterval,
		},
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
			LogWindow:         DefaultLogWindow,
			LogLevel:          DefaultLogLevel,
		},
	}
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}
	if env.APIBase != "" {
		cfg.Client.APIBase = env.APIBase
	}
	if env.PollInterval != 0 {
		cfg.Client.PollInterval = env.PollInterval
	}
	if env.HTTPPort != 0 {
		cfg.Server.HTTPPort = env.HTTPPort
	}
	if env.LogLevel != "" {
		cfg.Server.LogLevel = env.LogLevel
	}
	return nil
}

// validate checks every field and reports all problems at once.
func validate(cfg *Config) error {
	var err error

	u, perr := url.Parse(cfg.Client.APIBase)
	switch {
	case cfg.Client.APIBase == "":
		err = multierr.Append(err, errors.New("client.api_base is required"))
	case perr != nil:
		err = multierr.Append(err, fmt.Errorf("client.api_base: %w", perr))
	case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
		err = multierr.Append(err, fmt.Errorf("client.api_base %q must be an absolute http(s) URL", cfg.Client.APIBase))
	}
	if cfg.Client.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("client.request_timeout must be positive"))
	}
	if cfg.Client.PollInterval <= 0 {
		err = multierr.Append(err, errors.New("client.poll_interval must be positive"))
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		err = multierr.Append(err, fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort))
	}
	if cfg.Server.BroadcastInterval <= 0 {
		err = multierr.Append(err, errors.New("server.broadcast_interval must be positive"))
	}
	if cfg.Server.LogWindow <= 0 {
		err = multierr.Append(err, errors.New("server.log_window must be positive"))
	}
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", cfg.Server.LogLevel))
	}

	return err
}
