package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jusunglee/njt-go/internal/models"
	"github.com/jusunglee/njt-go/internal/njt"
	"github.com/jusunglee/njt-go/internal/sensor"
)

// ErrConfigFailed marks any problem reading or parsing the config file
var ErrConfigFailed = errors.New("config: failed to load")

// Config is the service configuration
type Config struct {
	Listen         string             `yaml:"listen"`
	BaseURL        string             `yaml:"base_url"`
	Credentials    models.Credentials `yaml:"credentials"`
	Timeout        time.Duration      `yaml:"timeout"`
	UpdateInterval time.Duration      `yaml:"update_interval"`
	TokenTTL       time.Duration      `yaml:"token_ttl"`
	NJTOnly        bool               `yaml:"njt_only"`
	LogLevel       string             `yaml:"log_level"`
	LogFormat      string             `yaml:"log_format"`
	Sensors        []SensorConfig     `yaml:"sensors"`
}

// SensorConfig describes one configured sensor
type SensorConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Station     string `yaml:"station"`
	Destination string `yaml:"destination"`
	Limit       int    `yaml:"limit"`
}

// Error carries the path of a config that failed to load
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ErrConfigFailed.Error()
	}
	return fmt.Sprintf("%v: %s: %v", ErrConfigFailed, e.Path, e.Err)
}

func (e *Error) Is(target error) bool { return target == ErrConfigFailed }

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Default returns the configuration used when no file overrides it
func Default() Config {
	return Config{
		Listen:         ":8080",
		BaseURL:        njt.DefaultBaseURL,
		Timeout:        njt.DefaultTimeout,
		UpdateInterval: sensor.DefaultInterval,
		TokenTTL:       njt.DefaultTokenTTL,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads a YAML config file on top of the defaults
// An empty path yields the defaults plus environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Path: path, Err: err}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, &Error{Path: path, Err: err}
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return &cfg, nil
}

// applyEnv falls back to NJT_* variables for unset credentials
func (c *Config) applyEnv() {
	if c.Credentials.Username == "" {
		c.Credentials.Username = os.Getenv("NJT_USERNAME")
	}
	if c.Credentials.Password == "" {
		c.Credentials.Password = os.Getenv("NJT_PASSWORD")
	}
}

func (c *Config) normalize() {
	c.LogLevel = strings.TrimSpace(strings.ToLower(c.LogLevel))
	c.LogFormat = strings.TrimSpace(strings.ToLower(c.LogFormat))
	for i := range c.Sensors {
		s := &c.Sensors[i]
		s.Station = strings.ToUpper(strings.TrimSpace(s.Station))
		s.Destination = strings.ToUpper(strings.TrimSpace(s.Destination))
		if s.ID == "" {
			s.ID = sensor.DefaultID(s.Station, s.Destination)
		}
	}
}

// Validate checks required fields and applies defaults to zero values
func (c *Config) Validate() error {
	switch {
	case c.Credentials.Username == "":
		return errors.New("credentials.username is required (or NJT_USERNAME)")
	case c.Credentials.Password == "":
		return errors.New("credentials.password is required (or NJT_PASSWORD)")
	case len(c.Sensors) == 0:
		return errors.New("at least one sensor is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = njt.DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = njt.DefaultTimeout
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = sensor.DefaultInterval
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = njt.DefaultTokenTTL
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, ok := levels[c.LogLevel]; !ok {
		return fmt.Errorf("unsupported log_level %q", c.LogLevel)
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}

	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.Station == "" {
			return fmt.Errorf("sensors[%d].station is required", i)
		}
		if s.Destination == s.Station {
			return fmt.Errorf("sensors[%d]: destination must differ from station", i)
		}
		if s.Limit < 0 {
			return fmt.Errorf("sensors[%d].limit must not be negative", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate sensor id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// NewLogger builds the slog logger described by the config
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: levels[c.LogLevel]}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
