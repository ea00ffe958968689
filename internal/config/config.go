package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/tracectl/pkg/types"
)

const (
	defaultConfigRelPath = ".tracectl/config.yaml"
	defaultPrefsRelPath  = ".tracectl/prefs.db"
)

type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	ReplayTimeout time.Duration `yaml:"replay_timeout"`
}

type PaginationConfig struct {
	SessionPageSize int `yaml:"session_page_size"`
	RecordPageSize  int `yaml:"record_page_size"`
}

// ReplayConfig holds the defaults used when no saved preference exists.
type ReplayConfig = types.ReplayConfig

type SanitizeConfig struct {
	BodyFields  []string `yaml:"body_fields"`
	Replacement string   `yaml:"replacement"`
}

type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

type PrefsConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	API        APIConfig        `yaml:"api"`
	Pagination PaginationConfig `yaml:"pagination"`
	Replay     ReplayConfig     `yaml:"replay"`
	Sanitize   SanitizeConfig   `yaml:"sanitize"`
	Output     OutputConfig     `yaml:"output"`
	Prefs      PrefsConfig      `yaml:"prefs"`
	Log        LogConfig        `yaml:"log"`
}

// Load loads YAML config, then applies env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg, nil
}

// DefaultPath returns ~/.tracectl/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultConfigRelPath), nil
}

func (c *Config) SetDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:10081/api"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.API.ReplayTimeout == 0 {
		c.API.ReplayTimeout = 120 * time.Second
	}
	if c.Pagination.SessionPageSize == 0 {
		c.Pagination.SessionPageSize = 20
	}
	if c.Pagination.RecordPageSize == 0 {
		c.Pagination.RecordPageSize = 50
	}
	if c.Replay.Provider == "" {
		c.Replay.Provider = "openai"
	}
	if c.Replay.Temperature == 0 {
		c.Replay.Temperature = 0.7
	}
	if c.Replay.MaxTokens == 0 {
		c.Replay.MaxTokens = 2048
	}
	if c.Replay.TopP == 0 {
		c.Replay.TopP = 1.0
	}
	if len(c.Sanitize.BodyFields) == 0 {
		c.Sanitize.BodyFields = []string{"api_key", "apikey", "authorization", "password", "secret", "token", "access_token"}
	}
	if c.Sanitize.Replacement == "" {
		c.Sanitize.Replacement = "***REDACTED***"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./export"
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{"markdown"}
	}
	if c.Prefs.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Prefs.Path = filepath.Join(home, defaultPrefsRelPath)
		} else {
			c.Prefs.Path = "prefs.db"
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url is not an absolute URL: %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 || c.API.ReplayTimeout < 0 {
		return errors.New("api timeouts cannot be negative")
	}
	if c.Pagination.SessionPageSize < 1 || c.Pagination.SessionPageSize > 100 {
		return errors.New("pagination.session_page_size must be in [1,100]")
	}
	if c.Pagination.RecordPageSize < 1 || c.Pagination.RecordPageSize > 100 {
		return errors.New("pagination.record_page_size must be in [1,100]")
	}
	for _, f := range c.Output.Formats {
		switch f {
		case "markdown", "yaml":
		default:
			return fmt.Errorf("output.formats: unknown format %q", f)
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	setString(&c.API.BaseURL, "TRACECTL_API_BASE_URL")
	setDuration(&c.API.Timeout, "TRACECTL_API_TIMEOUT")
	setDuration(&c.API.ReplayTimeout, "TRACECTL_API_REPLAY_TIMEOUT")
	setInt(&c.Pagination.SessionPageSize, "TRACECTL_SESSION_PAGE_SIZE")
	setInt(&c.Pagination.RecordPageSize, "TRACECTL_RECORD_PAGE_SIZE")
	setString(&c.Replay.Provider, "TRACECTL_REPLAY_PROVIDER")
	setString(&c.Replay.Model, "TRACECTL_REPLAY_MODEL")
	setString(&c.Output.Dir, "TRACECTL_OUTPUT_DIR")
	setString(&c.Prefs.Path, "TRACECTL_PREFS_PATH")
	setString(&c.Log.Level, "TRACECTL_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
