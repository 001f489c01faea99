package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vertotem/Mastodon-Random-Picker/internal/privacy"
)

const (
	DefaultConfigFile   = "config.yaml"
	DefaultStoragePath  = ".tootpick/tootpick.db"
	DefaultBatchSize    = 40
	MaxBatchSize        = 80
	DefaultPageDelay    = 350 * time.Millisecond
	DefaultPollInterval = 400 * time.Millisecond
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "350ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Display DisplayConfig `yaml:"display"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

// FetchConfig holds the walk defaults; individual commands may override
// them per invocation.
type FetchConfig struct {
	Dialect        string   `yaml:"dialect"` // mastodon, misskey, rss, or auto
	BatchSize      int      `yaml:"batch_size"`
	PageDelay      Duration `yaml:"page_delay"`
	PollInterval   Duration `yaml:"poll_interval"`
	ExcludeReplies bool     `yaml:"exclude_replies"`
	ExcludeReblogs bool     `yaml:"exclude_reblogs"`
}

type DisplayConfig struct {
	HideReplies bool `yaml:"hide_replies"`
	HideReblogs bool `yaml:"hide_reblogs"`
	NoColor     bool `yaml:"no_color"`
	// Redact holds regex patterns masked in displayed post text.
	Redact []string `yaml:"redact"`
}

// Load reads config.yaml from dir, applies defaults, and validates. A
// missing config file yields the defaults: the tool works unconfigured.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	var cfg Config
	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.Path = filepath.Join(home, DefaultStoragePath)
		} else {
			cfg.Storage.Path = DefaultStoragePath
		}
	}
	if cfg.Fetch.Dialect == "" {
		cfg.Fetch.Dialect = "auto"
	}
	if cfg.Fetch.BatchSize == 0 {
		cfg.Fetch.BatchSize = DefaultBatchSize
	}
	if cfg.Fetch.PageDelay.Duration == 0 {
		cfg.Fetch.PageDelay.Duration = DefaultPageDelay
	}
	if cfg.Fetch.PollInterval.Duration == 0 {
		cfg.Fetch.PollInterval.Duration = DefaultPollInterval
	}
}

func validate(cfg *Config) error {
	if cfg.Fetch.BatchSize < 1 || cfg.Fetch.BatchSize > MaxBatchSize {
		return fmt.Errorf("fetch.batch_size: %d out of range 1..%d", cfg.Fetch.BatchSize, MaxBatchSize)
	}

	switch cfg.Fetch.Dialect {
	case "auto", "mastodon", "misskey", "rss":
		// valid
	default:
		return fmt.Errorf("fetch.dialect: unknown dialect %q (want auto, mastodon, misskey, or rss)", cfg.Fetch.Dialect)
	}

	if cfg.Fetch.PageDelay.Duration < 0 || cfg.Fetch.PollInterval.Duration < 0 {
		return errors.New("fetch delays must not be negative")
	}

	if _, err := privacy.New(cfg.Display.Redact); err != nil {
		return fmt.Errorf("display.redact: %w", err)
	}

	return nil
}
