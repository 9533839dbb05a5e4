// Package config loads cryptii settings from TOML files and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/extensions"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Log     LogConfig     `toml:"log"`
	History HistoryConfig `toml:"history"`
	RunLog  RunLogConfig  `toml:"run_log"`
	Store   StoreConfig   `toml:"store"`
	// Strict reports invalid input from bricks as errors.
	Strict bool `toml:"strict"`
}

type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json human"`
}

// HistoryConfig sizes the undo history. A negative depth disables it.
type HistoryConfig struct {
	Depth       int `toml:"depth"`
	ActionLimit int `toml:"action_limit" validate:"gte=1"`
}

type RunLogConfig struct {
	Limit int `toml:"limit" validate:"gte=0"`
}

type StoreConfig struct {
	Driver string `toml:"driver" validate:"oneof=memory sqlite files"`
	Path   string `toml:"path" validate:"required_unless=Driver memory"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		History: HistoryConfig{
			Depth:       cryptii.DefaultHistoryDepth,
			ActionLimit: cryptii.DefaultHistoryActionLimit,
		},
		RunLog: RunLogConfig{Limit: cryptii.DefaultRunLogLimit},
		Store:  StoreConfig{Driver: "memory"},
	}
}

// Load reads path over the defaults and applies CRYPTII_* overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		_, err := toml.DecodeFile(path, cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("CRYPTII_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CRYPTII_LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("CRYPTII_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("CRYPTII_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CRYPTII_STRICT"); v != "" {
		c.Strict = v == "1" || strings.ToLower(v) == "true"
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"CRYPTII_HISTORY_DEPTH", &c.History.Depth},
		{"CRYPTII_HISTORY_ACTION_LIMIT", &c.History.ActionLimit},
		{"CRYPTII_RUN_LOG_LIMIT", &c.RunLog.Limit},
	}
	for _, o := range ints {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", o.key, err)
		}
		*o.dst = n
	}
	return nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	return validate.Struct(c)
}

// PipeOptions converts the engine settings to pipe options.
func (c *Config) PipeOptions() []cryptii.PipeOption {
	opts := []cryptii.PipeOption{
		cryptii.WithHistory(c.History.Depth, c.History.ActionLimit),
		cryptii.WithRunLogLimit(c.RunLog.Limit),
	}
	if c.Strict {
		opts = append(opts, cryptii.WithStrictErrors())
	}
	return opts
}

func (l LogConfig) level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds the logger described by the log section.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level := l.level()
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case "human":
		return slog.New(extensions.NewHumanHandler(w, level))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
}
