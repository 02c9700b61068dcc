package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/jward/apisnap/internal/collect"
	"github.com/jward/apisnap/internal/model"
)

// DefaultFile is the config file looked up in the working directory when no
// explicit path is given.
const DefaultFile = "apisnap.yaml"

// BlobName is the file name of the persisted snapshot inside Output.
const BlobName = "api-blob"

// Config holds all build configuration.
type Config struct {
	DB        string          `mapstructure:"db"`
	Output    string          `mapstructure:"output"`
	Baseline  string          `mapstructure:"baseline"`
	Version   string          `mapstructure:"version"`
	Facade    FacadeConfig    `mapstructure:"facade"`
	Collector CollectorConfig `mapstructure:"collector"`
	Log       LogConfig       `mapstructure:"log"`
}

type FacadeConfig struct {
	Output    string `mapstructure:"output"`
	Templates string `mapstructure:"templates"`
}

type CollectorConfig struct {
	RootType         string `mapstructure:"root_type"`
	ModuleDescriptor string `mapstructure:"module_descriptor"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DB:     filepath.Join(".apisnap", "apisnap.db"),
		Output: filepath.Join("build", "apisnap"),
		Facade: FacadeConfig{
			Output: filepath.Join("generated", "dispatcher.go"),
		},
		Collector: CollectorConfig{
			RootType:         collect.DefaultRootType,
			ModuleDescriptor: collect.DefaultModuleDescriptor,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// BaselinePath is the blob compared against, which defaults to the blob
// written into Output by the previous build.
func (c *Config) BaselinePath() string {
	if c.Baseline != "" {
		return c.Baseline
	}
	return filepath.Join(c.Output, BlobName)
}

// Override parses the version override, if one is set.
func (c *Config) Override() (*model.Version, error) {
	if c.Version == "" {
		return nil, nil
	}
	v, err := model.ParseVersion(c.Version)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.DB == "" {
		errs = append(errs, errors.New("db path is empty"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output directory is empty"))
	}
	if c.Facade.Output == "" {
		errs = append(errs, errors.New("facade.output is empty"))
	}
	if _, err := c.Override(); err != nil {
		errs = append(errs, fmt.Errorf("version: %w", err))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Load reads configuration from file and environment. An empty path looks
// for apisnap.yaml in the working directory and tolerates its absence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, filepath.Ext(DefaultFile)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("APISNAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("db", d.DB)
	v.SetDefault("output", d.Output)
	v.SetDefault("baseline", d.Baseline)
	v.SetDefault("version", d.Version)
	v.SetDefault("facade.output", d.Facade.Output)
	v.SetDefault("facade.templates", d.Facade.Templates)
	v.SetDefault("collector.root_type", d.Collector.RootType)
	v.SetDefault("collector.module_descriptor", d.Collector.ModuleDescriptor)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// NewLogger builds the slog logger described by c, writing to w.
func NewLogger(c LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log.format %q: want text or json", c.Format)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
