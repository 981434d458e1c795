// Package config loads the settings shared by the predict and freightprobe
// commands. Values come from defaults, an optional freightml.yaml file, an
// optional .env file and FREIGHTML_* environment variables, in increasing
// order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "FREIGHTML"

	// FileName is the config file looked up in the working directory.
	FileName = "freightml"
)

// Config holds every tunable used by the commands.
type Config struct {
	ModelDir          string  `mapstructure:"model_dir"`
	DistanceModelFile string  `mapstructure:"distance_model_file"`
	AmountModelFile   string  `mapstructure:"amount_model_file"`
	LayoutFile        string  `mapstructure:"layout_file"`
	LogLevel          string  `mapstructure:"log_level"`
	LogFormat         string  `mapstructure:"log_format"`
	DefaultSrcFactor  float64 `mapstructure:"default_source_factor"`
	DefaultDstFactor  float64 `mapstructure:"default_dest_factor"`
	SearchThreshold   float64 `mapstructure:"search_threshold"`
	SearchTop         int     `mapstructure:"search_top"`
}

// DistanceModelPath is the absolute-or-relative path of the 3-feature model.
func (c *Config) DistanceModelPath() string {
	return c.resolve(c.DistanceModelFile)
}

// AmountModelPath is the path of the 772-feature amount model.
func (c *Config) AmountModelPath() string {
	return c.resolve(c.AmountModelFile)
}

// LayoutPath is where the discovered layout constants are written.
func (c *Config) LayoutPath() string {
	return c.resolve(c.LayoutFile)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ModelDir, name)
}

// Validate rejects settings the commands cannot work with.
func (c *Config) Validate() error {
	if c.DefaultSrcFactor <= 0 {
		return errors.NewValidationError("default_source_factor", "must be positive", c.DefaultSrcFactor)
	}
	if c.DefaultDstFactor <= 0 {
		return errors.NewValidationError("default_dest_factor", "must be positive", c.DefaultDstFactor)
	}
	if c.SearchThreshold < 0 {
		return errors.NewValidationError("search_threshold", "must not be negative", c.SearchThreshold)
	}
	if c.SearchTop <= 0 {
		return errors.NewValidationError("search_top", "must be positive", c.SearchTop)
	}
	if strings.TrimSpace(c.DistanceModelFile) == "" || strings.TrimSpace(c.AmountModelFile) == "" {
		return errors.NewValidationError("model files", "must not be empty", "")
	}
	return nil
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model_dir", ".")
	v.SetDefault("distance_model_file", "xgboost_model.json")
	v.SetDefault("amount_model_file", "xgboost_amount_model.json")
	v.SetDefault("layout_file", "model_config.yaml")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("default_source_factor", 1.2)
	v.SetDefault("default_dest_factor", 1.2)
	v.SetDefault("search_threshold", 0.1)
	v.SetDefault("search_top", 10)
}

// Load reads the configuration. dir is searched for freightml.yaml and .env;
// an empty dir means the working directory. Missing files are not an error.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}

	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "load %s", envFile)
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
