// internal/config/config.go
package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"contexter/internal/container"
)

// EnvPrefix prefixes every environment override, e.g. CONTEXTER_LOG_LEVEL
const EnvPrefix = "CONTEXTER"

type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Safe struct {
		Root            string `mapstructure:"root"`
		CacheSize       int    `mapstructure:"cache_size"`
		CompressMinSize int    `mapstructure:"compress_min_size"`
		CompressLevel   int    `mapstructure:"compress_level"`
	} `mapstructure:"safe"`

	Environment string `mapstructure:"environment"` // development, production
	LogLevel    string `mapstructure:"log_level"`   // debug, info, warn, error

	Format       string        `mapstructure:"format"` // md, html
	Mirror       string        `mapstructure:"mirror"` // walk, rsync
	IgnoreFile   string        `mapstructure:"ignore_file"`
	Exclude      []string      `mapstructure:"exclude"`
	ContextLines int           `mapstructure:"context_lines"`
	Debounce     time.Duration `mapstructure:"debounce"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", ".contexter/db")
	v.SetDefault("safe.root", ".contexter/containers")
	v.SetDefault("safe.cache_size", 128)
	v.SetDefault("safe.compress_min_size", 1024)
	v.SetDefault("safe.compress_level", 2)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("format", string(container.FormatMarkdown))
	v.SetDefault("mirror", "walk")
	v.SetDefault("ignore_file", ".gitignore")
	v.SetDefault("exclude", []string{})
	v.SetDefault("context_lines", 3)
	v.SetDefault("debounce", 500*time.Millisecond)
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"log-level":     "log_level",
	"format":        "format",
	"mirror":        "mirror",
	"exclude":       "exclude",
	"ignore-file":   "ignore_file",
	"context-lines": "context_lines",
	"debounce":      "debounce",
	"host":          "server.host",
	"port":          "server.port",
	"db":            "database.path",
}

// Default returns the configuration with nothing but defaults applied
func Default() *Config {
	cfg, _ := Load("", nil)
	return cfg
}

// Load resolves the configuration: defaults, then the config file, then
// CONTEXTER_* environment variables, then flags that were set explicitly.
// With an empty path, contexter.yaml or contexter.json in the working
// directory is used when present.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("contexter")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := container.ParseFormat(c.Format); err != nil {
		return err
	}
	switch c.Mirror {
	case "walk", "rsync":
	default:
		return fmt.Errorf("unknown mirror %q (want walk or rsync)", c.Mirror)
	}
	if c.ContextLines < 0 {
		return fmt.Errorf("context lines must not be negative, got %d", c.ContextLines)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// Addr is the listen address of the service
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
