// Package config loads rangeping settings from an optional YAML file and
// RANGEPING_* environment variables via Viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is a read-only view over a Viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v yields an empty Config.
func New(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
	}
	return &Config{v: v}
}

func (c *Config) GetString(key string) string          { return c.v.GetString(key) }
func (c *Config) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *Config) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *Config) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *Config) IsSet(key string) bool                { return c.v.IsSet(key) }

// Sub returns the subtree at key, or an empty Config when it is absent.
func (c *Config) Sub(key string) *Config {
	return New(c.v.Sub(key))
}

// Unmarshal decodes the whole config into target using mapstructure tags.
func (c *Config) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

// ConfigFile returns the file the settings were read from, if any.
func (c *Config) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "resources")
	v.SetDefault("cache.path", "")
	v.SetDefault("history.dir", "")
	v.SetDefault("probe.backend", BackendCommand)
	v.SetDefault("probe.command", "ping")
	v.SetDefault("probe.args", "-c 4 -W 1")
	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.count", 4)
	v.SetDefault("probe.rate", 0)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8080")
	v.SetDefault("sites.path", "")
	v.SetDefault("log.level", "info")
}

// Load reads path (or ./rangeping.yaml when path is empty and the file
// exists) over the defaults. RANGEPING_PROBE_ARGS overrides probe.args.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("RANGEPING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		return New(v), nil
	}

	v.SetConfigName("rangeping")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return New(v), nil
}

// Probe backends.
const (
	BackendCommand = "command"
	BackendICMP    = "icmp"
)

// Settings is the typed form of the configuration.
type Settings struct {
	DataDir string `mapstructure:"data_dir"`
	Cache   struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"cache"`
	History struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"history"`
	Probe  ProbeSettings `mapstructure:"probe"`
	Server struct {
		Host string `mapstructure:"host"`
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Sites struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sites"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// ProbeSettings selects and parameterizes the reachability probe.
type ProbeSettings struct {
	Backend string        `mapstructure:"backend"`
	Command string        `mapstructure:"command"`
	Args    string        `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
	Count   int           `mapstructure:"count"`
	Rate    float64       `mapstructure:"rate"`
}

// Settings decodes and validates the configuration, filling the cache and
// history paths from data_dir when unset.
func (c *Config) Settings() (Settings, error) {
	var s Settings
	if err := c.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode config: %w", err)
	}
	if s.DataDir == "" {
		s.DataDir = "."
	}
	if s.Cache.Path == "" {
		s.Cache.Path = filepath.Join(s.DataDir, "lookup.db")
	}
	if s.History.Dir == "" {
		s.History.Dir = s.DataDir
	}
	switch s.Probe.Backend {
	case "", BackendCommand:
		s.Probe.Backend = BackendCommand
	case BackendICMP:
	default:
		return s, fmt.Errorf("unknown probe backend %q", s.Probe.Backend)
	}
	if s.Probe.Rate < 0 {
		return s, fmt.Errorf("probe.rate must not be negative, got %v", s.Probe.Rate)
	}
	return s, nil
}

// Addr returns the host:port the HTTP server listens on.
func (s Settings) Addr() string {
	return s.Server.Host + ":" + s.Server.Port
}
