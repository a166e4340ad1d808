package canonkv

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config is the §6 tunable surface: caps the core enforces on encode and on
// list_keys. The teacher carries no config library (Options is a plain
// struct literal); canonkv's surface is externally tunable enough to
// warrant one, following papapumpkin-quasar's viper-backed cmd/root.go.
type Config struct {
	MaxListElements  int `mapstructure:"max_list_elements" toml:"max_list_elements"`
	MaxMemoryBytes   int `mapstructure:"max_memory_bytes" toml:"max_memory_bytes"`
	MaxFlagCount     int `mapstructure:"max_flag_count" toml:"max_flag_count"`
	ListLimitDefault int `mapstructure:"list_limit_default" toml:"list_limit_default"`
	ListLimitMax     int `mapstructure:"list_limit_max" toml:"list_limit_max"`
}

// DefaultConfig returns §6's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxListElements:  1 << 24,
		MaxMemoryBytes:   64 << 20,
		MaxFlagCount:     32,
		ListLimitDefault: 1000,
		ListLimitMax:     100000,
	}
}

// LoadConfig reads defaults, then an optional TOML file at path (skipped
// silently if path is empty or the file doesn't exist), then CANONKV_*
// environment overrides, mirroring quasar's initConfig layering
// (file, then env, defaults first here since viper applies them last).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("max_list_elements", def.MaxListElements)
	v.SetDefault("max_memory_bytes", def.MaxMemoryBytes)
	v.SetDefault("max_flag_count", def.MaxFlagCount)
	v.SetDefault("list_limit_default", def.ListLimitDefault)
	v.SetDefault("list_limit_max", def.ListLimitMax)

	v.SetEnvPrefix("CANONKV")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("canonkv: reading config %s: %w", path, err)
			}
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("canonkv: decoding config: %w", err)
	}
	return cfg, nil
}

// MarshalTOML renders cfg as a TOML document, for writing out a starter
// config file next to a fresh store directory.
func (c *Config) MarshalTOML() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("canonkv: encoding config as toml: %w", err)
	}
	return buf.Bytes(), nil
}
