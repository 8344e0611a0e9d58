package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"teamboard/internal/store"
)

const DefaultAPIURL = "http://localhost:5000/api"

type Config struct {
	APIURL         string        `mapstructure:"api_url" json:"api_url" validate:"required,url"`
	SessionBackend string        `mapstructure:"session_backend" json:"session_backend" validate:"oneof=file sqlite memory"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout"`
	LogLevel       string        `mapstructure:"log_level" json:"log_level" validate:"oneof=trace debug info warn error disabled"`
	Format         string        `mapstructure:"format" json:"format" validate:"oneof=json edn table"`
	Pretty         bool          `mapstructure:"pretty" json:"pretty"`

	TUI struct {
		Glyphs string `mapstructure:"glyphs" json:"glyphs" validate:"oneof=unicode ascii"`
	} `mapstructure:"tui" json:"tui"`

	// Dir is the directory holding config.yaml, the session and the TUI log.
	Dir string `mapstructure:"-" json:"dir"`
	// File is the config file that was read, if any.
	File string `mapstructure:"-" json:"file,omitempty"`
}

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"api-url":         "api_url",
	"session-backend": "session_backend",
	"timeout":         "timeout",
	"log-level":       "log_level",
	"format":          "format",
	"pretty":          "pretty",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("session_backend", store.BackendFile)
	v.SetDefault("timeout", "0s")
	v.SetDefault("log_level", "warn")
	v.SetDefault("format", "json")
	v.SetDefault("pretty", false)
	v.SetDefault("tui.glyphs", "unicode")
}

// Load resolves the effective configuration. Precedence: changed flags, then
// TEAMBOARD_* environment variables, then <dir>/config.yaml, then defaults.
// flags may be nil.
func Load(flags *pflag.FlagSet) (Config, error) {
	dir, err := store.ConfigDir()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TEAMBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, err
			}
		}
	}

	path := filepath.Join(dir, "config.yaml")
	var used string
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
		used = path
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.TUI.Glyphs = strings.ToLower(strings.TrimSpace(cfg.TUI.Glyphs))
	cfg.Dir = dir
	cfg.File = used

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
