package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration knobs.
type Config struct {
	API struct {
		BaseURL        string        `mapstructure:"base_url"`
		AppToken       string        `mapstructure:"app_token"`
		UserToken      string        `mapstructure:"user_token"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
		Echo           bool          `mapstructure:"echo"`
	} `mapstructure:"api"`
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"http"`
	Storage struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"storage"`
	Auth struct {
		Enabled   bool   `mapstructure:"enabled"`
		Username  string `mapstructure:"username"`
		Password  string `mapstructure:"password"`
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
}

// DefaultPassword is the shipped relay password. The relay refuses to start
// with it while auth is enabled.
const DefaultPassword = "change-me"

// ErrDefaultPassword is returned by CheckRelayAuth for an unchanged or empty
// relay password.
var ErrDefaultPassword = errors.New("auth.password must be changed from the default before serving")

// CheckRelayAuth reports whether the relay may start with these credentials.
func (c *Config) CheckRelayAuth() error {
	if !c.Auth.Enabled {
		return nil
	}
	password := strings.TrimSpace(c.Auth.Password)
	if password == "" || password == DefaultPassword {
		return ErrDefaultPassword
	}
	return nil
}

// FlagBindings maps config keys to command-line flag names.
var FlagBindings = map[string]string{
	"api.base_url":   "base-url",
	"api.app_token":  "app-token",
	"api.user_token": "user-token",
	"api.echo":       "echo",
	"log.level":      "log-level",
	"storage.path":   "history-db",
}

// Load reads the configuration from disk, environment and, when flags is
// non-nil, the command line. Flags win over env, env over the file.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("pushover")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for key, name := range FlagBindings {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// missing files are fine, env and flags may carry everything
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.pushover.net")
	v.SetDefault("api.app_token", "")
	v.SetDefault("api.user_token", "")
	v.SetDefault("api.request_timeout", "15s")
	v.SetDefault("api.echo", false)

	v.SetDefault("http.addr", ":8091")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")

	v.SetDefault("storage.path", "")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", DefaultPassword)
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
}
