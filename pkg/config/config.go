// Package config handles application configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultTokenFile = "./kite_tokens.json"
	DefaultDataDir   = "./historical_data"
)

// Config holds the full application configuration.
type Config struct {
	Credentials Credentials    `mapstructure:"credentials"`
	TokenFile   string         `mapstructure:"token_file"`
	DataDir     string         `mapstructure:"data_dir"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
}

// Credentials is the broker credential bundle, read once at startup.
type Credentials struct {
	Email     string `mapstructure:"email"`
	Password  string `mapstructure:"password"`
	UserID    string `mapstructure:"user_id"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	TOTPKey   string `mapstructure:"totp_key"`
}

// TelegramConfig holds optional Telegram notification settings.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Users   []int  `mapstructure:"users"`
}

// Load reads configuration from the given file (optional) with
// KITEFEED_* environment variables taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("KITEFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("token_file", DefaultTokenFile)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("telegram.enabled", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that every credential field required for the login
// flow is present. Missing fields are reported together.
func (c *Config) Validate() error {
	missing := make([]string, 0)

	fields := []struct {
		name  string
		value string
	}{
		{"user_id", c.Credentials.UserID},
		{"password", c.Credentials.Password},
		{"api_key", c.Credentials.APIKey},
		{"api_secret", c.Credentials.APISecret},
		{"totp_key", c.Credentials.TOTPKey},
	}

	for _, field := range fields {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing credential fields: %s", strings.Join(missing, ", "))
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return errors.New("telegram enabled but no token configured")
	}

	return nil
}
