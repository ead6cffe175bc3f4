// Package config loads service settings from an optional .env file, an
// optional config file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Addr    string `mapstructure:"addr"`
	TLSCert string `mapstructure:"tls_cert"`
	TLSKey  string `mapstructure:"tls_key"`

	TokenKey             string `mapstructure:"token_key"`
	OperatorLogin        string `mapstructure:"operator_login"`
	OperatorPasswordHash string `mapstructure:"operator_password_hash"`

	DatabaseDriver string `mapstructure:"database_driver"`
	DatabaseURL    string `mapstructure:"database_url"`

	DriftLimit float64 `mapstructure:"drift_limit"`
	LogLevel   string  `mapstructure:"log_level"`
	RateLimit  float64 `mapstructure:"rate_limit"`
	RateBurst  int     `mapstructure:"rate_burst"`
}

var defaults = map[string]any{
	"addr":                   ":8080",
	"tls_cert":               "",
	"tls_key":                "",
	"token_key":              "",
	"operator_login":         "",
	"operator_password_hash": "",
	"database_driver":        "",
	"database_url":           "",
	"drift_limit":            0.01,
	"log_level":              "info",
	"rate_limit":             1.0,
	"rate_burst":             3,
}

// Load reads the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the settings shared by the server and the CLI.
func (c *Config) Validate() error {
	if math.IsNaN(c.DriftLimit) || math.IsInf(c.DriftLimit, 0) || c.DriftLimit <= 0 {
		return fmt.Errorf("drift_limit must be a positive number, got %v", c.DriftLimit)
	}
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	if c.DatabaseDriver == "" && c.DatabaseURL != "" {
		c.DatabaseDriver = "postgres"
	}
	switch c.DatabaseDriver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("database_driver must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("rate_limit and rate_burst must be positive")
	}
	return nil
}

// ValidateServer additionally requires the operator credentials.
func (c *Config) ValidateServer() error {
	if c.TokenKey == "" {
		return errors.New("TOKEN_KEY environment variable is not set")
	}
	if c.OperatorLogin == "" || c.OperatorPasswordHash == "" {
		return errors.New("OPERATOR_LOGIN and OPERATOR_PASSWORD_HASH must be set")
	}
	return nil
}
