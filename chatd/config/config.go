package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig stores HTTP listener details.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig stores database connection details.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // Path to .db file
}

// AuthConfig stores token verification and password hashing settings.
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

// OracleConfig stores the generative-language backend settings.
type OracleConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"` // per-call deadline
}

// CORSConfig stores the cross-origin allow policy.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TrustedSuffix  string   `mapstructure:"trusted_suffix"` // e.g. ".vercel.app"
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from file or environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("etc", "chatd"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Set default values
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.path", "data/chatd.db")

	// Empty defaults register the keys so env-only values survive Unmarshal.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("oracle.api_key", "")

	v.SetDefault("oracle.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("oracle.model", "gemini-1.5-flash")
	v.SetDefault("oracle.timeout", "30s")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("cors.trusted_suffix", ".vercel.app")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.AutomaticEnv()
	// Replace dots with underscores in env var names e.g. auth.jwt_secret becomes AUTH_JWT_SECRET
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment are used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that settings without usable defaults are present.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle.api_key is required")
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle.timeout must be positive")
	}
	return nil
}
