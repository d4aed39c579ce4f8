// Package config loads application configuration from YAML files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CASETRACK_"

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Log           LogConfig           `koanf:"log"`
	JWT           JWTConfig           `koanf:"jwt"`
	CORS          CORSConfig          `koanf:"cors"`
	Cases         CasesConfig         `koanf:"cases"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig contains token signing settings.
type JWTConfig struct {
	SecretKey            string        `koanf:"secret_key"`
	Issuer               string        `koanf:"issuer"`
	AccessTokenDuration  time.Duration `koanf:"access_token_duration"`
	RefreshTokenDuration time.Duration `koanf:"refresh_token_duration"`
}

// CORSConfig contains cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// CasesConfig contains workflow settings.
type CasesConfig struct {
	ResponseDeadlineDays int    `koanf:"response_deadline_days"`
	BaseURL              string `koanf:"base_url"`
}

// NotificationsConfig contains notification delivery settings.
type NotificationsConfig struct {
	Enabled bool              `koanf:"enabled"`
	Email   EmailConfig       `koanf:"email"`
	Worker  QueueWorkerConfig `koanf:"worker"`
	Retry   NotifyRetryConfig `koanf:"retry"`
}

// EmailConfig contains SMTP settings.
type EmailConfig struct {
	Enabled       bool    `koanf:"enabled"`
	SMTPHost      string  `koanf:"smtp_host"`
	SMTPPort      int     `koanf:"smtp_port"`
	SMTPUser      string  `koanf:"smtp_user"`
	SMTPPassword  string  `koanf:"smtp_password"`
	FromAddress   string  `koanf:"from_address"`
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// QueueWorkerConfig contains queue worker settings.
type QueueWorkerConfig struct {
	BatchSize    int           `koanf:"batch_size"`
	PollInterval time.Duration `koanf:"poll_interval"`
	NumWorkers   int           `koanf:"num_workers"`
}

// NotifyRetryConfig contains delivery retry settings.
type NotifyRetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// Default returns configuration with sane defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			MigrationsPath:  "migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		JWT: JWTConfig{
			Issuer:               "casetrack",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 30 * 24 * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Cases: CasesConfig{
			ResponseDeadlineDays: 5,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Email: EmailConfig{
				SMTPPort:      587,
				RatePerSecond: 10,
			},
			Worker: QueueWorkerConfig{
				BatchSize:    100,
				PollInterval: 5 * time.Second,
				NumWorkers:   5,
			},
			Retry: NotifyRetryConfig{
				MaxAttempts:       3,
				InitialBackoff:    1 * time.Second,
				MaxBackoff:        5 * time.Minute,
				BackoffMultiplier: 2.0,
			},
		},
	}
}

// Load reads configuration from the optional YAML file at path, then
// overlays CASETRACK_* environment variables. Nested keys use a double
// underscore in the environment, e.g. CASETRACK_DATABASE__MAX_OPEN_CONNS.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			key = strings.ReplaceAll(key, "__", ".")
			return key, value
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.JWT.SecretKey == "" {
		errs = append(errs, errors.New("jwt.secret_key is required"))
	}
	if len(c.JWT.SecretKey) > 0 && len(c.JWT.SecretKey) < 32 {
		errs = append(errs, errors.New("jwt.secret_key must be at least 32 characters"))
	}
	if c.Cases.ResponseDeadlineDays < 1 {
		errs = append(errs, errors.New("cases.response_deadline_days must be at least 1"))
	}
	if c.Notifications.Enabled && c.Notifications.Email.Enabled {
		if c.Notifications.Email.SMTPHost == "" {
			errs = append(errs, errors.New("notifications.email.smtp_host is required when email is enabled"))
		}
		if c.Notifications.Email.FromAddress == "" {
			errs = append(errs, errors.New("notifications.email.from_address is required when email is enabled"))
		}
	}

	return errors.Join(errs...)
}
