package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"

	"github.com/mhmdzlt/auto-shop2/internal/application"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Stripe   StripeConfig   `koanf:"stripe"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`

	// HealthCheckPeriod is how often idle pool connections are health-checked.
	HealthCheckPeriod time.Duration `koanf:"health_check_period"`
}

// StripeConfig enumerates every gateway credential the service needs. All of it
// is validated at startup so a missing key surfaces as a configuration error,
// not a mid-request crash.
type StripeConfig struct {
	SecretKey      string `koanf:"secret_key" validate:"required"`
	PublishableKey string `koanf:"publishable_key" validate:"required"`
	WebhookSecret  string `koanf:"webhook_secret" validate:"required"`

	BaseURL     string        `koanf:"base_url"`
	APIVersion  string        `koanf:"api_version"`
	ConnTimeout time.Duration `koanf:"conn_timeout"`

	// SignatureTolerance bounds replay exposure: events whose embedded
	// timestamp is older than this are rejected as stale.
	SignatureTolerance time.Duration `koanf:"signature_tolerance"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

// NewLogger builds the service-wide slog logger from the configured level.
func (c LoggerConfig) NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("AUTOSHOP_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "AUTOSHOP_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	applyStripeDefaults(&mainConfig.Stripe)

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			err = application.NewConfigurationError(fieldErrs[0].Namespace())
		}
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

func applyStripeDefaults(cfg *StripeConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-10-16"
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 15 * time.Second
	}
	if cfg.SignatureTolerance == 0 {
		cfg.SignatureTolerance = 5 * time.Minute
	}
}
