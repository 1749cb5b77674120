package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the notifier service. Values come from
// configs/config.defaults.yaml overlaid with APP_-prefixed environment
// variables (e.g. APP_OMIE_APP_KEY).
type Config struct {
	ServerPort int    `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	// Omie ERP API credentials and endpoint. Key and secret travel in the
	// body of every call envelope, so both are required.
	OmieBaseURL   string `mapstructure:"OMIE_BASE_URL" validate:"required,url"`
	OmieAppKey    string `mapstructure:"OMIE_APP_KEY" validate:"required"`
	OmieAppSecret string `mapstructure:"OMIE_APP_SECRET" validate:"required"`

	// Messaging provider (WhatsApp gateway) settings.
	MessagingAPIURL    string `mapstructure:"MESSAGING_API_URL" validate:"required,url"`
	MessagingAPIToken  string `mapstructure:"MESSAGING_API_TOKEN" validate:"required"`
	MessagingServiceID string `mapstructure:"MESSAGING_SERVICE_ID" validate:"required"`

	// Only webhook events whose "assunto" contains this substring are
	// processed; everything else is acknowledged and ignored.
	WebhookSubjectFilter string `mapstructure:"WEBHOOK_SUBJECT_FILTER" validate:"required"`

	// LookupStrategy selects how a título is resolved against Omie:
	// "direct" uses ConsultarContaReceber, "scan" pages through
	// ListarContasReceber. Direct is canonical; scan exists for tenants
	// whose point lookup is unreliable.
	LookupStrategy string `mapstructure:"LOOKUP_STRATEGY" validate:"oneof=direct scan"`

	// Timeout applied to every outbound HTTP call (Omie and messaging).
	HTTPClientTimeoutSeconds int `mapstructure:"HTTP_CLIENT_TIMEOUT_SECONDS" validate:"gt=0"`
}

// HTTPClientTimeout returns the outbound call timeout as a time.Duration.
func (c *Config) HTTPClientTimeout() time.Duration {
	return time.Duration(c.HTTPClientTimeoutSeconds) * time.Second
}

func Load(serviceName string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config.defaults")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("APP")

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OMIE_BASE_URL", "https://app.omie.com.br/api/v1")
	v.SetDefault("OMIE_APP_KEY", "")
	v.SetDefault("OMIE_APP_SECRET", "")
	v.SetDefault("MESSAGING_API_URL", "")
	v.SetDefault("MESSAGING_API_TOKEN", "")
	v.SetDefault("MESSAGING_SERVICE_ID", "")
	v.SetDefault("WEBHOOK_SUBJECT_FILTER", "ContaReceber")
	v.SetDefault("LOOKUP_STRATEGY", "direct")
	v.SetDefault("HTTP_CLIENT_TIMEOUT_SECONDS", 30)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Base configuration file ('config.defaults.yaml') not found for %s; using defaults and environment variables.", serviceName)
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields once at startup so that missing
// credentials surface as a boot failure instead of a per-request 500.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			fields := make([]string, 0, len(invalid))
			for _, fe := range invalid {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("configuration invalid or incomplete: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}
