package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	AppURL      string `envconfig:"APP_URL" default:"http://localhost:3000"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// BigCommerce OAuth app credentials. The client secret doubles as the
	// webhook HMAC secret and the signed_payload JWT key.
	BCClientID     string `envconfig:"BIGCOMMERCE_CLIENT_ID" required:"true"`
	BCClientSecret string `envconfig:"BIGCOMMERCE_CLIENT_SECRET" required:"true"`
	BCAPIURL       string `envconfig:"BIGCOMMERCE_API_URL" default:"https://api.bigcommerce.com"`
	BCAuthURL      string `envconfig:"BIGCOMMERCE_AUTH_URL" default:"https://login.bigcommerce.com"`

	// Affilync backend
	AffilyncAPIURL string `envconfig:"AFFILYNC_API_URL" default:"https://api.affilync.com"`
	AffilyncAPIKey string `envconfig:"AFFILYNC_API_KEY" required:"true"`

	// Security
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" required:"true"`

	// Webhooks
	WebhookCallbackURL string `envconfig:"WEBHOOK_CALLBACK_URL" default:""`

	// Conversion recognition policy. Comma-separated BigCommerce status ids.
	ConversionStatusIDs []int `envconfig:"CONVERSION_STATUS_IDS" default:"2,3,10"`
	RefundStatusIDs     []int `envconfig:"REFUND_STATUS_IDS" default:"4,5,6"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.WebhookCallbackURL == "" {
		cfg.WebhookCallbackURL = cfg.AppURL + "/webhooks/bigcommerce"
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
