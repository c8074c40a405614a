package config

import (
	"fmt"
	"os"
)

// Config collects everything the app reads from the environment.
// Gateway credentials are grouped per provider so each adapter receives an
// explicit struct instead of reaching for os.Getenv at call time.
type Config struct {
	Addr          string
	PublicBaseURL string
	DatabaseURL   string
	RedisAddr     string
	JWTSecret     string
	Currency      string

	PayPal    PayPalConfig
	Stripe    StripeConfig
	Airwallex AirwallexConfig
	NETS      NETSConfig
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Mode         string // "sandbox" or "live"
	BaseURL      string
	Currency     string
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type AirwallexConfig struct {
	APIKey      string
	ClientID    string
	Env         string // "demo" or "prod"
	BaseURL     string
	Currency    string
	CountryCode string
}

type NETSConfig struct {
	APIKey    string
	ProjectID string
	BaseURL   string
}

func Load() Config {
	currency := getenv("STORE_CURRENCY", "SGD")
	cfg := Config{
		Addr:          getenv("ADDR", ":8080"),
		PublicBaseURL: getenv("BASE_URL", "http://localhost:8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Currency:      currency,

		PayPal: PayPalConfig{
			ClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
			ClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
			Mode:         getenv("PAYPAL_MODE", "sandbox"),
			Currency:     currency,
		},
		Stripe: StripeConfig{
			SecretKey: os.Getenv("STRIPE_SECRET_KEY"),
			Currency:  currency,
		},
		Airwallex: AirwallexConfig{
			APIKey:      os.Getenv("AIRWALLEX_API_KEY"),
			ClientID:    os.Getenv("AIRWALLEX_CLIENT_ID"),
			Env:         getenv("AIRWALLEX_ENV", "demo"),
			BaseURL:     os.Getenv("AIRWALLEX_BASE_URL"),
			Currency:    getenv("AIRWALLEX_CURRENCY", currency),
			CountryCode: getenv("AIRWALLEX_COUNTRY", "SG"),
		},
		NETS: NETSConfig{
			APIKey:    os.Getenv("NETS_API_KEY"),
			ProjectID: os.Getenv("NETS_PROJECT_ID"),
			BaseURL:   getenv("NETS_BASE_URL", "https://sandbox.nets.openapipaas.com"),
		},
	}

	if cfg.PayPal.BaseURL == "" {
		if cfg.PayPal.Mode == "live" {
			cfg.PayPal.BaseURL = "https://api-m.paypal.com"
		} else {
			cfg.PayPal.BaseURL = "https://api-m.sandbox.paypal.com"
		}
	}
	if cfg.Airwallex.BaseURL == "" {
		if cfg.Airwallex.Env == "prod" {
			cfg.Airwallex.BaseURL = "https://api.airwallex.com"
		} else {
			cfg.Airwallex.BaseURL = "https://api-demo.airwallex.com"
		}
	}

	return cfg
}

// Validate rejects configurations the server cannot start with. Missing
// gateway credentials are not fatal here; the adapter reports the gateway
// as unavailable when a payment is actually attempted.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if c.PayPal.Mode != "sandbox" && c.PayPal.Mode != "live" {
		return fmt.Errorf("PAYPAL_MODE must be sandbox or live, got %q", c.PayPal.Mode)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
