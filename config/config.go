// Package config loads process configuration from the environment (and an
// optional .env file) once at startup.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtkit "github.com/PaulFidika/vipkit/jwt"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string
	APIURL      string

	Razorpay Razorpay
	PayU     PayU

	JWTSecret string
	JWTTTL    time.Duration

	AdminToken    string
	SweepSchedule string

	LogLevel  string
	LogFormat string
}

type Razorpay struct {
	KeyID       string
	KeySecret   string
	PublicKeyID string
	APIURL      string
	Timeout     time.Duration
	RPS         float64
}

type PayU struct {
	MerchantKey  string
	MerchantSalt string
	ProductInfo  string
}

func defaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("API_URL", "http://localhost:8080")
	v.SetDefault("RAZORPAY_API_URL", "https://api.razorpay.com/v1")
	v.SetDefault("RAZORPAY_TIMEOUT", "10s")
	v.SetDefault("RAZORPAY_RPS", 5.0)
	v.SetDefault("PAYU_PRODUCT_INFO", "VIP Subscription - 30 Days")
	v.SetDefault("JWT_EXPIRES_IN", "7d")
	v.SetDefault("SWEEP_SCHEDULE", "@hourly")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Load reads .env (best-effort) and the environment. It does not validate.
func Load() (*Config, error) {
	_ = godotenv.Load()
	v := viper.New()
	v.AutomaticEnv()
	defaults(v)
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	ttl, err := jwtkit.ParseTTL(v.GetString("JWT_EXPIRES_IN"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	timeout, err := time.ParseDuration(v.GetString("RAZORPAY_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("RAZORPAY_TIMEOUT: %w", err)
	}
	return &Config{
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		DatabaseURL: strings.TrimSpace(v.GetString("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(v.GetString("REDIS_URL")),
		APIURL:      v.GetString("API_URL"),
		Razorpay: Razorpay{
			KeyID:       v.GetString("RAZORPAY_KEY_ID"),
			KeySecret:   v.GetString("RAZORPAY_KEY_SECRET"),
			PublicKeyID: v.GetString("RAZORPAY_PUBLIC_KEY_ID"),
			APIURL:      v.GetString("RAZORPAY_API_URL"),
			Timeout:     timeout,
			RPS:         v.GetFloat64("RAZORPAY_RPS"),
		},
		PayU: PayU{
			MerchantKey:  v.GetString("PAYU_MERCHANT_KEY"),
			MerchantSalt: v.GetString("PAYU_MERCHANT_SALT"),
			ProductInfo:  v.GetString("PAYU_PRODUCT_INFO"),
		},
		JWTSecret:     v.GetString("JWT_SECRET"),
		JWTTTL:        ttl,
		AdminToken:    v.GetString("ADMIN_TOKEN"),
		SweepSchedule: v.GetString("SWEEP_SCHEDULE"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
	}, nil
}

// Validate enforces what the API server cannot start without. Gateway
// credentials are optional: an unconfigured gateway answers its endpoints
// with a configuration error instead.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, jwtkit.ErrMissingSecret)
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	return errors.Join(errs...)
}

// RequireDatabase is used by commands that only make sense against Postgres.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	return nil
}
