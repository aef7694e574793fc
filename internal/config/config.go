package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type PaymentConfig struct {
	Currency        string
	PollInterval    time.Duration
	PollMaxAttempts int
}

type Config struct {
	APIBaseURL   string
	DataDir      string
	CallbackAddr string
	Payment      PaymentConfig
}

// Load reads configuration from the process environment. EVE_API_URL is
// required; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		CallbackAddr: "127.0.0.1:4242",
		Payment: PaymentConfig{
			Currency:        "inr",
			PollInterval:    time.Second,
			PollMaxAttempts: 30,
		},
	}

	cfg.APIBaseURL = strings.TrimSpace(os.Getenv("EVE_API_URL"))
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("EVE_API_URL is not set")
	}

	cfg.DataDir = strings.TrimSpace(os.Getenv("EVE_DATA_DIR"))
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir for default data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".eve")
	}

	if addr := strings.TrimSpace(os.Getenv("EVE_CALLBACK_ADDR")); addr != "" {
		cfg.CallbackAddr = addr
	}

	if currency := strings.TrimSpace(os.Getenv("EVE_CURRENCY")); currency != "" {
		cfg.Payment.Currency = strings.ToLower(currency)
	}

	if value := strings.TrimSpace(os.Getenv("EVE_POLL_INTERVAL")); value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil || interval <= 0 {
			return nil, fmt.Errorf("invalid EVE_POLL_INTERVAL %q", value)
		}
		cfg.Payment.PollInterval = interval
	}

	if value := strings.TrimSpace(os.Getenv("EVE_POLL_MAX_ATTEMPTS")); value != "" {
		attempts, err := strconv.Atoi(value)
		if err != nil || attempts <= 0 {
			return nil, fmt.Errorf("invalid EVE_POLL_MAX_ATTEMPTS %q", value)
		}
		cfg.Payment.PollMaxAttempts = attempts
	}

	return cfg, nil
}
