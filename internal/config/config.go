package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env                 string
	Port                int
	PublicBaseURL       string
	VidaBaseURL         string
	TestClientID        string
	TestClientSecret    string
	LiveClientID        string
	LiveClientSecret    string
	GoLive              bool
	AutocompleteOrder   bool
	AllowedWebhookIP    string
	AmountEpsilon       float64
	MaxVerifyAttempts   int
	RetryBackoffSeconds float64
	SettleDelaySeconds  float64
	NonceSecret         string
	NonceTTLSeconds     int
	CartURL             string
	PostgresDSN         string
	KafkaBrokers        string
	KafkaTopic          string
	LogJSON             bool
}

func Default() Config {
	return Config{
		Env:                 "dev",
		Port:                8090,
		PublicBaseURL:       "http://127.0.0.1:8090",
		VidaBaseURL:         "https://vida-dev.veendhq.com",
		GoLive:              false,
		AutocompleteOrder:   false,
		AmountEpsilon:       0.01,
		MaxVerifyAttempts:   3,
		RetryBackoffSeconds: 2,
		SettleDelaySeconds:  2,
		NonceTTLSeconds:     900,
		KafkaTopic:          "vida.reconciliations",
		LogJSON:             true,
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	if v := os.Getenv("VIDA_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("VIDA_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("VIDA_PUBLIC_BASE_URL"); v != "" {
		c.PublicBaseURL = v
	}
	if v := os.Getenv("VIDA_BASE_URL"); v != "" {
		c.VidaBaseURL = v
	}
	if v := os.Getenv("VIDA_TEST_CLIENT_ID"); v != "" {
		c.TestClientID = v
	}
	if v := os.Getenv("VIDA_TEST_CLIENT_SECRET"); v != "" {
		c.TestClientSecret = v
	}
	if v := os.Getenv("VIDA_LIVE_CLIENT_ID"); v != "" {
		c.LiveClientID = v
	}
	if v := os.Getenv("VIDA_LIVE_CLIENT_SECRET"); v != "" {
		c.LiveClientSecret = v
	}
	if v := os.Getenv("VIDA_GO_LIVE"); v != "" {
		c.GoLive = parseBool(v)
	}
	if v := os.Getenv("VIDA_AUTOCOMPLETE_ORDER"); v != "" {
		c.AutocompleteOrder = parseBool(v)
	}
	if v := os.Getenv("VIDA_ALLOWED_WEBHOOK_IP"); v != "" {
		c.AllowedWebhookIP = v
	}
	if v := os.Getenv("VIDA_AMOUNT_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.AmountEpsilon = f
		}
	}
	if v := os.Getenv("VIDA_MAX_VERIFY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxVerifyAttempts = n
		}
	}
	if v := os.Getenv("VIDA_RETRY_BACKOFF_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.RetryBackoffSeconds = f
		}
	}
	if v := os.Getenv("VIDA_WEBHOOK_SETTLE_DELAY_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.SettleDelaySeconds = f
		}
	}
	if v := os.Getenv("VIDA_NONCE_SECRET"); v != "" {
		c.NonceSecret = v
	}
	if v := os.Getenv("VIDA_NONCE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.NonceTTLSeconds = n
		}
	}
	if v := os.Getenv("VIDA_CART_URL"); v != "" {
		c.CartURL = v
	}
	if v := os.Getenv("VIDA_POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("VIDA_KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = v
	}
	if v := os.Getenv("VIDA_KAFKA_TOPIC"); v != "" {
		c.KafkaTopic = v
	}
	if v := os.Getenv("VIDA_LOG_JSON"); v != "" {
		c.LogJSON = parseBool(v)
	}
	return c
}

// parseBool accepts the merchant-dashboard style yes/no values alongside
// the usual boolean spellings. "yes" selects live mode for GoLive.
func parseBool(v string) bool {
	switch v {
	case "1", "true", "TRUE", "yes", "YES", "y":
		return true
	}
	return false
}
