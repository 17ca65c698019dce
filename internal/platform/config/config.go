// Package config assembles process configuration from the environment plus an
// optional treasury table file, so main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "seedfund/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr     string
	LogLevel string

	// RequestSigningSecret keys the per-request HMAC. Deliberately distinct
	// from credential signing material so a leak of one does not compromise
	// the other.
	RequestSigningSecret string

	// CredentialPrivateKeyPEM holds the ES256 signing key. Empty means a
	// throwaway dev key is generated at startup.
	CredentialPrivateKeyPEM string
	CredentialIssuer        string

	ReplayWindow time.Duration

	PostgresURL string
	Redis       Redis
	Kafka       Kafka

	CoinbaseAPIKey        string
	CoinbaseWebhookSecret string
	PlaidWebhookSecret    string

	VerifyBaseURL string

	// TreasuryTablePath optionally overrides the compiled-in allocation table.
	TreasuryTablePath string
}

// Redis holds rate-limit backend settings. Empty URL means the in-memory
// limiter is used.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds audit sink settings. No brokers means audit events stay on the
// in-process store only.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:                    envOr("SEEDFUND_ADDR", ":8080"),
		LogLevel:                envOr("SEEDFUND_LOG_LEVEL", "info"),
		RequestSigningSecret:    envOr("REQUEST_SIGNING_SECRET", "zuup-zero-trust-secret-key"),
		CredentialPrivateKeyPEM: os.Getenv("CREDENTIAL_PRIVATE_KEY_PEM"),
		CredentialIssuer:        envOr("CREDENTIAL_ISSUER", "seedfund"),
		ReplayWindow:            envDurationOr("REPLAY_WINDOW", 300*time.Second),
		PostgresURL:             os.Getenv("POSTGRES_URL"),
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Topic: envOr("KAFKA_AUDIT_TOPIC", "seedfund.audit"),
		},
		CoinbaseAPIKey:        os.Getenv("COINBASE_COMMERCE_API_KEY"),
		CoinbaseWebhookSecret: envOr("COINBASE_WEBHOOK_SECRET", "dev-coinbase-webhook-secret"),
		PlaidWebhookSecret:    envOr("PLAID_WEBHOOK_SECRET", "dev-plaid-webhook-secret"),
		VerifyBaseURL:         envOr("VERIFY_BASE_URL", "https://zblackhole.io"),
		TreasuryTablePath:     os.Getenv("TREASURY_TABLE_PATH"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = platformstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

// Validate rejects configurations that cannot run safely.
func (s Server) Validate() error {
	if s.RequestSigningSecret == "" {
		return fmt.Errorf("request signing secret must not be empty")
	}
	if s.ReplayWindow <= 0 {
		return fmt.Errorf("replay window must be positive, got %s", s.ReplayWindow)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
