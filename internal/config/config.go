// Package config reads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Event store backends
const (
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	ErrWeakJWTSecret    = errors.New("JWT_SECRET must be at least 32 characters")
	ErrUnknownStore     = errors.New("EVENT_STORE must be postgres, dynamodb or memory")
	ErrMissingDatabase  = errors.New("DATABASE_URL is required for the postgres event store")
)

type Config struct {
	HTTPAddr string

	DatabaseURL          string
	EventStore           string
	DynamoEventsTable    string
	DynamoSnapshotsTable string
	AWSRegion            string
	KafkaBrokers         []string
	KafkaTopic           string
	RedisURL             string
	JWTSecret            string
	AccessTokenExpiry    time.Duration
	RefreshTokenExpiry   time.Duration
	AdminEmail           string
	AdminPassword        string
	MidtransServerKey    string
	MidtransClientKey    string
	MidtransIsProduction bool
	MidtransSnapURL      string
	MidtransAPIURL       string
	PaymentTimeout       time.Duration
	CouponsFile          string
	OrderIDPrefix        string
	CheckoutSessionTTL   time.Duration
	SMTPHost             string
	SMTPPort             string
	SMTPFrom             string
	OTLPEndpoint         string
	TracesStdout         bool
	WebDir               string
	CORSOrigin           string
}

// Load reads .env when present, then the environment. A missing .env is not an error.
func Load() (*Config, error) {
	loadDotEnv()
	return FromEnv()
}

// LoadWorker is Load for the event consumers, which never issue tokens
func LoadWorker() (*Config, error) {
	loadDotEnv()
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[Config] Ignoring .env: %v", err)
	}
}

// FromEnv builds a Config from environment variables only
func FromEnv() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse() (*Config, error) {
	cfg := &Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		EventStore:           strings.ToLower(getEnv("EVENT_STORE", "")),
		DynamoEventsTable:    getEnv("DYNAMODB_EVENTS_TABLE", "pharmacy-events"),
		DynamoSnapshotsTable: getEnv("DYNAMODB_SNAPSHOTS_TABLE", "pharmacy-snapshots"),
		AWSRegion:            getEnv("AWS_REGION", "ap-southeast-1"),
		KafkaBrokers:         splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:           getEnv("KAFKA_TOPIC", "pharmacy-events"),
		RedisURL:             getEnv("REDIS_URL", ""),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AdminEmail:           getEnv("ADMIN_EMAIL", ""),
		AdminPassword:        getEnv("ADMIN_PASSWORD", ""),
		MidtransServerKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
		MidtransClientKey:    getEnv("MIDTRANS_CLIENT_KEY", ""),
		MidtransSnapURL:      getEnv("MIDTRANS_SNAP_URL", ""),
		MidtransAPIURL:       getEnv("MIDTRANS_API_URL", ""),
		CouponsFile:          getEnv("COUPONS_FILE", ""),
		OrderIDPrefix:        getEnv("ORDER_ID_PREFIX", "ORD"),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnv("SMTP_PORT", "587"),
		SMTPFrom:             getEnv("SMTP_FROM", "apotek@localhost"),
		OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		WebDir:               getEnv("WEB_DIR", ""),
		CORSOrigin:           getEnv("CORS_ORIGIN", ""),
	}

	var err error
	if cfg.MidtransIsProduction, err = getBool("MIDTRANS_IS_PRODUCTION", false); err != nil {
		return nil, err
	}
	if cfg.TracesStdout, err = getBool("OTEL_TRACES_STDOUT", false); err != nil {
		return nil, err
	}
	if cfg.CheckoutSessionTTL, err = getDuration("CHECKOUT_SESSION_TTL", 48*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AccessTokenExpiry, err = getDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenExpiry, err = getDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PaymentTimeout, err = getDuration("MIDTRANS_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.EventStore == "" {
		cfg.EventStore = StoreMemory
		if cfg.DatabaseURL != "" {
			cfg.EventStore = StorePostgres
		}
	}

	return cfg, nil
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.JWTSecret) < 32 {
		return ErrWeakJWTSecret
	}
	return c.validateStore()
}

func (c *Config) validateStore() error {
	switch c.EventStore {
	case StoreMemory, StoreDynamoDB:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabase
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.EventStore)
	}
	return nil
}

// PaymentEnabled reports whether both gateway keys are configured
func (c *Config) PaymentEnabled() bool {
	return c.MidtransServerKey != "" && c.MidtransClientKey != ""
}

// KafkaEnabled reports whether events go through Kafka instead of in-process dispatch
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func (c *Config) EmailEnabled() bool { return c.SMTPHost != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
