// Package config centralises configuration parsing for the sabzgam binaries.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"example.com/sabzgam/internal/accrual"
)

// loadDotEnv applies the given .env files (default ".env"). Missing files are
// not an error; unreadable or malformed ones are.
func loadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Config captures runtime configuration values.
type Config struct {
	HTTPAddress        string
	MetricsAddress     string
	PostgresURL        string // empty selects the in-memory store
	KafkaBrokers       []string
	SchemaRegistryURL  string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string

	TickInterval       time.Duration
	StepIncrementMin   int
	StepIncrementMax   int
	StepsPerCoin       int
	CoinsPerThreshold  int
	DailyStepGoal      int
	InitialCoins       int
	InitialWalletRial  int64
	MaxSessionsPerUser int

	ConsumerGroupID string
	ConsumerTopics  []string
}

// Load reads an optional .env file from the working directory, then
// environment variables into Config, applying defaults for local dev.
func Load() Config {
	if err := loadDotEnv(); err != nil {
		log.Printf("config: skipping .env: %v", err)
	}

	defaults := accrual.DefaultConfig()
	cfg := Config{
		HTTPAddress:        getEnv("HTTP_ADDRESS", ":8080"),
		MetricsAddress:     getEnv("METRICS_ADDRESS", ":9102"),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		SchemaRegistryURL:  getEnv("SCHEMA_REGISTRY_URL", "http://schema-registry:8081"),
		OutboxPollInterval: getDurationEnv("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getIntEnv("OUTBOX_BATCH_SIZE", 25),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:          getEnv("JWT_ISSUER", "sabzgam.identity"),
		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		TickInterval:       getDurationEnv("TICK_INTERVAL", defaults.TickInterval),
		StepIncrementMin:   getIntEnv("STEP_INCREMENT_MIN", defaults.MinIncrement),
		StepIncrementMax:   getIntEnv("STEP_INCREMENT_MAX", defaults.MaxIncrement),
		StepsPerCoin:       getIntEnv("STEPS_PER_COIN", defaults.StepsPerThreshold),
		CoinsPerThreshold:  getIntEnv("COINS_PER_THRESHOLD", defaults.CoinsPerThreshold),
		DailyStepGoal:      getIntEnv("DAILY_STEP_GOAL", defaults.DailyGoal),
		InitialCoins:       getIntEnv("INITIAL_SESSION_COINS", defaults.InitialCoins),
		InitialWalletRial:  int64(getIntEnv("INITIAL_WALLET_RIAL", 125000)),
		MaxSessionsPerUser: getIntEnv("MAX_SESSIONS_PER_USER", 3),

		ConsumerGroupID: getEnv("CONSUMER_GROUP_ID", "sabzgam-event-log"),
		ConsumerTopics:  splitAndTrim(getEnv("CONSUMER_TOPICS", "sabzgam.wallet,sabzgam.walks")),
	}

	cfg.KafkaBrokers = splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092"))
	return cfg
}

// Accrual returns the session parameters, validated.
func (c Config) Accrual() (accrual.Config, error) {
	ac := accrual.Config{
		TickInterval:      c.TickInterval,
		MinIncrement:      c.StepIncrementMin,
		MaxIncrement:      c.StepIncrementMax,
		StepsPerThreshold: c.StepsPerCoin,
		CoinsPerThreshold: c.CoinsPerThreshold,
		DailyGoal:         c.DailyStepGoal,
		InitialCoins:      c.InitialCoins,
	}
	return ac, ac.Validate()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
