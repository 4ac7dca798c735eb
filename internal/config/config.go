package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	DBDSN          string
	MigrationsDir  string
	AmqpURL        string
	AmqpExchange   string
	RedisAddr      string
	SMSCountryCode string
	NotifyTimeout  time.Duration
}

// Load reads configuration from a .env file (when present) and the
// environment. Only DB_DSN is mandatory; the broker and Redis are optional
// collaborators and the core degrades gracefully without them.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Environment:    os.Getenv("ENV"),
		DBDSN:          os.Getenv("DB_DSN"),
		MigrationsDir:  os.Getenv("MIGRATIONS_DIR"),
		AmqpURL:        os.Getenv("AMQP_URL"),
		AmqpExchange:   os.Getenv("AMQP_EXCHANGE"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		SMSCountryCode: os.Getenv("SMS_COUNTRY_CODE"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}
	if cfg.AmqpExchange == "" {
		cfg.AmqpExchange = "workshop.events"
	}
	if cfg.SMSCountryCode == "" {
		cfg.SMSCountryCode = "+48"
	}

	cfg.NotifyTimeout = 10 * time.Second
	if raw := os.Getenv("NOTIFY_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse NOTIFY_TIMEOUT: %w", err)
		}
		cfg.NotifyTimeout = d
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}
