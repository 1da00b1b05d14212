package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Email providers
const (
	EmailProviderSMTP     = "smtp"
	EmailProviderPostmark = "postmark"
	EmailProviderLog      = "log"
)

// Countdown stores
const (
	CountdownStoreMemory = "memory"
	CountdownStoreRedis  = "redis"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Application base URL (for confirmation links)
	BaseURL string

	// Email delivery: "smtp", "postmark" or "log"
	EmailProvider string
	EmailFrom     string
	EmailFromName string
	EmailReplyTo  string

	// SMTP (Mailhog in development)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// Postmark
	PostmarkServerToken  string
	PostmarkAccountToken string

	// Reminder sweep
	ReminderStaleAfter  time.Duration
	ReminderConcurrency int

	// Shared secret for POST /cron/reminder-sweep
	CronSecret string

	// Worker Configuration
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration

	// Sweep report archive: "none", "local" or "r2"
	StorageProvider  string
	LocalStoragePath string

	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Endpoint        string // optional S3-compatible endpoint override

	// Offer countdown: "memory" or "redis"
	CountdownStore         string
	RedisURL               string
	OfferCountdownDuration time.Duration

	// Capture rate limit per client IP
	SubscribeRateLimit  int
	SubscribeRateWindow time.Duration

	// Comma-separated proxy IPs or CIDRs whose forwarding headers are believed.
	// Empty means the client IP is always the connection's remote address.
	TrustedProxies string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

// NewConfig loads .env (if present) and reads the configuration from the
// environment.
func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
		DatabaseUrl: os.Getenv("DATABASE_URL"),

		// Base URL defaults to localhost for development
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		EmailProvider: getEnv("EMAIL_PROVIDER", EmailProviderSMTP),
		EmailFrom:     getEnv("EMAIL_FROM", "hello@courseflow.dev"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Courseflow"),
		EmailReplyTo:  getEnv("EMAIL_REPLY_TO", ""),

		// SMTP defaults for Mailhog (development)
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		PostmarkServerToken:  getEnv("POSTMARK_SERVER_TOKEN", ""),
		PostmarkAccountToken: getEnv("POSTMARK_ACCOUNT_TOKEN", ""),

		ReminderStaleAfter:  getEnvDuration("REMINDER_STALE_AFTER", 24*time.Hour),
		ReminderConcurrency: getEnvInt("REMINDER_CONCURRENCY", 4),

		CronSecret: getEnv("CRON_SECRET", ""),

		// Worker defaults
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 1),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerJobTimeout:   getEnvDuration("WORKER_JOB_TIMEOUT", 10*time.Minute),

		StorageProvider:  getEnv("STORAGE_PROVIDER", "none"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),

		CountdownStore:         getEnv("COUNTDOWN_STORE", CountdownStoreMemory),
		RedisURL:               getEnv("REDIS_URL", ""),
		OfferCountdownDuration: getEnvDuration("OFFER_COUNTDOWN_DURATION", 24*time.Hour),

		SubscribeRateLimit:  getEnvInt("SUBSCRIBE_RATE_LIMIT", 5),
		SubscribeRateWindow: getEnvDuration("SUBSCRIBE_RATE_WINDOW", 15*time.Minute),
		TrustedProxies:      getEnv("TRUSTED_PROXIES", ""),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and the keys of each selected provider.
func (c *Config) Validate() error {
	if c.DatabaseUrl == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.EmailProvider {
	case EmailProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is 'smtp'")
		}
	case EmailProviderPostmark:
		if c.PostmarkServerToken == "" || c.PostmarkAccountToken == "" {
			return fmt.Errorf("POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required when EMAIL_PROVIDER is 'postmark'")
		}
	case EmailProviderLog:
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be 'smtp', 'postmark' or 'log', got: %s", c.EmailProvider)
	}

	switch c.StorageProvider {
	case "none", "local":
	case "r2":
		if c.R2AccountID == "" && c.R2Endpoint == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be 'none', 'local' or 'r2', got: %s", c.StorageProvider)
	}

	switch c.CountdownStore {
	case CountdownStoreMemory:
	case CountdownStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when COUNTDOWN_STORE is 'redis'")
		}
	default:
		return fmt.Errorf("COUNTDOWN_STORE must be 'memory' or 'redis', got: %s", c.CountdownStore)
	}

	if c.ReminderStaleAfter <= 0 {
		return fmt.Errorf("REMINDER_STALE_AFTER must be positive, got: %s", c.ReminderStaleAfter)
	}
	if c.SubscribeRateLimit < 1 {
		return fmt.Errorf("SUBSCRIBE_RATE_LIMIT must be at least 1, got: %d", c.SubscribeRateLimit)
	}

	return nil
}

// IsSecure reports whether cookies should carry the Secure flag and HSTS
// should be sent.
func (c *Config) IsSecure() bool {
	return c.Env != "development" && c.Env != "test"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
