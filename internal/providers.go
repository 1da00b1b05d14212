package internal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/testcraft-academy/courseflow/internal/countdown"
	"github.com/testcraft-academy/courseflow/internal/email"
	"github.com/testcraft-academy/courseflow/internal/storage"
)

// NewEmailSender returns the sender selected by EMAIL_PROVIDER.
func NewEmailSender(cfg *Config, logger *slog.Logger) (email.Sender, error) {
	identity := email.Identity{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		ReplyTo:  cfg.EmailReplyTo,
	}

	switch cfg.EmailProvider {
	case EmailProviderPostmark:
		logger.Info("Using Postmark email service")
		return email.NewPostmarkSender(email.PostmarkConfig{
			ServerToken:  cfg.PostmarkServerToken,
			AccountToken: cfg.PostmarkAccountToken,
			Identity:     identity,
		}, logger)
	case EmailProviderLog:
		logger.Info("Using log email service")
		return email.NewLogSender(logger), nil
	default:
		logger.Info("Using SMTP email service", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			Identity: identity,
		}, logger)
	}
}

// NewArchive returns the sweep report archive selected by STORAGE_PROVIDER,
// or nil when archiving is disabled.
func NewArchive(cfg *Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderLocal:
		logger.Info("Using local report archive", "path", cfg.LocalStoragePath)
		return storage.NewLocalStorage(storage.LocalConfig{BasePath: cfg.LocalStoragePath}, logger)
	case storage.ProviderR2:
		logger.Info("Using R2 report archive", "bucket", cfg.R2BucketName)
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			Region:          "auto",
			Endpoint:        cfg.R2Endpoint,
		}, logger)
	default:
		logger.Info("Report archive disabled")
		return nil, nil
	}
}

// NewCountdownStore returns the deadline store selected by COUNTDOWN_STORE.
// The returned close function releases the Redis connection, if any.
func NewCountdownStore(ctx context.Context, cfg *Config, logger *slog.Logger) (countdown.Store, func() error, error) {
	if cfg.CountdownStore != CountdownStoreRedis {
		logger.Info("Using in-memory countdown store")
		return countdown.NewMemoryStore(time.Now), func() error { return nil }, nil
	}

	client, err := countdown.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	logger.Info("Using Redis countdown store")
	return countdown.NewRedisStore(client), client.Close, nil
}
