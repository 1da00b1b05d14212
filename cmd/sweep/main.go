// Command sweep runs one reminder sweep and prints its report as JSON.
//
// It is meant for an external scheduler. The exit status is non-zero only
// when the sweep could not run at all; individual delivery failures are
// listed in the report.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/testcraft-academy/courseflow/internal"
	"github.com/testcraft-academy/courseflow/internal/email"
	"github.com/testcraft-academy/courseflow/internal/jobs"
	"github.com/testcraft-academy/courseflow/internal/repository"
	"github.com/testcraft-academy/courseflow/internal/service"
	"github.com/testcraft-academy/courseflow/internal/store"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// stdout carries the report
	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	sender, err := internal.NewEmailSender(cfg, logger)
	if err != nil {
		return fmt.Errorf("email sender initialization failed: %w", err)
	}
	mailer, err := email.NewMailer(sender, cfg.BaseURL, logger)
	if err != nil {
		return fmt.Errorf("mailer initialization failed: %w", err)
	}

	archive, err := internal.NewArchive(cfg, logger)
	if err != nil {
		return fmt.Errorf("archive initialization failed: %w", err)
	}

	reminders := service.NewReminderService(store.NewPostgres(repository.New(db)), mailer, service.ReminderConfig{
		BaseURL:     cfg.BaseURL,
		StaleAfter:  cfg.ReminderStaleAfter,
		Concurrency: cfg.ReminderConcurrency,
	}, logger)

	report, err := jobs.NewReminderSweepHandler(reminders, archive, logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("reminder sweep failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
