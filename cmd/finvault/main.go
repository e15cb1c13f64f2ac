package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/nodadogen/finvault/internal/config"
	"github.com/nodadogen/finvault/internal/database"
	"github.com/nodadogen/finvault/internal/server"
)

func main() {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "finvault").Logger()
	if cfg.Primary.Env == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.Database.URL()); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	if cfg.NewRelic.Enabled() {
		_, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("new relic agent disabled")
		}
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL(), logger, cfg.NewRelic.Enabled())
	if err != nil {
		log.Fatalf("database pool: %v", err)
	}
	defer pool.Close()

	srv := server.New(cfg, pool, logger)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
