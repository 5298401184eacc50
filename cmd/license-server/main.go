// Package main is the entrypoint for the Go4It Sports license server.
//
// The license server validates self-hosted deployment licenses against
// subscription state and serves the customer portal API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go4itsports/licensing/internal/api"
	"github.com/go4itsports/licensing/internal/auth"
	"github.com/go4itsports/licensing/internal/config"
	"github.com/go4itsports/licensing/internal/db"
	"github.com/go4itsports/licensing/internal/license"
	"github.com/go4itsports/licensing/internal/maintenance"
	"github.com/rs/zerolog"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "unknown"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("starting license server")

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return 1
	}

	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return 1
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to run database migrations")
		return 1
	}

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenDuration)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create token issuer")
		return 1
	}

	service := license.NewService(database, cfg.PortalBaseURL, logger)

	router, err := api.NewRouter(cfg, service, issuer, database, api.BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create router")
		return 1
	}

	scheduler := maintenance.NewScheduler(database, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("failed to start maintenance scheduler")
		return 1
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.Engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("HTTP server failed")
		return 1
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return 1
	}

	logger.Info().Msg("server stopped")
	return 0
}
