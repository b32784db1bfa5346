package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/StorefrontLabs/checkout-server/internal/config"
	"github.com/StorefrontLabs/checkout-server/internal/logger"
	"github.com/StorefrontLabs/checkout-server/pkg/checkout"
)

func main() {
	// .env is optional; real deployments use environment variables directly.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CHECKOUT_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("server.config_load_failed")
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "checkout-server",
		Environment: cfg.Logging.Environment,
	})
	log.Logger = appLogger

	app, err := checkout.NewApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("server.init_failed")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", cfg.Server.Address).
			Str("environment", cfg.Checkout.Environment).
			Msg("server.listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("server.shutdown_requested")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server.listen_failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server.shutdown_failed")
	}
	if err := app.Close(); err != nil {
		log.Error().Err(err).Msg("server.close_failed")
	}
	log.Info().Msg("server.stopped")
}
