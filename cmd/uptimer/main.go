package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"uptimer/config"
	"uptimer/internals/app"
	"uptimer/internals/server"
	"uptimer/pkg/logger"
)

func main() {
	configPath := flag.String("config", "env.yaml", "path to the yaml config file")
	flag.Parse()

	// Load envs
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Done closes on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Base/global logger
	log := logger.Init(cfg)
	log.Info().Str("storage", cfg.Storage.Driver).Msg("logger initialized")

	// Inject Dependencies
	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dependencies")
	}
	log.Info().Msg("dependencies initialized")

	// alert workers, scheduler, initial schedule pass, lifecycle consumer
	container.Start(ctx)

	// Register Routes
	router := app.RegisterRoutes(container)
	log.Info().Msg("routes registered")

	srv := server.New(fmt.Sprintf(":%d", cfg.Port), router, log)
	errCh := srv.Start()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server stopped, shutting down")
	}

	// 1. Stop HTTP server (stop accepting requests)
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// 2. Shutdown background workers & infra
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("dependencies shutdown failed")
	}

	log.Info().Msg("graceful shutdown complete")
}
