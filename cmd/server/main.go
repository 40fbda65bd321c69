package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresuchdata/inventory-optimizer/internal/config"
	"github.com/andresuchdata/inventory-optimizer/internal/server"
	"github.com/andresuchdata/inventory-optimizer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.SetLevel(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger.Log)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize server")
	}
	if err := srv.Run(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server stopped with error")
	}
}
