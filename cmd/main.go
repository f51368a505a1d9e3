package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/config"
	"github.com/1dlvb/async-bank-app/internal/server"
)

func main() {
	cfg := config.Load()

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.DevMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	if err := srv.Run(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
