package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coinvest-dev/coinvest/internal/config"
	"github.com/coinvest-dev/coinvest/internal/logger"
	"github.com/coinvest-dev/coinvest/internal/mockapi"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.LoadMockAPI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	seed, err := mockapi.LoadSeed(cfg.SeedFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load seed")
	}

	srv, err := mockapi.New(cfg, seed, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Str("version", version).Msg("Starting Coinvest mock API...")

	// blocks until SIGINT/SIGTERM
	if err := srv.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
