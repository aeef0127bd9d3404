package main

import (
	"fmt"
	"os"

	"github.com/ecomstore/storefront/internal/apiclient"
	"github.com/ecomstore/storefront/internal/config"
	"github.com/ecomstore/storefront/internal/logger"
	"github.com/ecomstore/storefront/internal/server"
	"github.com/ecomstore/storefront/internal/session"
	"github.com/ecomstore/storefront/internal/storefront"
	"github.com/ecomstore/storefront/internal/tokenstore"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	backend, closeStore, err := tokenstore.Open(cfg.TokenStore, cfg.API.BaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open token store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("Failed to close token store")
		}
	}()
	tokens := tokenstore.New(backend)

	api := apiclient.New(apiclient.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		UserAgent:         "storefront-server/" + version,
	}, tokens, log)

	store := session.NewStore(api, tokens, log)
	shop := storefront.NewService(api, log)

	// Create server
	srv, err := server.New(cfg, log, store, shop, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().
		Str("version", version).
		Str("api", cfg.API.BaseURL).
		Str("token_store", cfg.TokenStore.Backend).
		Msg("Starting storefront server...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
}
