package main

import (
	"log"

	"magewoo/internal/config"
	"magewoo/internal/connector"
	"magewoo/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	if cfg.MagentoDSN == "" {
		logger.Fatal("MAGENTO_DSN must be set for the connector endpoint")
	}
	if cfg.ConnectorAPIKey == "" {
		logger.Fatal("CONNECTOR_API_KEY must be set for the connector endpoint")
	}

	server, err := connector.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize connector: %v", err)
	}

	logger.Info("Starting connector endpoint on port " + cfg.ConnectorPort)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start connector: %v", err)
	}
}
