package main

import (
	"log/slog"
	"os"

	"github.com/evanofslack/go-dealer/internal/server"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	dealerServer, err := server.NewDealerServer()
	if err != nil {
		slog.Error("Failed to create dealer server", "error", err)
		os.Exit(1)
	}

	// Start server (blocks until shutdown)
	if err := dealerServer.Start(); err != nil {
		slog.Error("Failed to start dealer server", "error", err)
		os.Exit(1)
	}
}
