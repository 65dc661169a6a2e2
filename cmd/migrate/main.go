package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"accountsvc/internal/config"
	"accountsvc/internal/database"
	"accountsvc/internal/logging"
)

func main() {
	_ = godotenv.Load()

	logger, closeLog, err := logging.New(config.LogConfig{
		Level: os.Getenv("LOG_LEVEL"),
		Dev:   os.Getenv("LOG_DEV") == "1",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "log setup error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	applied, err := database.ApplyMigrations(ctx, db)
	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	if len(applied) == 0 {
		logger.Info("schema is up to date")
		return
	}
	logger.Info("migrations applied", zap.Strings("versions", applied))
}
