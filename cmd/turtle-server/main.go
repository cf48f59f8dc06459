package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/varb24/TurtleMessenger/internal/config"
	"github.com/varb24/TurtleMessenger/internal/server"
	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/internal/storage/postgres"
	"github.com/varb24/TurtleMessenger/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	setupLogging(cfg)

	store, err := openStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize storage")
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := server.Start(ctx, cfg, store)
	if err != nil {
		logrus.WithError(err).Fatal("failed to start server")
	}
	logrus.WithField("addr", addr).Info("TurtleMessenger backend running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logrus.Info("shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore selects the storage backend from the configuration.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.New(cfg.Storage.PostgresDSN)
	default:
		if dir := filepath.Dir(cfg.Storage.DataPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return sqlite.New(cfg.Storage.DataPath)
	}
}

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
