package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"controladoria/internal/config"
	"controladoria/internal/contracts"
	"controladoria/internal/logging"
	"controladoria/internal/storage"
	"controladoria/internal/watcher"
)

func main() {
	must(run())
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Require("IMPORT_DIR", cfg.ImportDir); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	summarizer := contracts.NewSummarizer(cfg.Location(), contracts.WithLogger(logger))
	svc := watcher.NewService(db, cfg, contracts.NewProcessingService(db, summarizer, logger), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("import watcher started", zap.String("dir", cfg.ImportDir), zap.String("db", cfg.DBPath))
	if err := svc.Run(ctx); err != nil {
		return err
	}
	logger.Info("import watcher stopped")
	return nil
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
