package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agamariel/markstation/internal/config"
	"github.com/agamariel/markstation/internal/logger"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sugar, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer sugar.Sync() //nolint:errcheck

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	app, err := NewApp(rootCtx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize station", "error", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- app.Start(rootCtx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		sugar.Infow("signal received", "signal", sig.String())
		rootCancel()
		if err := <-done; err != nil {
			sugar.Errorw("station stopped with error", "error", err)
		}
	case err := <-done:
		if err != nil {
			sugar.Errorw("station stopped with error", "error", err)
		}
		rootCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		sugar.Fatalw("shutdown failed", "error", err)
	}
}
