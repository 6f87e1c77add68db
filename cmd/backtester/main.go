package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"luno-trade-bot-go/internal/config"
	"luno-trade-bot-go/internal/database"
	"luno-trade-bot-go/internal/logger"
	"luno-trade-bot-go/internal/luno"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("pair", cfg.Luno.Pair))

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Interrupting the optimizer stops new simulations; nothing is persisted.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, stopping backtest...")
		cancel()
	}()

	p := &pipeline{
		cfg:      &cfg,
		log:      log,
		exchange: luno.NewRestClient(&cfg.Luno, log),
		db:       db,
	}
	if err := p.run(ctx); err != nil {
		log.Fatal("Backtest failed", zap.Error(err))
	}
	log.Info("Backtest finished.")
}
