package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luno-trade-bot-go/internal/backtest"
	"luno-trade-bot-go/internal/config"
	"luno-trade-bot-go/internal/database"
	"luno-trade-bot-go/internal/logger"
	"luno-trade-bot-go/internal/luno"
	"luno-trade-bot-go/internal/store"
	"luno-trade-bot-go/internal/trader"

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
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize Luno REST client
	restClient := luno.NewRestClient(&cfg.Luno, log)
	price, err := restClient.GetCurrentPrice(ctx, cfg.Luno.Pair)
	if err != nil {
		log.Fatal("Failed to connect to Luno API", zap.Error(err))
	}
	log.Info("Successfully connected to Luno API.", zap.Float64("last_trade", price))

	strategy, err := trader.NewStrategy(cfg.Trading.Strategy, func() (*trader.SignalStrategy, error) {
		return trader.NewSignalStrategy(tradingParams(&cfg, log))
	})
	if err != nil {
		log.Fatal("Failed to create strategy", zap.Error(err))
	}

	// Initialize and run the trading engine
	tradeEngine := trader.NewEngine(log, &cfg, restClient, db, strategy)

	var api *trader.APIServer
	if cfg.Trading.ApiPort > 0 {
		api = trader.NewAPIServer(tradeEngine, cfg.Trading.ApiPort, log)
		api.Start()
	}

	if err := tradeEngine.Run(ctx); err != nil {
		log.Error("Trading engine stopped", zap.Error(err))
	}

	if api != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := api.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop API server", zap.Error(err))
		}
	}
	log.Info("Bot has been shut down.")
}

// tradingParams returns the persisted optimum, or the configured defaults when there is none.
func tradingParams(cfg *config.Config, log *zap.Logger) backtest.Params {
	rec, err := store.NewRecordStore(cfg.Backtest.StrategyFile, log).Load()
	if err != nil {
		log.Warn("No optimal strategy available, trading the default parameters", zap.Error(err))
		return backtest.NewParams(cfg.Backtest.DefaultParameters)
	}
	log.Info("Trading the optimal strategy",
		zap.Stringer("params", rec.Parameters),
		zap.Time("captured_at", rec.CapturedAt))
	return rec.Parameters
}
