package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"luno-trade-bot-go/internal/backtest"
	"luno-trade-bot-go/internal/config"
	"luno-trade-bot-go/internal/fees"
	"luno-trade-bot-go/internal/market"
	"luno-trade-bot-go/internal/models"
	"luno-trade-bot-go/internal/optimizer"
	"luno-trade-bot-go/internal/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Where the candles of a run came from.
const (
	sourceExchange = "exchange"
	sourceCSV      = "csv"
	sourceSample   = "sample"
)

// pipeline runs the initial backtest and the grid optimization over one series.
type pipeline struct {
	cfg      *config.Config
	log      *zap.Logger
	exchange market.Exchange
	db       *gorm.DB
}

func (p *pipeline) run(ctx context.Context) error {
	bt := p.cfg.Backtest
	started := time.Now()

	series, source, err := p.loadSeries(ctx)
	if err != nil {
		return err
	}
	p.log.Info("Market data ready",
		zap.String("source", source),
		zap.Int("candles", len(series)),
		zap.Time("from", series[0].Timestamp),
		zap.Time("to", series[len(series)-1].Timestamp))

	rates, err := fees.NewSchedule(p.exchange, p.log).Lookup(ctx, p.cfg.Luno.Pair)
	if err != nil {
		p.log.Warn("Backtesting without trading fees", zap.Error(err))
	}

	sim, err := backtest.NewSimulator(bt.InitialCapital, rates.Taker, p.log)
	if err != nil {
		return err
	}
	records := store.NewRecordStore(bt.StrategyFile, p.log)
	report := store.NewReport(bt.ReportFile)
	opt := optimizer.NewOptimizer(sim, records, optimizer.Config{
		Workers:   bt.Workers,
		Tolerance: bt.DrawdownTolerance,
		Timeout:   time.Duration(bt.TimeoutSeconds) * time.Second,
		Base:      backtest.NewParams(bt.DefaultParameters),
	}, p.log)

	initial, err := opt.Evaluate(series, p.initialParams(records))
	if err != nil {
		return fmt.Errorf("initial backtest failed: %w", err)
	}
	p.logCandidate("Initial backtest", initial)
	if err := report.Append(initial.Params, initial.Metrics, false); err != nil {
		p.log.Error("Failed to append report", zap.Error(err))
	}
	p.recordRun(models.RunKindInitial, source, len(series), initial, started)

	started = time.Now()
	outcome, err := opt.Optimize(ctx, series, optimizer.Grid(bt.Grid))
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}
	p.logCandidate("Optimal strategy", outcome.Best)
	p.log.Info("Optimization summary",
		zap.Int("evaluated", outcome.Evaluated),
		zap.Int("failed", outcome.Failed),
		zap.Bool("improved", outcome.Improved),
		zap.Bool("persisted", outcome.Persisted))
	if err := report.Append(outcome.Best.Params, outcome.Best.Metrics, true); err != nil {
		p.log.Error("Failed to append report", zap.Error(err))
	}
	p.recordRun(models.RunKindOptimal, source, len(series), outcome.Best, started)
	return nil
}

// loadSeries reads the configured CSV, or collects recent trades and falls back to
// synthetic candles. Collected data is saved to the data file for later runs.
func (p *pipeline) loadSeries(ctx context.Context) (market.Series, string, error) {
	bt := p.cfg.Backtest
	if bt.DataSource == sourceCSV {
		series, err := market.LoadCSV(bt.DataFile)
		if err != nil {
			return nil, "", fmt.Errorf("could not load %s: %w", bt.DataFile, err)
		}
		return series, sourceCSV, nil
	}

	interval := time.Duration(bt.IntervalSeconds) * time.Second
	lookback := time.Duration(bt.LookbackHours) * time.Hour
	collector := market.NewCollector(p.exchange, p.cfg.Luno.Pair, p.log)
	series, synthetic, err := collector.CollectOrSample(ctx, lookback, interval, market.SampleConfig{
		Hours: bt.SampleHours,
		Seed:  bt.SampleSeed,
	})
	if err != nil {
		return nil, "", err
	}
	source := sourceExchange
	if synthetic {
		source = sourceSample
	}

	if err := market.WriteCSV(bt.DataFile, series); err != nil {
		p.log.Warn("Could not save market data", zap.String("file", bt.DataFile), zap.Error(err))
	} else {
		p.log.Info("Saved market data", zap.String("file", bt.DataFile))
	}
	return series, source, nil
}

// initialParams prefers the persisted optimum over the configured defaults.
func (p *pipeline) initialParams(records *store.RecordStore) backtest.Params {
	rec, err := records.Load()
	if err == nil {
		p.log.Info("Starting from persisted strategy", zap.Stringer("params", rec.Parameters))
		return rec.Parameters
	}
	p.log.Info("Starting from default strategy", zap.String("reason", err.Error()))
	return backtest.NewParams(p.cfg.Backtest.DefaultParameters)
}

func (p *pipeline) logCandidate(msg string, c optimizer.Candidate) {
	m := c.Metrics
	p.log.Info(msg,
		zap.Stringer("params", c.Params),
		zap.Int("trades", m.TotalTrades),
		zap.Float64("win_rate", m.WinRate),
		zap.Float64("total_profit", m.TotalProfit),
		zap.Float64("max_drawdown", m.MaxDrawdownPct),
		zap.Float64("profit_factor", m.ProfitFactor),
		zap.Float64("final_capital", m.FinalCapital),
		zap.Float64("fees", c.Result.Fees))
}

// recordRun stores the run in the history table. Failures are logged only.
func (p *pipeline) recordRun(kind, source string, bars int, c optimizer.Candidate, started time.Time) {
	params, err := json.Marshal(c.Params)
	if err != nil {
		p.log.Error("Failed to encode parameters", zap.Error(err))
		return
	}
	m := c.Metrics
	run := models.BacktestRun{
		Pair:           p.cfg.Luno.Pair,
		Kind:           kind,
		DataSource:     source,
		Bars:           bars,
		Parameters:     string(params),
		InitialCapital: p.cfg.Backtest.InitialCapital,
		TotalTrades:    m.TotalTrades,
		WinningTrades:  m.WinningTrades,
		LosingTrades:   m.LosingTrades,
		WinRate:        m.WinRate,
		TotalProfit:    m.TotalProfit,
		MaxDrawdown:    m.MaxDrawdownPct,
		ProfitFactor:   m.ProfitFactor,
		FinalCapital:   m.FinalCapital,
		StartedAt:      started,
		FinishedAt:     time.Now(),
	}
	if err := p.db.Create(&run).Error; err != nil {
		p.log.Error("Failed to save backtest run", zap.String("kind", kind), zap.Error(err))
	}
}
