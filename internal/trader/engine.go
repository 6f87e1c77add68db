package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"luno-trade-bot-go/internal/backtest"
	"luno-trade-bot-go/internal/config"
	"luno-trade-bot-go/internal/fees"
	"luno-trade-bot-go/internal/market"
	"luno-trade-bot-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine is the paper-trading loop. It polls the exchange, evaluates the strategy
// on freshly aggregated candles and books simulated trades. It never places orders.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger    *zap.Logger
	cfg       *config.Config
	collector *market.Collector
	schedule  *fees.Schedule
	calc      *fees.Calculator
	strategy  Strategy
	db        *gorm.DB
	now       func() time.Time

	mu        sync.RWMutex
	state     SessionState
	lastPrice decimal.Decimal
}

// NewEngine creates a new trading engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, exchange market.Exchange, db *gorm.DB, strategy Strategy) *Engine {
	return &Engine{
		UUID:      uuid.NewString(),
		Name:      cfg.Trading.Name,
		StartTime: time.Now(),
		logger:    logger.Named("engine").With(zap.String("strategy", strategy.Name()), zap.String("pair", cfg.Luno.Pair)),
		cfg:       cfg,
		collector: market.NewCollector(exchange, cfg.Luno.Pair, logger),
		schedule:  fees.NewSchedule(exchange, logger),
		calc:      fees.NewCalculator(),
		strategy:  strategy,
		db:        db,
		now:       time.Now,
	}
}

// Resume loads the latest session for the configured pair and strategy, or starts a new one.
func (e *Engine) Resume() (SessionState, error) {
	var m models.Session
	err := e.db.Where("pair = ? AND strategy = ?", e.cfg.Luno.Pair, e.strategy.Name()).
		Order("updated_at desc").
		First(&m).Error
	if err == nil {
		state := sessionFromModel(m)
		e.logger.Info("Resuming session",
			zap.String("session", state.ID),
			zap.String("capital", state.Capital.String()),
			zap.String("position", state.Position.String()))
		return state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionState{}, fmt.Errorf("could not load session: %w", err)
	}

	state := NewSessionState(e.cfg.Luno.Pair, e.strategy.Name(), decimal.NewFromFloat(e.cfg.Trading.InitialCapital))
	if err := e.saveSession(e.db, state); err != nil {
		return SessionState{}, err
	}
	e.logger.Info("Started new session", zap.String("session", state.ID), zap.String("capital", state.Capital.String()))
	return state, nil
}

// Run starts the trading engine's main loop and blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Initializing trading engine...")
	state, err := e.Resume()
	if err != nil {
		return err
	}
	e.setState(state, decimal.Zero)

	interval := time.Duration(e.cfg.Trading.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Starting trading loop", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping trading engine...",
				zap.String("net_profit", state.NetProfit().String()),
				zap.Int("trades", state.Trades))
			return nil
		case <-ticker.C:
			next, err := e.Step(ctx, state)
			if err != nil {
				e.logger.Error("Step failed", zap.Error(err))
			}
			state = next
		}
	}
}

// Step runs one polling cycle on state and returns the state to continue with.
// The returned state is usable even when an error is reported: a trade that was
// booked but could not be persisted is still part of it.
func (e *Engine) Step(ctx context.Context, state SessionState) (SessionState, error) {
	interval := time.Duration(e.cfg.Backtest.IntervalSeconds) * time.Second
	history := time.Duration(e.cfg.Trading.HistoryMinutes) * time.Minute

	series, err := e.collector.Collect(ctx, history, interval)
	if err != nil {
		return state, fmt.Errorf("could not collect market data: %w", err)
	}
	last := series[len(series)-1]
	price := decimal.NewFromFloat(last.Close)
	e.setState(state, price)

	decision, err := e.strategy.Decide(series, state)
	if errors.Is(err, backtest.ErrInsufficientHistory) {
		e.logger.Debug("Waiting for more candles", zap.Int("candles", len(series)))
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("strategy failed: %w", err)
	}

	l := e.logger.With(
		zap.String("session", state.ID),
		zap.Stringer("action", decision.Action),
		zap.Float64("price", last.Close),
	)

	var (
		next  SessionState
		trade models.Trade
	)
	at := e.now()
	switch decision.Action {
	case Buy:
		if state.Long() {
			return state, nil
		}
		state.TakerFee = e.takerFee(ctx)
		next, trade, err = bookBuy(e.calc, state, price, decision.Fraction, at)
	case Sell:
		if !state.Long() {
			return state, nil
		}
		state.TakerFee = e.takerFee(ctx)
		next, trade, err = bookSell(e.calc, state, price, decision.Reason, at)
	default:
		l.Debug("Holding", zap.Bool("long", state.Long()))
		return state, nil
	}
	if err != nil {
		l.Warn("Trade aborted", zap.Error(err))
		return state, err
	}
	trade.Reason = decision.Reason

	l.Info("Paper trade booked",
		zap.Float64("amount", trade.Amount),
		zap.Float64("quote_amount", trade.QuoteAmount),
		zap.Float64("fee", trade.Fee),
		zap.Float64("profit", trade.Profit),
		zap.String("capital", next.Capital.String()))

	e.setState(next, price)
	if err := e.persist(next, trade); err != nil {
		l.Error("Failed to save paper trade", zap.Error(err))
		return next, err
	}
	return next, nil
}

// takerFee looks up the taker rate. A failed lookup trades fee-free; the schedule logs why.
func (e *Engine) takerFee(ctx context.Context) decimal.Decimal {
	rates, err := e.schedule.Lookup(ctx, e.cfg.Luno.Pair)
	if err != nil {
		e.logger.Warn("Booking trade without fees", zap.Error(err))
	}
	return rates.Taker
}

func (e *Engine) persist(state SessionState, trade models.Trade) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&trade).Error; err != nil {
			return fmt.Errorf("could not save trade: %w", err)
		}
		return e.saveSession(tx, state)
	})
}

func (e *Engine) saveSession(db *gorm.DB, state SessionState) error {
	m := state.toModel()
	if err := db.Save(&m).Error; err != nil {
		return fmt.Errorf("could not save session: %w", err)
	}
	return nil
}

func (e *Engine) setState(state SessionState, price decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
	if !price.IsZero() {
		e.lastPrice = price
	}
}

// RecentTrades returns up to limit trades of the current session, newest first.
func (e *Engine) RecentTrades(limit int) ([]models.Trade, error) {
	e.mu.RLock()
	session := e.state.ID
	e.mu.RUnlock()

	var trades []models.Trade
	err := e.db.Where("session_id = ?", session).
		Order("timestamp desc").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("could not load trades: %w", err)
	}
	return trades, nil
}

// Status is a point-in-time view of the engine.
type Status struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	Strategy  string    `json:"strategy"`
	StartTime time.Time `json:"start_time"`
	Uptime    string    `json:"uptime"`
	Session   string    `json:"session"`
	Capital   string    `json:"capital"`
	Position  string    `json:"position"`
	Equity    string    `json:"equity"`
	NetProfit string    `json:"net_profit"`
	Trades    int       `json:"trades"`
}

// Status reports the engine's current session.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		UUID:      e.UUID,
		Name:      e.Name,
		Strategy:  e.strategy.Name(),
		StartTime: e.StartTime,
		Uptime:    time.Since(e.StartTime).Round(time.Second).String(),
		Session:   e.state.ID,
		Capital:   e.state.Capital.String(),
		Position:  e.state.Position.String(),
		Equity:    e.state.Equity(e.lastPrice).String(),
		NetProfit: e.state.NetProfit().String(),
		Trades:    e.state.Trades,
	}
}
