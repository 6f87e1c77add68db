package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"luno-trade-bot-go/internal/config"
	"luno-trade-bot-go/internal/market"
	"luno-trade-bot-go/internal/market/markettest"
	"luno-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Luno:     config.Luno{Pair: "XBTMYR"},
		Backtest: config.Backtest{IntervalSeconds: 60},
		Trading: config.Trading{
			Name:           "test-trader",
			TickInterval:   1,
			HistoryMinutes: 120,
			InitialCapital: 1000,
		},
	}
}

func newTestEngine(t *testing.T, exchange *markettest.Exchange, db *gorm.DB) *Engine {
	t.Helper()
	strategy, err := NewSignalStrategy(breakoutParams())
	require.NoError(t, err)
	e := NewEngine(zap.NewNop(), testConfig(), exchange, db, strategy)
	e.now = func() time.Time { return seriesStart.Add(time.Hour) }
	return e
}

func TestEngine_Resume(t *testing.T) {
	db := setupDB(t)
	e := newTestEngine(t, new(markettest.Exchange), db)

	first, err := e.Resume()
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(first.Capital))
	assert.Equal(t, "optimized", first.Strategy)

	again, err := e.Resume()
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "an existing session is resumed")

	var count int64
	db.Model(&models.Session{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEngine_StepBuys(t *testing.T) {
	db := setupDB(t)
	exchange := new(markettest.Exchange)
	exchange.On("ListRecentTrades", mock.Anything, "XBTMYR", mock.Anything).Return(ticksFrom(breakoutCloses()), nil)
	exchange.On("GetFeeInfo", mock.Anything, "XBTMYR").Return(market.FeeInfo{TakerFee: dec("0.001")}, nil)

	e := newTestEngine(t, exchange, db)
	state, err := e.Resume()
	require.NoError(t, err)

	next, err := e.Step(context.Background(), state)
	require.NoError(t, err)

	assert.True(t, next.Long())
	assert.True(t, dec("50").Equal(next.Capital), "95%% of capital is committed, got %s", next.Capital)
	assert.True(t, dec("0.95").Equal(next.TotalFees))
	assert.True(t, dec("100.5").Equal(next.EntryPrice))
	assert.True(t, dec("0.001").Equal(next.TakerFee))

	var trades []models.Trade
	require.NoError(t, db.Find(&trades).Error)
	require.Len(t, trades, 1)
	assert.Equal(t, models.TradeTypeBuy, trades[0].Type)
	assert.Equal(t, state.ID, trades[0].SessionID)
	assert.Equal(t, "ma_vwap_volume", trades[0].Reason)
	assert.InDelta(t, 0.95, trades[0].Fee, 1e-9)
	assert.Equal(t, seriesStart.Add(time.Hour).UnixMilli(), trades[0].Timestamp)

	var saved models.Session
	require.NoError(t, db.First(&saved, "id = ?", state.ID).Error)
	assert.True(t, next.Position.Equal(saved.Position))
	assert.True(t, next.Capital.Equal(saved.Capital))

	status := e.Status()
	assert.Equal(t, state.ID, status.Session)
	assert.Equal(t, "test-trader", status.Name)
	assert.Equal(t, "50", status.Capital)
	exchange.AssertExpectations(t)
}

func TestEngine_StepBuysFeeFreeWhenScheduleUnavailable(t *testing.T) {
	exchange := new(markettest.Exchange)
	exchange.On("ListRecentTrades", mock.Anything, "XBTMYR", mock.Anything).Return(ticksFrom(breakoutCloses()), nil)
	exchange.On("GetFeeInfo", mock.Anything, "XBTMYR").Return(market.FeeInfo{}, errors.New("unauthorized"))

	e := newTestEngine(t, exchange, setupDB(t))
	state, err := e.Resume()
	require.NoError(t, err)

	next, err := e.Step(context.Background(), state)
	require.NoError(t, err)
	assert.True(t, next.Long())
	assert.True(t, next.TotalFees.IsZero())
}

func TestEngine_StepSellsAtTakeProfit(t *testing.T) {
	db := setupDB(t)
	exchange := new(markettest.Exchange)
	exchange.On("ListRecentTrades", mock.Anything, "XBTMYR", mock.Anything).Return(ticksFrom(breakoutCloses()), nil)
	exchange.On("GetFeeInfo", mock.Anything, "XBTMYR").Return(market.FeeInfo{}, nil)

	e := newTestEngine(t, exchange, db)
	state, err := e.Resume()
	require.NoError(t, err)
	state.Capital = dec("30")
	state.Position = dec("10")
	state.EntryPrice = dec("97")
	state.CostBasis = dec("97")

	next, err := e.Step(context.Background(), state)
	require.NoError(t, err)

	assert.False(t, next.Long())
	assert.True(t, dec("1035").Equal(next.Capital), "got %s", next.Capital)
	assert.True(t, dec("35").Equal(next.TotalProfit))
	assert.Equal(t, 1, next.Trades)
	assert.Equal(t, 1, next.WinningTrades)

	var trade models.Trade
	require.NoError(t, db.First(&trade).Error)
	assert.Equal(t, models.TradeTypeSell, trade.Type)
	assert.Equal(t, "take_profit", trade.Reason)
	assert.InDelta(t, 35.0, trade.Profit, 1e-9)
}

func TestEngine_StepIdleWithoutHistory(t *testing.T) {
	closes, volumes := breakoutCloses()
	exchange := new(markettest.Exchange)
	exchange.On("ListRecentTrades", mock.Anything, "XBTMYR", mock.Anything).Return(ticksFrom(closes[:5], volumes[:5]), nil)

	e := newTestEngine(t, exchange, setupDB(t))
	state, err := e.Resume()
	require.NoError(t, err)

	next, err := e.Step(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, state, next)
	exchange.AssertNotCalled(t, "GetFeeInfo", mock.Anything, mock.Anything)
}

func TestEngine_StepCollectFailure(t *testing.T) {
	exchange := new(markettest.Exchange)
	exchange.On("ListRecentTrades", mock.Anything, "XBTMYR", mock.Anything).Return(nil, errors.New("connection reset"))

	e := newTestEngine(t, exchange, setupDB(t))
	state, err := e.Resume()
	require.NoError(t, err)

	next, err := e.Step(context.Background(), state)
	assert.ErrorIs(t, err, market.ErrDataUnavailable)
	assert.Equal(t, state, next)
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	exchange := new(markettest.Exchange)
	exchange.On("ListRecentTrades", mock.Anything, "XBTMYR", mock.Anything).Return(nil, errors.New("offline")).Maybe()

	e := newTestEngine(t, exchange, setupDB(t))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, e.Run(ctx))
	assert.NotEmpty(t, e.Status().Session)
}
