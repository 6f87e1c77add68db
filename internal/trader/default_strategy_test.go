package trader

import (
	"testing"

	"luno-trade-bot-go/internal/backtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakoutParams() backtest.Params {
	return backtest.NewParams(map[string]float64{
		backtest.KeyMAShort:    5,
		backtest.KeyMALong:     20,
		backtest.KeyStopLoss:   0.02,
		backtest.KeyTakeProfit: 0.03,
	})
}

func TestNewSignalStrategy_InvalidParams(t *testing.T) {
	_, err := NewSignalStrategy(backtest.NewParams(map[string]float64{backtest.KeyMAShort: 5}))
	assert.ErrorIs(t, err, backtest.ErrInvalidParameter)
}

func TestSignalStrategy_Decide(t *testing.T) {
	s, err := NewSignalStrategy(breakoutParams())
	require.NoError(t, err)
	assert.True(t, s.Params().Equal(breakoutParams()))

	series := seriesFrom(breakoutCloses())
	flat := NewSessionState("XBTMYR", s.Name(), dec("1000"))

	t.Run("InsufficientHistory", func(t *testing.T) {
		_, err := s.Decide(series[:10], flat)
		assert.ErrorIs(t, err, backtest.ErrInsufficientHistory)
	})

	t.Run("HoldBeforeBreakout", func(t *testing.T) {
		d, err := s.Decide(series[:21], flat)
		require.NoError(t, err)
		assert.Equal(t, Hold, d.Action)
	})

	t.Run("BuyOnBreakout", func(t *testing.T) {
		d, err := s.Decide(series, flat)
		require.NoError(t, err)
		assert.Equal(t, Buy, d.Action)
		assert.Equal(t, 0.95, d.Fraction)
	})

	t.Run("LongIgnoresEntrySignal", func(t *testing.T) {
		long := flat
		long.Position = dec("1")
		long.EntryPrice = dec("100.4")
		d, err := s.Decide(series, long)
		require.NoError(t, err)
		assert.Equal(t, Hold, d.Action)
	})

	t.Run("SellAtTakeProfit", func(t *testing.T) {
		long := flat
		long.Position = dec("1")
		long.EntryPrice = dec("97")
		d, err := s.Decide(series, long)
		require.NoError(t, err)
		assert.Equal(t, Sell, d.Action)
		assert.Equal(t, string(backtest.ExitTakeProfit), d.Reason)
	})
}
