package trader

import (
	"testing"

	"luno-trade-bot-go/internal/backtest"
	"luno-trade-bot-go/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zigzag moves by up on even bars and by down on odd bars.
func zigzag(n int, up, down float64) market.Series {
	closes := make([]float64, n)
	volumes := make([]float64, n)
	price := 100.0
	for i := range closes {
		if i%2 == 0 {
			price += up
		} else {
			price += down
		}
		closes[i] = price
		volumes[i] = 1
	}
	return seriesFrom(closes, volumes)
}

func TestTrendRSIStrategy_Decide(t *testing.T) {
	s := NewTrendRSIStrategy()
	flat := NewSessionState("XBTMYR", s.Name(), dec("1000"))

	rising := zigzag(60, 1, -0.5)  // RSI about 67, MA20 above MA50
	falling := zigzag(60, -1, 0.5) // MA20 below MA50
	last := func(s market.Series) decimal.Decimal { return decimal.NewFromFloat(s[len(s)-1].Close) }

	t.Run("InsufficientHistory", func(t *testing.T) {
		_, err := s.Decide(rising[:40], flat)
		assert.ErrorIs(t, err, backtest.ErrInsufficientHistory)
	})

	t.Run("BuyInUptrend", func(t *testing.T) {
		d, err := s.Decide(rising, flat)
		require.NoError(t, err)
		assert.Equal(t, Buy, d.Action)
		assert.Equal(t, 0.5, d.Fraction)
	})

	t.Run("NoBuyWhenOverbought", func(t *testing.T) {
		d, err := s.Decide(zigzag(60, 1, -0.1), flat)
		require.NoError(t, err)
		assert.Equal(t, Hold, d.Action)
	})

	t.Run("HoldWhileTrendHolds", func(t *testing.T) {
		long := flat
		long.Position = dec("1")
		long.EntryPrice = last(rising).Mul(dec("2"))
		d, err := s.Decide(rising, long)
		require.NoError(t, err)
		assert.Equal(t, Hold, d.Action)
	})

	t.Run("StopLoss", func(t *testing.T) {
		long := flat
		long.Position = dec("1")
		long.EntryPrice = last(falling).Mul(dec("1.05"))
		d, err := s.Decide(falling, long)
		require.NoError(t, err)
		assert.Equal(t, Sell, d.Action)
		assert.Equal(t, string(backtest.ExitStopLoss), d.Reason)
	})

	t.Run("TakeProfit", func(t *testing.T) {
		long := flat
		long.Position = dec("1")
		long.EntryPrice = last(falling).Div(dec("1.05"))
		d, err := s.Decide(falling, long)
		require.NoError(t, err)
		assert.Equal(t, Sell, d.Action)
		assert.Equal(t, string(backtest.ExitTakeProfit), d.Reason)
	})

	t.Run("FlatInDowntrend", func(t *testing.T) {
		d, err := s.Decide(falling, flat)
		require.NoError(t, err)
		assert.Equal(t, Hold, d.Action)
	})
}
