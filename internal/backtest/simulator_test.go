package backtest

import (
	"math"
	"testing"
	"time"

	"luno-trade-bot-go/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// crossoverSeries is a 60-bar series: flat at 100 for 21 bars, a high-volume breakout
// at bar 21, a steady climb to bar 35 and a decline afterwards.
func crossoverSeries() market.Series {
	closes := make([]float64, 60)
	volumes := make([]float64, 60)
	for i := range closes {
		volumes[i] = 1
		switch {
		case i <= 20:
			closes[i] = 100
		case i <= 35:
			closes[i] = 100.5 + 0.5*float64(i-21)
		default:
			closes[i] = closes[35] - 0.8*float64(i-35)
		}
	}
	volumes[21] = 3
	return seriesFrom(closes, volumes)
}

func seriesFrom(closes, volumes []float64) market.Series {
	s := make(market.Series, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		s[i] = market.Candle{
			Timestamp: seriesStart.Add(time.Duration(i) * time.Minute),
			Open:      open,
			High:      math.Max(open, c) + 0.1,
			Low:       math.Min(open, c) - 0.1,
			Close:     c,
			Volume:    volumes[i],
		}
	}
	return s
}

func crossoverParams() Params {
	return defaultParams().With(KeyMAShort, 5).With(KeyMALong, 20)
}

func newTestSimulator(t *testing.T, fee string) *Simulator {
	t.Helper()
	sim, err := NewSimulator(1000, decimal.RequireFromString(fee), zap.NewNop())
	require.NoError(t, err)
	return sim
}

func TestNewSimulator_Invalid(t *testing.T) {
	_, err := NewSimulator(0, decimal.Zero, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewSimulator(-10, decimal.Zero, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewSimulator(1000, decimal.RequireFromString("-0.001"), zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSimulator_CrossoverScenario(t *testing.T) {
	series := crossoverSeries()
	sim := newTestSimulator(t, "0")

	res, err := sim.Run(series, crossoverParams())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	require.True(t, tr.Closed())
	assert.Equal(t, 21, tr.EntryBar)
	assert.Equal(t, series[21].Close, tr.EntryPrice)
	assert.Equal(t, series[21].Timestamp, tr.EntryTime)
	assert.LessOrEqual(t, tr.ExitBar, 45)
	assert.Equal(t, ExitTakeProfit, tr.ExitReason)
	assert.Equal(t, 28, tr.ExitBar)
	assert.Greater(t, tr.Profit, 0.0)

	// 95% of capital rides from 100.5 to 104.
	assert.InDelta(t, 950*(104/100.5-1), tr.Profit, 1e-6)
	assert.InDelta(t, 1000+tr.Profit, res.Cash, 1e-6)

	assert.Len(t, res.Equity, len(series))
	assert.Equal(t, 19, res.SkippedBars, "bars before the 20-bar windows fill are skipped")
}

func TestSimulator_FeesReduceProfit(t *testing.T) {
	series := crossoverSeries()
	free, err := newTestSimulator(t, "0").Run(series, crossoverParams())
	require.NoError(t, err)
	paid, err := newTestSimulator(t, "0.001").Run(series, crossoverParams())
	require.NoError(t, err)

	require.Len(t, paid.Trades, 1)
	assert.Less(t, paid.Trades[0].Profit, free.Trades[0].Profit)
	assert.Greater(t, paid.Fees, 0.0)
	assert.InDelta(t, 1000+paid.Trades[0].Profit, paid.Cash, 1e-6, "trade profit equals the change in cash")
}

func TestSimulator_IndependentRuns(t *testing.T) {
	series := crossoverSeries()
	sim := newTestSimulator(t, "0.001")

	first, err := sim.Run(series, crossoverParams())
	require.NoError(t, err)
	second, err := sim.Run(series, crossoverParams())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulator_OpenTradeAtEnd(t *testing.T) {
	series := crossoverSeries()[:25]
	res, err := newTestSimulator(t, "0").Run(series, crossoverParams())
	require.NoError(t, err)

	open, ok := res.OpenTrade()
	require.True(t, ok)
	assert.Equal(t, 21, open.EntryBar)
	assert.InDelta(t, 50, res.Cash, 1e-9, "allocated cash stays out until the position closes")

	last := res.Equity[len(res.Equity)-1].Equity
	assert.Greater(t, last, 1000.0, "equity marks the open position to market")

	m := CalculateMetrics(res.Trades, 1000)
	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 1, m.OpenTrades)
	assert.Zero(t, m.TotalProfit)
	assert.Equal(t, 1000.0, m.FinalCapital)
}

func TestSimulator_ShortSeries(t *testing.T) {
	series := crossoverSeries()[:10]
	res, err := newTestSimulator(t, "0").Run(series, crossoverParams())
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, 10, res.SkippedBars)
	assert.Equal(t, 1000.0, res.Cash)
}

func TestSimulator_InvalidParams(t *testing.T) {
	_, err := newTestSimulator(t, "0").Run(crossoverSeries(), NewParams(nil))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSimulator_UnpricableClose(t *testing.T) {
	sim := newTestSimulator(t, "0")
	for name, v := range map[string]float64{
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
		"zero":     0,
		"negative": -3,
	} {
		t.Run(name, func(t *testing.T) {
			series := crossoverSeries()
			series[40].Close = v
			var err error
			require.NotPanics(t, func() {
				_, err = sim.Run(series, crossoverParams())
			})
			assert.ErrorIs(t, err, ErrInvalidParameter)
			assert.Contains(t, err.Error(), "bar 40")
		})
	}
}

func TestSimulator_StopLoss(t *testing.T) {
	closes := make([]float64, 30)
	volumes := make([]float64, 30)
	for i := range closes {
		volumes[i] = 1
		closes[i] = 100
	}
	closes[21] = 100.5
	volumes[21] = 3
	for i := 22; i < 30; i++ {
		closes[i] = 100.5 - 0.3*float64(i-21)
	}

	res, err := newTestSimulator(t, "0").Run(seriesFrom(closes, volumes), crossoverParams())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	require.True(t, tr.Closed())
	assert.Equal(t, ExitStopLoss, tr.ExitReason)
	assert.Less(t, tr.Profit, 0.0)
	assert.LessOrEqual(t, (*tr.ExitPrice-tr.EntryPrice)/tr.EntryPrice, -0.02)
}

func TestSnapshotAt(t *testing.T) {
	r, err := crossoverParams().Rules()
	require.NoError(t, err)

	_, err = SnapshotAt(crossoverSeries()[:5], r)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	snap, err := SnapshotAt(crossoverSeries()[:22], r)
	require.NoError(t, err)
	assert.InDelta(t, 100.1, snap.MAShort, 1e-9)
	assert.InDelta(t, 100.025, snap.MALong, 1e-9)
	assert.InDelta(t, 3/1.1, snap.VolumeRatio, 1e-9)
	assert.True(t, EntrySignal(r, snap))
}
