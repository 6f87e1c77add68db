package trader

import (
	"testing"
	"time"

	"luno-trade-bot-go/internal/database"
	"luno-trade-bot-go/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// breakoutCloses is flat at 100 for 21 bars followed by a high-volume bar at 100.5.
func breakoutCloses() ([]float64, []float64) {
	closes := make([]float64, 22)
	volumes := make([]float64, 22)
	for i := range closes {
		closes[i] = 100
		volumes[i] = 1
	}
	closes[21] = 100.5
	volumes[21] = 3
	return closes, volumes
}

func seriesFrom(closes, volumes []float64) market.Series {
	s := make(market.Series, len(closes))
	for i, c := range closes {
		s[i] = market.Candle{
			Timestamp: seriesStart.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c + 0.1,
			Low:       c - 0.1,
			Close:     c,
			Volume:    volumes[i],
		}
	}
	return s
}

// ticksFrom produces one trade per minute so that aggregation gives back one candle per close.
func ticksFrom(closes, volumes []float64) []market.Tick {
	ticks := make([]market.Tick, len(closes))
	for i, c := range closes {
		ticks[i] = market.Tick{
			Timestamp: seriesStart.Add(time.Duration(i)*time.Minute + time.Second),
			Price:     c,
			Volume:    volumes[i],
		}
	}
	return ticks
}

// setupDB creates a fresh in-memory database for each test.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	return db
}
