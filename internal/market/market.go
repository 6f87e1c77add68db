package market

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyInput is returned when there are no ticks to aggregate.
	ErrEmptyInput = errors.New("no ticks to aggregate")
	// ErrDataUnavailable means the market data source could not provide usable data.
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrInvalidInterval is returned for a non-positive candle interval.
	ErrInvalidInterval = errors.New("candle interval must be positive")
	// ErrInvalidTick is returned for a tick with a negative or non-finite price or volume.
	ErrInvalidTick = errors.New("invalid tick")
	// ErrInvalidCandle is returned for a row that does not form a valid candle.
	ErrInvalidCandle = errors.New("invalid candle")
)

// Tick is a single executed trade observed on the exchange.
type Tick struct {
	Timestamp time.Time
	Price     float64
	Volume    float64
}

// Candle is an OHLCV bar. Timestamp is the start of the interval.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Valid reports whether every field is finite and the candle respects
// 0 <= low <= open,close <= high and volume >= 0.
func (c Candle) Valid() bool {
	if !finite(c.Open, c.High, c.Low, c.Close, c.Volume) {
		return false
	}
	return c.Low >= 0 &&
		c.Low <= c.Open && c.Low <= c.Close &&
		c.High >= c.Open && c.High >= c.Close &&
		c.Volume >= 0
}

// Valid reports whether price and volume are finite and non-negative.
func (t Tick) Valid() bool {
	return finite(t.Price, t.Volume) && t.Price >= 0 && t.Volume >= 0
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Series is an ascending, timestamp-unique sequence of candles.
type Series []Candle

// Closes returns the close prices of the series.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high prices of the series.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns the low prices of the series.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the volumes of the series.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// FeeInfo is the fee schedule the exchange reports for a pair.
type FeeInfo struct {
	MakerFee decimal.Decimal
	TakerFee decimal.Decimal
}

// Exchange is the narrow capability the market data and fee components need from an exchange adapter.
type Exchange interface {
	ListRecentTrades(ctx context.Context, pair string, since time.Time) ([]Tick, error)
	GetCurrentPrice(ctx context.Context, pair string) (float64, error)
	GetFeeInfo(ctx context.Context, pair string) (FeeInfo, error)
}
