// Package indicators holds stateless technical indicators over price and volume series.
// Functions that cannot be computed from the available history return NaN; callers
// must check with math.IsNaN before using a value in a decision.
package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// DefaultRSIPeriod and DefaultATRPeriod are the conventional lookbacks.
const (
	DefaultRSIPeriod = 14
	DefaultATRPeriod = 14
)

// neutralRSI is reported when the window shows no price movement at all.
const neutralRSI = 50.0

// MovingAverage is the arithmetic mean of the last period points.
func MovingAverage(series []float64, period int) float64 {
	if period <= 0 || len(series) < period {
		return math.NaN()
	}
	var sum float64
	for _, v := range series[len(series)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// SMASeries returns the simple moving average aligned to the input, NaN during warm-up.
func SMASeries(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 || len(series) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	sma := talib.Sma(series, period)
	for i := range out {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sma[i]
	}
	return out
}

// RSI compares average gains with average absolute moves over the last period deltas,
// scaled to [0,100]. A window with no movement yields 50.
func RSI(series []float64, period int) float64 {
	if period <= 0 || len(series) < period+1 {
		return math.NaN()
	}
	var up, down float64
	window := series[len(series)-period-1:]
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d > 0 {
			up += d
		} else {
			down -= d
		}
	}
	if up+down == 0 {
		return neutralRSI
	}
	return up / (up + down) * 100
}

// VWAP is the cumulative volume-weighted average price over the whole input.
func VWAP(prices, volumes []float64) float64 {
	s := VWAPSeries(prices, volumes)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

// VWAPSeries returns the running VWAP at every bar. Bars before any volume has traded are NaN.
func VWAPSeries(prices, volumes []float64) []float64 {
	n := min(len(prices), len(volumes))
	out := make([]float64, n)
	var pv, vol float64
	for i := 0; i < n; i++ {
		pv += prices[i] * volumes[i]
		vol += volumes[i]
		if vol == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = pv / vol
	}
	return out
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and uses high-low.
func TrueRange(high, low, close []float64) []float64 {
	n := min(len(high), len(low), len(close))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		tr := high[i] - low[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(high[i]-close[i-1]))
			tr = math.Max(tr, math.Abs(low[i]-close[i-1]))
		}
		out[i] = tr
	}
	return out
}

// ATR is the mean true range over the last period bars.
func ATR(high, low, close []float64, period int) float64 {
	s := ATRSeries(high, low, close, period)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

// ATRSeries returns the rolling ATR at every bar, NaN during warm-up.
func ATRSeries(high, low, close []float64, period int) []float64 {
	return SMASeries(TrueRange(high, low, close), period)
}
