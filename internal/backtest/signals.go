package backtest

import (
	"errors"
	"math"
)

// ErrInsufficientHistory means there are fewer bars than the longest indicator window.
// Simulations skip such bars; callers evaluating a single bar use it to stay idle.
var ErrInsufficientHistory = errors.New("insufficient history")

// ExitReason tells why a position was closed.
type ExitReason string

const (
	ExitNone       ExitReason = ""
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitCrossover  ExitReason = "ma_crossover"
)

// Snapshot holds the indicator values of one bar, computed from that bar and the bars before it.
type Snapshot struct {
	Close       float64
	MAShort     float64
	MALong      float64
	VWAP        float64
	ATR         float64
	VolumeRatio float64
}

// Ready reports whether the indicators every signal needs are defined.
func (s Snapshot) Ready() bool {
	return !math.IsNaN(s.MAShort) && !math.IsNaN(s.MALong) && !math.IsNaN(s.VolumeRatio)
}

// EntrySignal is true when the short MA is above the long MA, price sits near VWAP
// and volume is running above its average.
func EntrySignal(r Rules, s Snapshot) bool {
	if !s.Ready() || s.MAShort <= s.MALong {
		return false
	}
	if r.VWAPBand > 0 {
		if math.IsNaN(s.VWAP) || s.VWAP <= 0 || math.Abs(s.Close-s.VWAP)/s.VWAP >= r.VWAPBand {
			return false
		}
	}
	return s.VolumeRatio > r.EntryVolumeRatio
}

// StopDistance is the fractional adverse move that triggers the stop: the configured
// stop loss, widened to ATRMultiplier*ATR/price in volatile markets.
func StopDistance(r Rules, s Snapshot) float64 {
	stop := r.StopLoss
	if !math.IsNaN(s.ATR) && s.Close > 0 {
		stop = math.Max(stop, r.ATRMultiplier*s.ATR/s.Close)
	}
	return stop
}

// ExitSignal evaluates an open long position entered at entryPrice.
func ExitSignal(r Rules, s Snapshot, entryPrice float64) ExitReason {
	if !s.Ready() || entryPrice <= 0 {
		return ExitNone
	}
	change := (s.Close - entryPrice) / entryPrice
	switch {
	case change <= -StopDistance(r, s):
		return ExitStopLoss
	case change >= r.TakeProfit:
		return ExitTakeProfit
	case s.MAShort < s.MALong && s.VolumeRatio > r.ExitVolumeRatio:
		return ExitCrossover
	}
	return ExitNone
}
