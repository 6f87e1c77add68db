package backtest

import (
	"math"

	"github.com/samber/lo"
)

// InfiniteProfitFactor stands in for an infinite profit factor (winnings with no losses)
// so metrics stay finite wherever they are stored.
const InfiniteProfitFactor = 999999.0

// Metrics summarizes a trade list. Only closed trades contribute to profit figures;
// TotalTrades also counts a position left open.
type Metrics struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	OpenTrades     int     `json:"open_trades"`
	WinRate        float64 `json:"win_rate"`
	TotalProfit    float64 `json:"total_profit"`
	AverageProfit  float64 `json:"average_profit"`
	LargestWin     float64 `json:"largest_win"`
	LargestLoss    float64 `json:"largest_loss"`
	MaxDrawdownPct float64 `json:"max_drawdown"`
	ProfitFactor   float64 `json:"profit_factor"`
	FinalCapital   float64 `json:"final_capital"`
}

func closedTrades(trades []Trade) []Trade {
	return lo.Filter(trades, func(t Trade, _ int) bool { return t.Closed() })
}

// CalculateMetrics derives performance figures from trades in chronological order.
func CalculateMetrics(trades []Trade, initialCapital float64) Metrics {
	m := Metrics{
		TotalTrades:  len(trades),
		FinalCapital: initialCapital,
	}
	closed := closedTrades(trades)
	m.OpenTrades = len(trades) - len(closed)
	if len(closed) == 0 {
		return m
	}

	var winnings, losses float64
	for _, t := range closed {
		switch {
		case t.Profit > 0:
			m.WinningTrades++
			winnings += t.Profit
			m.LargestWin = math.Max(m.LargestWin, t.Profit)
		case t.Profit < 0:
			m.LosingTrades++
			losses -= t.Profit
			m.LargestLoss = math.Min(m.LargestLoss, t.Profit)
		}
		m.TotalProfit += t.Profit
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	m.AverageProfit = m.TotalProfit / float64(len(closed))
	m.FinalCapital = initialCapital + m.TotalProfit
	m.MaxDrawdownPct = lo.Max(DrawdownSeries(EquityCurve(trades, initialCapital)))

	switch {
	case losses > 0:
		m.ProfitFactor = winnings / losses
	case winnings > 0:
		m.ProfitFactor = InfiniteProfitFactor
	}
	return m
}

// EquityCurve is the running capital after each closed trade, starting with initialCapital.
func EquityCurve(trades []Trade, initialCapital float64) []float64 {
	curve := []float64{initialCapital}
	equity := initialCapital
	for _, t := range closedTrades(trades) {
		equity += t.Profit
		curve = append(curve, equity)
	}
	return curve
}

// DrawdownSeries returns the percentage decline from the running peak at each point of curve.
func DrawdownSeries(curve []float64) []float64 {
	out := make([]float64, len(curve))
	peak := math.Inf(-1)
	for i, v := range curve {
		peak = math.Max(peak, v)
		if peak > 0 {
			out[i] = (peak - v) / peak * 100
		}
	}
	return out
}

// RiskReward is the average winning profit over the average losing magnitude.
// It is 0 without both wins and losses.
func RiskReward(trades []Trade) float64 {
	closed := closedTrades(trades)
	wins := lo.FilterMap(closed, func(t Trade, _ int) (float64, bool) { return t.Profit, t.Profit > 0 })
	losses := lo.FilterMap(closed, func(t Trade, _ int) (float64, bool) { return -t.Profit, t.Profit < 0 })
	if len(wins) == 0 || len(losses) == 0 {
		return 0
	}
	return lo.Sum(wins) / float64(len(wins)) / (lo.Sum(losses) / float64(len(losses)))
}
