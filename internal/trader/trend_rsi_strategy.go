package trader

import (
	"luno-trade-bot-go/internal/backtest"
	"luno-trade-bot-go/internal/indicators"
	"luno-trade-bot-go/internal/market"
)

// TrendRSIStrategy buys while the short MA is above the long MA and RSI sits between
// the oversold and overbought levels. A position is only exited by its stop loss or
// take profit once the trend condition no longer holds.
type TrendRSIStrategy struct {
	MAShort     int
	MALong      int
	RSIPeriod   int
	Oversold    float64
	Overbought  float64
	StopLoss    float64
	TakeProfit  float64
	MaxPosition float64 // share of capital committed per buy
}

var _ Strategy = (*TrendRSIStrategy)(nil)

// NewTrendRSIStrategy returns the strategy with MA 20/50, RSI(14) in (30, 70),
// a 2% stop, a 3% target and half the capital per position.
func NewTrendRSIStrategy() *TrendRSIStrategy {
	return &TrendRSIStrategy{
		MAShort:     20,
		MALong:      50,
		RSIPeriod:   indicators.DefaultRSIPeriod,
		Oversold:    30,
		Overbought:  70,
		StopLoss:    0.02,
		TakeProfit:  0.03,
		MaxPosition: 0.5,
	}
}

func (s *TrendRSIStrategy) Name() string {
	return "trend_rsi"
}

func (s *TrendRSIStrategy) Decide(series market.Series, state SessionState) (Decision, error) {
	if len(series) < max(s.MAShort, s.MALong, s.RSIPeriod+1) {
		return Decision{}, backtest.ErrInsufficientHistory
	}
	closes := series.Closes()
	maShort := indicators.MovingAverage(closes, s.MAShort)
	maLong := indicators.MovingAverage(closes, s.MALong)
	rsi := indicators.RSI(closes, s.RSIPeriod)

	if maShort > maLong && rsi > s.Oversold && rsi < s.Overbought {
		if !state.Long() {
			return Decision{Action: Buy, Reason: "trend_rsi", Fraction: s.MaxPosition}, nil
		}
		return Decision{Action: Hold}, nil
	}
	if !state.Long() {
		return Decision{Action: Hold}, nil
	}

	price := closes[len(closes)-1]
	entry := state.EntryPrice.InexactFloat64()
	switch {
	case price <= entry*(1-s.StopLoss):
		return Decision{Action: Sell, Reason: string(backtest.ExitStopLoss)}, nil
	case price >= entry*(1+s.TakeProfit):
		return Decision{Action: Sell, Reason: string(backtest.ExitTakeProfit)}, nil
	}
	return Decision{Action: Hold}, nil
}
