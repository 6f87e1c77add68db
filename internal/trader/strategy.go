package trader

import (
	"luno-trade-bot-go/internal/market"
)

// Action is what a strategy wants to do on the latest bar.
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Decision is a strategy's verdict for one step.
type Decision struct {
	Action   Action
	Reason   string
	Fraction float64 // share of capital committed by a Buy
}

// Strategy defines the interface for a paper-trading strategy.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Decide looks at the candles collected so far and the session it would act on.
	// It returns backtest.ErrInsufficientHistory while there are too few candles.
	Decide(series market.Series, state SessionState) (Decision, error)
}
