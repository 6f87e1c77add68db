package trader

import (
	"luno-trade-bot-go/internal/backtest"
	"luno-trade-bot-go/internal/market"
)

// SignalStrategy trades the same entry and exit rules the backtester simulates,
// usually with the parameters the optimizer found.
type SignalStrategy struct {
	params backtest.Params
	rules  backtest.Rules
}

var _ Strategy = (*SignalStrategy)(nil)

// NewSignalStrategy validates params and builds the strategy.
func NewSignalStrategy(params backtest.Params) (*SignalStrategy, error) {
	rules, err := params.Rules()
	if err != nil {
		return nil, err
	}
	return &SignalStrategy{params: params, rules: rules}, nil
}

func (s *SignalStrategy) Name() string {
	return "optimized"
}

// Params are the strategy parameters in use.
func (s *SignalStrategy) Params() backtest.Params {
	return s.params
}

func (s *SignalStrategy) Decide(series market.Series, state SessionState) (Decision, error) {
	snap, err := backtest.SnapshotAt(series, s.rules)
	if err != nil {
		return Decision{}, err
	}
	if !snap.Ready() {
		return Decision{}, backtest.ErrInsufficientHistory
	}

	if state.Long() {
		reason := backtest.ExitSignal(s.rules, snap, state.EntryPrice.InexactFloat64())
		if reason != backtest.ExitNone {
			return Decision{Action: Sell, Reason: string(reason)}, nil
		}
		return Decision{Action: Hold}, nil
	}
	if backtest.EntrySignal(s.rules, snap) {
		return Decision{Action: Buy, Reason: "ma_vwap_volume", Fraction: s.rules.PositionFraction}, nil
	}
	return Decision{Action: Hold}, nil
}
