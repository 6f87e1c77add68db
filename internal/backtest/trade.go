package backtest

import "time"

// Trade is one long position. It is open until ExitPrice is set.
type Trade struct {
	EntryTime  time.Time  `json:"entry_time"`
	EntryPrice float64    `json:"entry_price"`
	EntryBar   int        `json:"entry_bar"`
	Amount     float64    `json:"amount"`
	Cost       float64    `json:"cost"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`
	ExitBar    int        `json:"exit_bar,omitempty"`
	ExitReason ExitReason `json:"exit_reason,omitempty"`
	Profit     float64    `json:"profit"`
	Fees       float64    `json:"fees"`
}

// Closed reports whether the position has been exited.
func (t Trade) Closed() bool {
	return t.ExitPrice != nil
}

func (t *Trade) close(at time.Time, bar int, price, profit, fee float64, reason ExitReason) {
	t.ExitTime = &at
	t.ExitPrice = &price
	t.ExitBar = bar
	t.ExitReason = reason
	t.Profit = profit
	t.Fees += fee
}
