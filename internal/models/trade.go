package models

import "gorm.io/gorm"

// Trade is a paper trade booked by the trading engine.
type Trade struct {
	gorm.Model
	SessionID   string  `gorm:"index" json:"session_id"`
	Pair        string  `json:"pair"`
	Type        string  `json:"type"` // "BUY" or "SELL"
	Price       float64 `json:"price"`
	Amount      float64 `json:"amount"`       // base asset
	QuoteAmount float64 `json:"quote_amount"` // quote currency, fee included on buys and excluded on sells
	Fee         float64 `json:"fee"`
	Reason      string  `json:"reason,omitempty"`
	Timestamp   int64   `gorm:"index" json:"timestamp"` // unix milliseconds
	Profit      float64 `json:"profit,omitempty"`
}

const (
	TradeTypeBuy  = "BUY"
	TradeTypeSell = "SELL"
)
