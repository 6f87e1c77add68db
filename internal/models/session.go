package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is the persisted state of one paper-trading session.
// Money columns are stored as text so decimals survive the round trip exactly.
type Session struct {
	ID             string          `gorm:"primaryKey" json:"id"`
	Pair           string          `json:"pair"`
	Strategy       string          `json:"strategy"`
	Capital        decimal.Decimal `gorm:"type:text" json:"capital"`
	Position       decimal.Decimal `gorm:"type:text" json:"position"`
	EntryPrice     decimal.Decimal `gorm:"type:text" json:"entry_price"`
	CostBasis      decimal.Decimal `gorm:"type:text" json:"cost_basis"`
	EntryTime      *time.Time      `json:"entry_time,omitempty"`
	TotalProfit    decimal.Decimal `gorm:"type:text" json:"total_profit"`
	TotalLoss      decimal.Decimal `gorm:"type:text" json:"total_loss"`
	TotalBuyAmount decimal.Decimal `gorm:"type:text" json:"total_buy_amount"`
	TotalFees      decimal.Decimal `gorm:"type:text" json:"total_fees"`
	TotalVolume    decimal.Decimal `gorm:"type:text" json:"total_volume"`
	TakerFee       decimal.Decimal `gorm:"type:text" json:"taker_fee"`
	Trades         int             `json:"trades"`
	WinningTrades  int             `json:"winning_trades"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `gorm:"index" json:"updated_at"`
}
