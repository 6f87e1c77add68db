package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kinds of backtest run.
const (
	RunKindInitial = "initial"
	RunKindOptimal = "optimal"
)

// BacktestRun records the outcome of one backtest for the run history.
type BacktestRun struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	Pair           string    `gorm:"index" json:"pair"`
	Kind           string    `json:"kind"`
	DataSource     string    `json:"data_source"` // exchange, csv or sample
	Bars           int       `json:"bars"`
	Parameters     string    `json:"parameters"` // JSON object
	InitialCapital float64   `json:"initial_capital"`
	TotalTrades    int       `json:"total_trades"`
	WinningTrades  int       `json:"winning_trades"`
	LosingTrades   int       `json:"losing_trades"`
	WinRate        float64   `json:"win_rate"`
	TotalProfit    float64   `json:"total_profit"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	ProfitFactor   float64   `json:"profit_factor"`
	FinalCapital   float64   `json:"final_capital"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// BeforeCreate assigns a random ID when none is set.
func (r *BacktestRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
