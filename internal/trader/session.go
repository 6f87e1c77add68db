package trader

import (
	"time"

	"luno-trade-bot-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionState is everything a paper-trading session carries between steps.
// Operations take a SessionState and return the next one; nothing is kept in globals.
type SessionState struct {
	ID             string
	Pair           string
	Strategy       string
	Capital        decimal.Decimal
	Position       decimal.Decimal // base asset held
	EntryPrice     decimal.Decimal
	CostBasis      decimal.Decimal // per unit of base asset, fee included
	EntryTime      time.Time
	TotalProfit    decimal.Decimal
	TotalLoss      decimal.Decimal // magnitude of realized losses
	TotalBuyAmount decimal.Decimal
	TotalFees      decimal.Decimal
	TotalVolume    decimal.Decimal
	TakerFee       decimal.Decimal
	Trades         int
	WinningTrades  int
}

// NewSessionState starts a flat session with capital.
func NewSessionState(pair, strategy string, capital decimal.Decimal) SessionState {
	return SessionState{
		ID:       uuid.NewString(),
		Pair:     pair,
		Strategy: strategy,
		Capital:  capital,
	}
}

// Long reports whether the session holds a position.
func (s SessionState) Long() bool {
	return s.Position.IsPositive()
}

// NetProfit is realized profit minus realized losses.
func (s SessionState) NetProfit() decimal.Decimal {
	return s.TotalProfit.Sub(s.TotalLoss)
}

// Equity is the capital plus the position valued at price.
func (s SessionState) Equity(price decimal.Decimal) decimal.Decimal {
	return s.Capital.Add(s.Position.Mul(price))
}

func (s SessionState) toModel() models.Session {
	m := models.Session{
		ID:             s.ID,
		Pair:           s.Pair,
		Strategy:       s.Strategy,
		Capital:        s.Capital,
		Position:       s.Position,
		EntryPrice:     s.EntryPrice,
		CostBasis:      s.CostBasis,
		TotalProfit:    s.TotalProfit,
		TotalLoss:      s.TotalLoss,
		TotalBuyAmount: s.TotalBuyAmount,
		TotalFees:      s.TotalFees,
		TotalVolume:    s.TotalVolume,
		TakerFee:       s.TakerFee,
		Trades:         s.Trades,
		WinningTrades:  s.WinningTrades,
	}
	if !s.EntryTime.IsZero() {
		t := s.EntryTime
		m.EntryTime = &t
	}
	return m
}

func sessionFromModel(m models.Session) SessionState {
	s := SessionState{
		ID:             m.ID,
		Pair:           m.Pair,
		Strategy:       m.Strategy,
		Capital:        m.Capital,
		Position:       m.Position,
		EntryPrice:     m.EntryPrice,
		CostBasis:      m.CostBasis,
		TotalProfit:    m.TotalProfit,
		TotalLoss:      m.TotalLoss,
		TotalBuyAmount: m.TotalBuyAmount,
		TotalFees:      m.TotalFees,
		TotalVolume:    m.TotalVolume,
		TakerFee:       m.TakerFee,
		Trades:         m.Trades,
		WinningTrades:  m.WinningTrades,
	}
	if m.EntryTime != nil {
		s.EntryTime = *m.EntryTime
	}
	return s
}
