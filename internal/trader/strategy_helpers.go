package trader

import (
	"fmt"
	"time"

	"luno-trade-bot-go/internal/fees"
	"luno-trade-bot-go/internal/models"

	"github.com/shopspring/decimal"
)

// NewStrategy returns the strategy registered under name. The optimized strategy
// needs signal, the parameters to trade with.
func NewStrategy(name string, signal func() (*SignalStrategy, error)) (Strategy, error) {
	switch name {
	case "", "optimized":
		return signal()
	case "trend_rsi":
		return NewTrendRSIStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// bookBuy spends fraction of the session's capital on the base asset at price.
func bookBuy(calc *fees.Calculator, state SessionState, price decimal.Decimal, fraction float64, at time.Time) (SessionState, models.Trade, error) {
	if state.Long() {
		return state, models.Trade{}, fmt.Errorf("session %s already holds %s", state.ID, state.Position)
	}
	cash := state.Capital.Mul(decimal.NewFromFloat(fraction))
	buy, err := calc.BuyDetails(cash, price, state.TakerFee)
	if err != nil {
		return state, models.Trade{}, err
	}

	state.Capital = state.Capital.Sub(buy.TotalCost)
	state.Position = buy.Received
	state.EntryPrice = price
	state.CostBasis = buy.TotalCost.Div(buy.Received)
	state.EntryTime = at
	state.TotalBuyAmount = state.TotalBuyAmount.Add(buy.TotalCost)
	state.TotalFees = state.TotalFees.Add(buy.Fee)
	state.TotalVolume = state.TotalVolume.Add(buy.TotalCost)

	trade := models.Trade{
		SessionID:   state.ID,
		Pair:        state.Pair,
		Type:        models.TradeTypeBuy,
		Price:       price.InexactFloat64(),
		Amount:      buy.Received.InexactFloat64(),
		QuoteAmount: buy.TotalCost.InexactFloat64(),
		Fee:         buy.Fee.InexactFloat64(),
		Timestamp:   at.UnixMilli(),
	}
	return state, trade, nil
}

// bookSell closes the session's position at price.
func bookSell(calc *fees.Calculator, state SessionState, price decimal.Decimal, reason string, at time.Time) (SessionState, models.Trade, error) {
	if !state.Long() {
		return state, models.Trade{}, fmt.Errorf("session %s holds no position", state.ID)
	}
	sell, err := calc.SellDetails(state.Position, price, state.CostBasis, state.TakerFee)
	if err != nil {
		return state, models.Trade{}, err
	}

	trade := models.Trade{
		SessionID:   state.ID,
		Pair:        state.Pair,
		Type:        models.TradeTypeSell,
		Price:       price.InexactFloat64(),
		Amount:      state.Position.InexactFloat64(),
		QuoteAmount: sell.Net.InexactFloat64(),
		Fee:         sell.Fee.InexactFloat64(),
		Reason:      reason,
		Timestamp:   at.UnixMilli(),
		Profit:      sell.Profit.InexactFloat64(),
	}

	state.Capital = state.Capital.Add(sell.Net)
	state.TotalFees = state.TotalFees.Add(sell.Fee)
	state.TotalVolume = state.TotalVolume.Add(sell.Net.Add(sell.Fee))
	state.Trades++
	if sell.Profit.IsPositive() {
		state.WinningTrades++
		state.TotalProfit = state.TotalProfit.Add(sell.Profit)
	} else {
		state.TotalLoss = state.TotalLoss.Add(sell.Profit.Neg())
	}
	state.Position = decimal.Zero
	state.EntryPrice = decimal.Zero
	state.CostBasis = decimal.Zero
	state.EntryTime = time.Time{}
	return state, trade, nil
}
