package fees

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a trade is sized with a non-positive amount or price.
var ErrInvalidAmount = errors.New("invalid amount")

// Buy describes the economics of spending cash on the base asset.
type Buy struct {
	Received  decimal.Decimal // base asset credited after the fee
	Fee       decimal.Decimal // fee charged in quote currency
	TotalCost decimal.Decimal // cash leaving the account, fee included
}

// Sell describes the economics of selling the base asset.
type Sell struct {
	Net    decimal.Decimal // quote currency credited after the fee
	Fee    decimal.Decimal
	Profit decimal.Decimal // Net minus the cost basis of the amount sold
}

// Calculator prices buys and sells and keeps running fee and volume totals
// for one backtest or trading session.
type Calculator struct {
	mu          sync.Mutex
	totalFees   decimal.Decimal
	totalVolume decimal.Decimal
}

// NewCalculator returns a Calculator with zero totals.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// BuyDetails spends cash at price. The fee is taken from the cash before conversion.
func (c *Calculator) BuyDetails(cash, price, feeRate decimal.Decimal) (Buy, error) {
	if !cash.IsPositive() || !price.IsPositive() {
		return Buy{}, fmt.Errorf("%w: buy %s at price %s", ErrInvalidAmount, cash, price)
	}
	fee := cash.Mul(feeRate)
	received := cash.Sub(fee).Div(price)

	c.mu.Lock()
	c.totalFees = c.totalFees.Add(fee)
	c.totalVolume = c.totalVolume.Add(cash)
	c.mu.Unlock()

	return Buy{Received: received, Fee: fee, TotalCost: cash}, nil
}

// SellDetails sells amount at price against a per-unit cost basis.
func (c *Calculator) SellDetails(amount, price, costBasis, feeRate decimal.Decimal) (Sell, error) {
	if !amount.IsPositive() || !price.IsPositive() {
		return Sell{}, fmt.Errorf("%w: sell %s at price %s", ErrInvalidAmount, amount, price)
	}
	gross := amount.Mul(price)
	fee := gross.Mul(feeRate)
	net := gross.Sub(fee)
	profit := net.Sub(amount.Mul(costBasis))

	c.mu.Lock()
	c.totalFees = c.totalFees.Add(fee)
	c.totalVolume = c.totalVolume.Add(gross)
	c.mu.Unlock()

	return Sell{Net: net, Fee: fee, Profit: profit}, nil
}

// TotalFees is the sum of all fees charged so far.
func (c *Calculator) TotalFees() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalFees
}

// TotalVolume is the quote-currency value traded so far.
func (c *Calculator) TotalVolume() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalVolume
}
