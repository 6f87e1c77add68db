// Package markettest provides a testify mock of market.Exchange.
package markettest

import (
	"context"
	"time"

	"luno-trade-bot-go/internal/market"

	"github.com/stretchr/testify/mock"
)

// Exchange is a mock implementation of market.Exchange.
type Exchange struct {
	mock.Mock
}

var _ market.Exchange = (*Exchange)(nil)

func (m *Exchange) ListRecentTrades(ctx context.Context, pair string, since time.Time) ([]market.Tick, error) {
	args := m.Called(ctx, pair, since)
	ticks, _ := args.Get(0).([]market.Tick)
	return ticks, args.Error(1)
}

func (m *Exchange) GetCurrentPrice(ctx context.Context, pair string) (float64, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(float64), args.Error(1)
}

func (m *Exchange) GetFeeInfo(ctx context.Context, pair string) (market.FeeInfo, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(market.FeeInfo), args.Error(1)
}
