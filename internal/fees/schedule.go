package fees

import (
	"context"
	"errors"
	"fmt"

	"luno-trade-bot-go/internal/market"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrFeeLookup means the exchange fee schedule could not be read.
var ErrFeeLookup = errors.New("fee lookup failed")

// Rates are the maker and taker fractions charged per trade.
type Rates struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// Schedule looks up fee rates from the exchange.
type Schedule struct {
	exchange market.Exchange
	logger   *zap.Logger
}

// NewSchedule creates a Schedule backed by the exchange.
func NewSchedule(exchange market.Exchange, logger *zap.Logger) *Schedule {
	return &Schedule{exchange: exchange, logger: logger.Named("fees")}
}

// Lookup returns the current rates for pair. On failure it returns zero rates
// together with an ErrFeeLookup error: the caller may continue fee-free but must
// not assume a rate.
func (s *Schedule) Lookup(ctx context.Context, pair string) (Rates, error) {
	info, err := s.exchange.GetFeeInfo(ctx, pair)
	if err == nil && (info.MakerFee.IsNegative() || info.TakerFee.IsNegative()) {
		err = fmt.Errorf("negative fee in schedule: maker %s taker %s", info.MakerFee, info.TakerFee)
	}
	if err != nil {
		s.logger.Warn("Fee schedule unavailable, falling back to zero fees", zap.String("pair", pair), zap.Error(err))
		return Rates{Maker: decimal.Zero, Taker: decimal.Zero}, fmt.Errorf("%w for %s: %v", ErrFeeLookup, pair, err)
	}
	s.logger.Debug("Fee schedule loaded",
		zap.String("pair", pair),
		zap.String("maker", info.MakerFee.String()),
		zap.String("taker", info.TakerFee.String()))
	return Rates{Maker: info.MakerFee, Taker: info.TakerFee}, nil
}
