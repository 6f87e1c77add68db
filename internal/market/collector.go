package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Collector turns recent exchange trades into candles.
type Collector struct {
	exchange Exchange
	pair     string
	logger   *zap.Logger
	now      func() time.Time
}

// NewCollector creates a Collector for one trading pair.
func NewCollector(exchange Exchange, pair string, logger *zap.Logger) *Collector {
	return &Collector{
		exchange: exchange,
		pair:     pair,
		logger:   logger.Named("collector").With(zap.String("pair", pair)),
		now:      time.Now,
	}
}

// Collect fetches the trades of the last lookback window and aggregates them.
// Any failure, including an empty trade list, is reported as ErrDataUnavailable.
func (c *Collector) Collect(ctx context.Context, lookback, interval time.Duration) (Series, error) {
	since := c.now().Add(-lookback)
	c.logger.Info("Collecting trade data", zap.Time("since", since))

	ticks, err := c.exchange.ListRecentTrades(ctx, c.pair, since)
	if err != nil {
		return nil, fmt.Errorf("%w: list trades: %v", ErrDataUnavailable, err)
	}
	c.logger.Info("Fetched trades", zap.Int("count", len(ticks)))

	series, err := Aggregate(ticks, interval)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyInput):
			return nil, fmt.Errorf("%w: no trades since %s", ErrDataUnavailable, since.Format(time.RFC3339))
		case errors.Is(err, ErrInvalidTick):
			return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
		}
		return nil, err
	}
	c.logger.Info("Aggregated candles", zap.Int("candles", len(series)), zap.Duration("interval", interval))
	return series, nil
}

// CollectOrSample falls back to synthetic data when collection fails.
// The returned flag is true when the series is synthetic.
func (c *Collector) CollectOrSample(ctx context.Context, lookback, interval time.Duration, sample SampleConfig) (Series, bool, error) {
	series, err := c.Collect(ctx, lookback, interval)
	if err == nil {
		return series, false, nil
	}
	if !errors.Is(err, ErrDataUnavailable) {
		return nil, false, err
	}
	c.logger.Warn("Using sample data instead", zap.Error(err))

	if sample.BasePrice <= 0 {
		price, perr := c.exchange.GetCurrentPrice(ctx, c.pair)
		if perr != nil {
			c.logger.Warn("Could not get current price for sample data, using default base", zap.Error(perr))
		} else {
			sample.BasePrice = price
		}
	}
	if sample.Interval <= 0 {
		sample.Interval = interval
	}
	if sample.End.IsZero() {
		sample.End = c.now()
	}
	series = SampleSeries(sample)
	c.logger.Info("Generated sample candles", zap.Int("candles", len(series)))
	return series, true, nil
}
