package backtest

import (
	"fmt"
	"math"
	"time"

	"luno-trade-bot-go/internal/fees"
	"luno-trade-bot-go/internal/indicators"
	"luno-trade-bot-go/internal/market"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EquityPoint is cash plus the marked-to-market position at a bar's close.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Result is the outcome of one simulation run.
type Result struct {
	Trades      []Trade       `json:"trades"`
	Equity      []EquityPoint `json:"equity"`
	Cash        float64       `json:"cash"` // excludes the value of a position still open
	Fees        float64       `json:"fees"`
	Volume      float64       `json:"volume"`
	SkippedBars int           `json:"skipped_bars"`
}

// OpenTrade returns the position left open at the end of the run, if any.
func (r Result) OpenTrade() (Trade, bool) {
	if n := len(r.Trades); n > 0 && !r.Trades[n-1].Closed() {
		return r.Trades[n-1], true
	}
	return Trade{}, false
}

// Simulator replays a candle series bar by bar under a parameterized long-only rule set.
// A Simulator holds no per-run state, so one value can serve concurrent runs.
type Simulator struct {
	initialCapital float64
	feeRate        decimal.Decimal
	logger         *zap.Logger
}

// NewSimulator creates a simulator that starts every run with initialCapital and
// charges feeRate on both legs of a trade.
func NewSimulator(initialCapital float64, feeRate decimal.Decimal, logger *zap.Logger) (*Simulator, error) {
	if initialCapital <= 0 || math.IsNaN(initialCapital) || math.IsInf(initialCapital, 0) {
		return nil, fmt.Errorf("%w: initial capital %g", ErrInvalidParameter, initialCapital)
	}
	if feeRate.IsNegative() {
		return nil, fmt.Errorf("%w: fee rate %s", ErrInvalidParameter, feeRate)
	}
	return &Simulator{
		initialCapital: initialCapital,
		feeRate:        feeRate,
		logger:         logger.Named("simulator"),
	}, nil
}

// InitialCapital is the capital every run starts from.
func (s *Simulator) InitialCapital() float64 { return s.initialCapital }

// indicatorSet holds the per-bar indicator series that do not depend on the MA windows.
type indicatorSet struct {
	closes   []float64
	vwap     []float64
	atr      []float64
	volumeMA []float64
}

func computeIndicators(series market.Series, r Rules) indicatorSet {
	closes := series.Closes()
	volumes := series.Volumes()
	return indicatorSet{
		closes:   closes,
		vwap:     indicators.VWAPSeries(closes, volumes),
		atr:      indicators.ATRSeries(series.Highs(), series.Lows(), closes, r.ATRPeriod),
		volumeMA: indicators.SMASeries(volumes, r.VolumeWindow),
	}
}

// snapshot builds the indicator view of bar i from bars 0..i only.
func (ind indicatorSet) snapshot(series market.Series, r Rules, i int) Snapshot {
	history := ind.closes[:i+1]
	volumeRatio := math.NaN()
	if avg := ind.volumeMA[i]; !math.IsNaN(avg) {
		volumeRatio = 0
		if avg > 0 {
			volumeRatio = series[i].Volume / avg
		}
	}
	return Snapshot{
		Close:       series[i].Close,
		MAShort:     indicators.MovingAverage(history, r.MAShort),
		MALong:      indicators.MovingAverage(history, r.MALong),
		VWAP:        ind.vwap[i],
		ATR:         ind.atr[i],
		VolumeRatio: volumeRatio,
	}
}

// SnapshotAt computes the indicator view of the last bar of series.
func SnapshotAt(series market.Series, r Rules) (Snapshot, error) {
	if len(series) < r.WarmupBars() {
		return Snapshot{}, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientHistory, len(series), r.WarmupBars())
	}
	ind := computeIndicators(series, r)
	return ind.snapshot(series, r, len(series)-1), nil
}

// Run simulates params over series. Every run starts flat with the initial capital;
// nothing carries over between runs.
func (s *Simulator) Run(series market.Series, params Params) (Result, error) {
	rules, err := params.Rules()
	if err != nil {
		return Result{}, err
	}
	if err := checkCloses(series); err != nil {
		return Result{}, err
	}

	calc := fees.NewCalculator()
	ind := computeIndicators(series, rules)
	cash := decimal.NewFromFloat(s.initialCapital)
	fraction := decimal.NewFromFloat(rules.PositionFraction)

	res := Result{
		Trades: []Trade{},
		Equity: make([]EquityPoint, 0, len(series)),
	}
	var (
		open      *Trade
		amount    decimal.Decimal
		costBasis decimal.Decimal
	)

	for i, bar := range series {
		snap := ind.snapshot(series, rules, i)
		price := decimal.NewFromFloat(bar.Close)

		if !snap.Ready() {
			res.SkippedBars++
		} else if open == nil {
			if EntrySignal(rules, snap) {
				alloc := cash.Mul(fraction)
				buy, err := calc.BuyDetails(alloc, price, s.feeRate)
				if err != nil {
					s.logger.Warn("Buy aborted", zap.Int("bar", i), zap.Error(err))
				} else {
					cash = cash.Sub(buy.TotalCost)
					amount = buy.Received
					costBasis = buy.TotalCost.Div(buy.Received)
					res.Trades = append(res.Trades, Trade{
						EntryTime:  bar.Timestamp,
						EntryPrice: bar.Close,
						EntryBar:   i,
						Amount:     buy.Received.InexactFloat64(),
						Cost:       buy.TotalCost.InexactFloat64(),
						Fees:       buy.Fee.InexactFloat64(),
					})
					open = &res.Trades[len(res.Trades)-1]
					s.logger.Debug("BUY",
						zap.Int("bar", i),
						zap.Float64("price", bar.Close),
						zap.Float64("volume_ratio", snap.VolumeRatio))
				}
			}
		} else if reason := ExitSignal(rules, snap, open.EntryPrice); reason != ExitNone {
			sell, err := calc.SellDetails(amount, price, costBasis, s.feeRate)
			if err != nil {
				s.logger.Warn("Sell aborted", zap.Int("bar", i), zap.Error(err))
			} else {
				cash = cash.Add(sell.Net)
				open.close(bar.Timestamp, i, bar.Close, sell.Profit.InexactFloat64(), sell.Fee.InexactFloat64(), reason)
				s.logger.Debug("SELL",
					zap.Int("bar", i),
					zap.Float64("price", bar.Close),
					zap.String("reason", string(reason)),
					zap.Float64("profit", open.Profit))
				open = nil
				amount = decimal.Zero
			}
		}

		equity := cash
		if open != nil {
			equity = equity.Add(amount.Mul(price))
		}
		res.Equity = append(res.Equity, EquityPoint{Time: bar.Timestamp, Equity: equity.InexactFloat64()})
	}

	res.Cash = cash.InexactFloat64()
	res.Fees = calc.TotalFees().InexactFloat64()
	res.Volume = calc.TotalVolume().InexactFloat64()
	return res, nil
}

// checkCloses rejects a series whose closes cannot be priced.
func checkCloses(series market.Series) error {
	for i, bar := range series {
		if math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) || bar.Close <= 0 {
			return fmt.Errorf("%w: bar %d at %s has close %g", ErrInvalidParameter, i, bar.Timestamp.Format(time.RFC3339), bar.Close)
		}
	}
	return nil
}
