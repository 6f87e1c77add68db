package optimizer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"luno-trade-bot-go/internal/backtest"
	"luno-trade-bot-go/internal/market"
	"luno-trade-bot-go/internal/store"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTolerance lets a candidate's drawdown be at most 20% worse than the incumbent's.
const DefaultTolerance = 1.2

// ErrNoCandidates is returned when neither the baseline nor any grid combination produced a result.
var ErrNoCandidates = errors.New("no successful candidate")

// Records is the persistence the optimizer needs for the optimal strategy record.
type Records interface {
	Load() (store.Record, error)
	Save(store.Record) error
}

var _ Records = (*store.RecordStore)(nil)

// Candidate is one evaluated parameter set.
type Candidate struct {
	Params  backtest.Params
	Metrics backtest.Metrics
	Result  backtest.Result
}

// Outcome summarizes an optimization run.
type Outcome struct {
	Best      Candidate
	Baseline  *Candidate // previously persisted optimum re-run on the current data
	Improved  bool       // Best came from the grid rather than the baseline
	Persisted bool
	Evaluated int
	Failed    int
}

// Config tunes the search.
type Config struct {
	Workers   int           // concurrent simulations, GOMAXPROCS when <= 0
	Tolerance float64       // drawdown tolerance factor, DefaultTolerance when <= 0
	Timeout   time.Duration // zero means no limit

	// Base holds the values every combination starts from. Grid keys override it.
	Base backtest.Params
}

// Accept reports whether candidate should replace incumbent: its profit must be strictly
// higher and its drawdown no worse than tolerance times the incumbent's.
func Accept(incumbent, candidate backtest.Metrics, tolerance float64) bool {
	return candidate.TotalProfit > incumbent.TotalProfit &&
		candidate.MaxDrawdownPct <= incumbent.MaxDrawdownPct*tolerance
}

// Optimizer runs the simulator over a parameter grid and keeps the optimal record up to date.
type Optimizer struct {
	sim     *backtest.Simulator
	records Records
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// NewOptimizer creates an Optimizer. records may be nil to search without a baseline or persistence.
func NewOptimizer(sim *backtest.Simulator, records Records, cfg Config, logger *zap.Logger) *Optimizer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Optimizer{
		sim:     sim,
		records: records,
		cfg:     cfg,
		logger:  logger.Named("optimizer"),
		now:     time.Now,
	}
}

// Evaluate runs one parameter set and computes its metrics.
func (o *Optimizer) Evaluate(series market.Series, params backtest.Params) (Candidate, error) {
	res, err := o.sim.Run(series, params)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Params:  params,
		Metrics: backtest.CalculateMetrics(res.Trades, o.sim.InitialCapital()),
		Result:  res,
	}, nil
}

// Optimize evaluates every grid combination, laid over Config.Base, against series and
// returns the best candidate.
// The persisted optimum, when it covers every grid key, is laid over Config.Base, re-run first
// and seeds the search.
// A new best is persisted when it came from the grid. When ctx ends, no further combinations
// start and the context error is returned without persisting.
func (o *Optimizer) Optimize(ctx context.Context, series market.Series, grid Grid) (Outcome, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	var out Outcome
	out.Baseline = o.baseline(series, grid)

	combos := grid.Over(o.cfg.Base)
	o.logger.Info("Starting grid search",
		zap.Int("combinations", len(combos)),
		zap.Int("workers", o.cfg.Workers),
		zap.Int("bars", len(series)))

	results := make([]*Candidate, len(combos))
	var failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Workers)
	for i, params := range combos {
		i, params := i, params
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			cand, err := o.Evaluate(series, params)
			if err != nil {
				failed.Add(1)
				o.logger.Warn("Combination failed", zap.Stringer("params", params), zap.Error(err))
				return nil
			}
			results[i] = &cand
			return nil
		})
	}
	_ = g.Wait()

	candidates := lo.Compact(results)
	out.Evaluated = len(candidates)
	out.Failed = int(failed.Load())

	best, improved := o.reduce(out.Baseline, candidates)
	if best == nil {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("optimization stopped: %w", err)
		}
		return out, ErrNoCandidates
	}
	out.Best = *best
	out.Improved = improved

	if err := ctx.Err(); err != nil {
		o.logger.Warn("Grid search interrupted", zap.Int("evaluated", out.Evaluated), zap.Int("combinations", len(combos)))
		return out, fmt.Errorf("optimization stopped: %w", err)
	}

	o.logger.Info("Grid search finished",
		zap.Int("evaluated", out.Evaluated),
		zap.Int("failed", out.Failed),
		zap.Bool("improved", improved),
		zap.Stringer("best", best.Params),
		zap.Float64("total_profit", best.Metrics.TotalProfit),
		zap.Float64("max_drawdown", best.Metrics.MaxDrawdownPct))

	if improved {
		out.Persisted = o.persist(*best)
	}
	return out, nil
}

// reduce walks candidates in grid order. The first candidate seeds the search when
// there is no baseline; later ones must pass Accept.
func (o *Optimizer) reduce(baseline *Candidate, candidates []*Candidate) (*Candidate, bool) {
	best := baseline
	improved := false
	for _, c := range candidates {
		if best == nil || Accept(best.Metrics, c.Metrics, o.cfg.Tolerance) {
			best = c
			improved = true
		}
	}
	return best, improved
}

func (o *Optimizer) baseline(series market.Series, grid Grid) *Candidate {
	if o.records == nil {
		return nil
	}
	rec, err := o.records.Load()
	if err != nil {
		if errors.Is(err, store.ErrNoRecord) {
			o.logger.Info("No previous optimal strategy")
		} else {
			o.logger.Warn("Could not load previous optimal strategy", zap.Error(err))
		}
		return nil
	}
	if !rec.Parameters.Has(grid.Keys()...) {
		o.logger.Info("Previous optimal strategy does not cover the grid, ignoring it",
			zap.Stringer("params", rec.Parameters))
		return nil
	}

	cand, err := o.Evaluate(series, overlay(o.cfg.Base, rec.Parameters))
	if err != nil {
		o.logger.Warn("Could not re-run previous optimal strategy", zap.Error(err))
		return nil
	}
	o.logger.Info("Baseline from previous optimal strategy",
		zap.Stringer("params", cand.Params),
		zap.Float64("total_profit", cand.Metrics.TotalProfit),
		zap.Float64("max_drawdown", cand.Metrics.MaxDrawdownPct))
	return &cand
}

// overlay returns base with every value of top written over it.
func overlay(base, top backtest.Params) backtest.Params {
	out := base
	for _, k := range top.Keys() {
		out = out.With(k, top.Float(k, 0))
	}
	return out
}

func (o *Optimizer) persist(best Candidate) bool {
	if o.records == nil {
		return false
	}
	err := o.records.Save(store.Record{
		Parameters:     best.Params,
		Metrics:        best.Metrics,
		CapturedAt:     o.now().UTC(),
		InitialCapital: o.sim.InitialCapital(),
	})
	if err != nil {
		o.logger.Error("Could not persist optimal strategy", zap.Error(err))
		return false
	}
	return true
}
