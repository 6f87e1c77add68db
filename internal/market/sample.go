package market

import (
	"math"
	"math/rand"
	"time"
)

// SampleConfig controls the synthetic series generator.
type SampleConfig struct {
	Hours     int
	Interval  time.Duration
	BasePrice float64
	End       time.Time
	// Seed makes the output reproducible; zero picks a time-based seed.
	Seed int64
}

const (
	defaultSampleBase = 100000.0
	baseVolatility    = 0.001
	trendDrift        = 0.0005
	spikeChance       = 0.02
)

// SampleSeries generates a plausible OHLCV series with trending regimes and
// volume that grows with the size of the price move. Every candle satisfies Valid.
func SampleSeries(cfg SampleConfig) Series {
	if cfg.Hours <= 0 {
		cfg.Hours = 24
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = defaultSampleBase
	}
	if cfg.End.IsZero() {
		cfg.End = time.Now()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	n := int(time.Duration(cfg.Hours)*time.Hour/cfg.Interval) + 1
	start := bucketStart(cfg.End, cfg.Interval).Add(-time.Duration(n-1) * cfg.Interval)

	prices := make([]float64, n)
	price := cfg.BasePrice
	trend, trendLeft := 0, 0
	for i := range prices {
		if trendLeft <= 0 {
			trend = pickTrend(rng)
			trendLeft = 30 + rng.Intn(90)
		}
		move := rng.NormFloat64()*baseVolatility + float64(trend)*trendDrift
		if rng.Float64() < spikeChance {
			if rng.Intn(2) == 0 {
				move *= 2
			} else {
				move *= -2
			}
		}
		price *= 1 + move
		prices[i] = price
		trendLeft--
	}

	out := make(Series, n)
	for i, p := range prices {
		prev := p
		if i > 0 {
			prev = prices[i-1]
		}
		changePct := math.Abs(p-prev) / p * 100
		volume := math.Exp(rng.NormFloat64()) * 0.1 * (1 + changePct)

		c := Candle{
			Timestamp: start.Add(time.Duration(i) * cfg.Interval),
			Open:      p,
			High:      p * (1 + rng.Float64()*0.002),
			Low:       p * (1 - rng.Float64()*0.002),
			Close:     p * (1 + rng.NormFloat64()*0.001),
			Volume:    volume,
		}
		c.High = math.Max(c.High, math.Max(c.Open, c.Close))
		c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
		out[i] = c
	}
	return out
}

// pickTrend returns -1, 0 or 1 with probabilities .3, .4, .3.
func pickTrend(rng *rand.Rand) int {
	r := rng.Float64()
	switch {
	case r < 0.3:
		return -1
	case r < 0.7:
		return 0
	default:
		return 1
	}
}
