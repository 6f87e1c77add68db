package market

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Aggregate buckets ticks into half-open [start, start+interval) windows aligned to
// wall-clock multiples of interval and returns one candle per non-empty bucket.
// Ticks are ordered by timestamp first; ticks sharing a timestamp keep their input order.
// A tick with a negative or non-finite price or volume fails the whole batch.
func Aggregate(ticks []Tick, interval time.Duration) (Series, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	if len(ticks) == 0 {
		return nil, ErrEmptyInput
	}
	for i, t := range ticks {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: tick %d at %s: price %g volume %g",
				ErrInvalidTick, i, t.Timestamp.Format(time.RFC3339), t.Price, t.Volume)
		}
	}

	ordered := make([]Tick, len(ticks))
	copy(ordered, ticks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	out := make(Series, 0, len(ordered))
	var cur Candle
	open := false
	for _, t := range ordered {
		start := bucketStart(t.Timestamp, interval)
		if !open || !start.Equal(cur.Timestamp) {
			if open {
				out = append(out, cur)
			}
			cur = Candle{
				Timestamp: start,
				Open:      t.Price,
				High:      t.Price,
				Low:       t.Price,
				Close:     t.Price,
			}
			open = true
		}
		cur.High = math.Max(cur.High, t.Price)
		cur.Low = math.Min(cur.Low, t.Price)
		cur.Close = t.Price
		cur.Volume += t.Volume
	}
	out = append(out, cur)

	return out, nil
}

// bucketStart aligns t down to a multiple of interval counted from the Unix epoch.
func bucketStart(t time.Time, interval time.Duration) time.Time {
	ns := t.UnixNano()
	step := int64(interval)
	rem := ns % step
	if rem < 0 {
		rem += step
	}
	return time.Unix(0, ns-rem).UTC()
}
