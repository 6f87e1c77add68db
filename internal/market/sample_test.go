package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleSeries(t *testing.T) {
	end := time.Date(2024, 3, 1, 12, 0, 30, 0, time.UTC)
	s := SampleSeries(SampleConfig{Hours: 2, Interval: time.Minute, BasePrice: 250000, End: end, Seed: 42})

	require.Len(t, s, 121)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), s[len(s)-1].Timestamp)
	for i, c := range s {
		assert.True(t, c.Valid(), "candle %d: %+v", i, c)
		assert.Greater(t, c.Volume, 0.0)
		if i > 0 {
			assert.Equal(t, time.Minute, c.Timestamp.Sub(s[i-1].Timestamp))
		}
	}
	// a random walk with 0.1% steps should stay within a sane band of its base over two hours
	assert.InDelta(t, 250000, s[0].Open, 250000*0.05)
}

func TestSampleSeries_Deterministic(t *testing.T) {
	cfg := SampleConfig{Hours: 1, End: t0, Seed: 7}
	assert.Equal(t, SampleSeries(cfg), SampleSeries(cfg))
}

func TestSampleSeries_Defaults(t *testing.T) {
	s := SampleSeries(SampleConfig{Seed: 1, End: t0})
	assert.Len(t, s, 24*60+1)
}
