// Package optimizer searches a parameter grid for the best strategy parameters.
package optimizer

import (
	"math"
	"sort"

	"luno-trade-bot-go/internal/backtest"

	"github.com/samber/lo"
)

// Grid maps a parameter name to the values to try for it.
type Grid map[string][]float64

// Keys returns the parameter names in sorted order.
func (g Grid) Keys() []string {
	keys := lo.Keys(g)
	sort.Strings(keys)
	return keys
}

// Size is the number of combinations the grid expands to.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	return lo.Reduce(lo.Values(g), func(n int, vals []float64, _ int) int { return n * len(vals) }, 1)
}

// Combinations expands the cartesian product of the grid. The order is deterministic:
// keys sorted by name, the last key varying fastest.
func (g Grid) Combinations() []backtest.Params {
	return g.Over(backtest.Params{})
}

// Over expands the grid like Combinations, laying every combination over base.
// Grid values win for grid keys; every other key keeps its base value.
func (g Grid) Over(base backtest.Params) []backtest.Params {
	size := g.Size()
	if size == 0 {
		return nil
	}
	keys := g.Keys()
	idx := make([]int, len(keys))
	out := make([]backtest.Params, 0, size)
	for {
		m := base.Map()
		for i, k := range keys {
			m[k] = g[k][idx[i]]
		}
		out = append(out, backtest.NewParams(m))

		pos := len(keys) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(g[keys[pos]]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return out
		}
	}
}

// Range returns start, start+step, ... up to and including stop.
func Range(start, stop, step float64) []float64 {
	if step <= 0 || stop < start {
		return nil
	}
	n := int(math.Floor((stop-start)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		// Rounded to drop float noise such as 0.30000000000000004.
		out[i] = math.Round((start+float64(i)*step)*1e9) / 1e9
	}
	return out
}
