package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ErrInvalidParameter is returned for strategy parameters or capital that cannot drive a simulation.
var ErrInvalidParameter = errors.New("invalid parameter")

// Parameter names understood by the strategy.
const (
	KeyMAShort          = "ma_short"
	KeyMALong           = "ma_long"
	KeyStopLoss         = "stop_loss"
	KeyTakeProfit       = "take_profit"
	KeyVWAPBand         = "vwap_band"
	KeyVolumeRatio      = "volume_ratio"
	KeyExitVolumeRatio  = "exit_volume_ratio"
	KeyVolumeWindow     = "volume_window"
	KeyATRPeriod        = "atr_period"
	KeyATRMultiplier    = "atr_multiplier"
	KeyPositionFraction = "position_fraction"
)

// Params is an immutable set of named numeric strategy parameters.
type Params struct {
	values map[string]float64
}

// NewParams copies m into a new Params.
func NewParams(m map[string]float64) Params {
	return Params{values: lo.Assign(m)}
}

// Get returns the value for key.
func (p Params) Get(key string) (float64, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Float returns the value for key or def when absent.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether every key is present.
func (p Params) Has(keys ...string) bool {
	return lo.EveryBy(keys, func(k string) bool {
		_, ok := p.values[k]
		return ok
	})
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := lo.Keys(p.values)
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the underlying values.
func (p Params) Map() map[string]float64 {
	return lo.Assign(p.values)
}

// With returns a copy of p with key set to v.
func (p Params) With(key string, v float64) Params {
	m := p.Map()
	m[key] = v
	return Params{values: m}
}

// Len is the number of parameters.
func (p Params) Len() int { return len(p.values) }

// Equal compares by value.
func (p Params) Equal(o Params) bool {
	if len(p.values) != len(o.values) {
		return false
	}
	for k, v := range p.values {
		ov, ok := o.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

func (p Params) String() string {
	parts := lo.Map(p.Keys(), func(k string, _ int) string {
		return fmt.Sprintf("%s=%g", k, p.values[k])
	})
	return strings.Join(parts, " ")
}

func (p Params) MarshalJSON() ([]byte, error) {
	if p.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.values)
}

func (p *Params) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	p.values = m
	return nil
}

// Rules is the typed form of Params the simulator and live trader evaluate.
type Rules struct {
	MAShort          int
	MALong           int
	StopLoss         float64
	TakeProfit       float64
	VWAPBand         float64 // <= 0 disables the VWAP proximity check
	EntryVolumeRatio float64
	ExitVolumeRatio  float64
	VolumeWindow     int
	ATRPeriod        int
	ATRMultiplier    float64
	PositionFraction float64
}

// Rules validates p and fills defaults for the optional parameters.
func (p Params) Rules() (Rules, error) {
	if !p.Has(KeyMAShort, KeyMALong, KeyStopLoss, KeyTakeProfit) {
		missing := lo.Filter([]string{KeyMAShort, KeyMALong, KeyStopLoss, KeyTakeProfit}, func(k string, _ int) bool {
			return !p.Has(k)
		})
		return Rules{}, fmt.Errorf("%w: missing %s", ErrInvalidParameter, strings.Join(missing, ", "))
	}
	r := Rules{
		MAShort:          window(p.Float(KeyMAShort, 0)),
		MALong:           window(p.Float(KeyMALong, 0)),
		StopLoss:         p.Float(KeyStopLoss, 0),
		TakeProfit:       p.Float(KeyTakeProfit, 0),
		VWAPBand:         p.Float(KeyVWAPBand, 0.005),
		EntryVolumeRatio: p.Float(KeyVolumeRatio, 1.2),
		ExitVolumeRatio:  p.Float(KeyExitVolumeRatio, 1.0),
		VolumeWindow:     window(p.Float(KeyVolumeWindow, 20)),
		ATRPeriod:        window(p.Float(KeyATRPeriod, 14)),
		ATRMultiplier:    p.Float(KeyATRMultiplier, 2),
		PositionFraction: p.Float(KeyPositionFraction, 0.95),
	}
	switch {
	case r.MAShort <= 0 || r.MALong <= 0:
		return Rules{}, fmt.Errorf("%w: moving average windows must be positive (%d, %d)", ErrInvalidParameter, r.MAShort, r.MALong)
	case r.VolumeWindow <= 0 || r.ATRPeriod <= 0:
		return Rules{}, fmt.Errorf("%w: volume and ATR windows must be positive", ErrInvalidParameter)
	case r.StopLoss < 0 || r.TakeProfit <= 0:
		return Rules{}, fmt.Errorf("%w: stop loss %g / take profit %g", ErrInvalidParameter, r.StopLoss, r.TakeProfit)
	case r.PositionFraction <= 0 || r.PositionFraction > 1:
		return Rules{}, fmt.Errorf("%w: position fraction %g not in (0,1]", ErrInvalidParameter, r.PositionFraction)
	}
	return r, nil
}

// WarmupBars is the number of bars needed before every required indicator is defined.
func (r Rules) WarmupBars() int {
	return max(r.MAShort, r.MALong, r.VolumeWindow)
}

// window rounds a window length given as a float; NaN and infinities become 0.
func window(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}
