package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"luno-trade-bot-go/internal/backtest"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const reportTimeLayout = "2006-01-02 15:04:05"

var rule = strings.Repeat("=", 50)

// Report is an append-only plain-text log of backtest results.
type Report struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewReport returns a report appending to path.
func NewReport(path string) *Report {
	return &Report{path: path, now: time.Now}
}

// Append writes one result block. optimal marks the block as the optimizer's pick.
func (r *Report) Append(params backtest.Params, metrics backtest.Metrics, optimal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatResult(params, metrics, optimal, r.now())); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// FormatResult renders one report block.
func FormatResult(params backtest.Params, metrics backtest.Metrics, optimal bool, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nBacktest Results - %s\n%s\n", rule, at.Format(reportTimeLayout), rule)
	if optimal {
		b.WriteString("OPTIMAL STRATEGY PARAMETERS:\n")
	} else {
		b.WriteString("STRATEGY PARAMETERS:\n")
	}
	for _, k := range params.Keys() {
		v, _ := params.Get(k)
		fmt.Fprintf(&b, "%s: %s\n", k, strconv.FormatFloat(v, 'f', -1, 64))
	}

	b.WriteString("\nPERFORMANCE METRICS:\n")
	for _, f := range metricFields(metrics) {
		fmt.Fprintf(&b, "%s: %s\n", label(f.key), f.value)
	}
	b.WriteString(rule + "\n")
	return b.String()
}

type field struct {
	key   string
	value string
}

func metricFields(m backtest.Metrics) []field {
	m = clampMetrics(m)
	ints := func(k string, v int) field { return field{k, strconv.Itoa(v)} }
	floats := func(k string, v float64) field { return field{k, strconv.FormatFloat(v, 'f', 2, 64)} }
	return []field{
		ints("total_trades", m.TotalTrades),
		ints("winning_trades", m.WinningTrades),
		ints("losing_trades", m.LosingTrades),
		ints("open_trades", m.OpenTrades),
		floats("win_rate", m.WinRate),
		floats("total_profit", m.TotalProfit),
		floats("average_profit", m.AverageProfit),
		floats("largest_win", m.LargestWin),
		floats("largest_loss", m.LargestLoss),
		floats("max_drawdown", m.MaxDrawdownPct),
		floats("profit_factor", m.ProfitFactor),
		floats("final_capital", m.FinalCapital),
	}
}

// label turns a snake_case key into Title Case words.
func label(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}
