// Package store persists the optimal strategy record and the plain-text run report.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"luno-trade-bot-go/internal/backtest"

	"go.uber.org/zap"
)

var (
	// ErrNoRecord means no optimum has been persisted yet.
	ErrNoRecord = errors.New("no optimal strategy record")
	// ErrPersistence wraps any failure to read or write the record.
	ErrPersistence = errors.New("persistence failure")
)

// Record is the best parameter set found so far together with its metrics.
type Record struct {
	Parameters     backtest.Params  `json:"parameters"`
	Metrics        backtest.Metrics `json:"metrics"`
	CapturedAt     time.Time        `json:"timestamp"`
	InitialCapital float64          `json:"initial_capital"`
}

// RecordStore reads and atomically replaces the record file.
type RecordStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewRecordStore returns a store backed by the JSON file at path.
func NewRecordStore(path string, logger *zap.Logger) *RecordStore {
	return &RecordStore{
		path:   path,
		logger: logger.Named("store").With(zap.String("path", path)),
	}
}

// Path is the file the record lives in.
func (s *RecordStore) Path() string { return s.path }

// Load reads the persisted record.
func (s *RecordStore) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, ErrNoRecord
		}
		return Record{}, fmt.Errorf("%w: read %s: %v", ErrPersistence, s.path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: decode %s: %v", ErrPersistence, s.path, err)
	}
	if rec.Parameters.Len() == 0 {
		return Record{}, fmt.Errorf("%w: %s has no parameters", ErrPersistence, s.path)
	}
	return rec, nil
}

// Save replaces the record file. The new content is written to a temporary file in the
// same directory and renamed over the old one, so readers see either version whole.
func (s *RecordStore) Save(rec Record) error {
	rec.Metrics = clampMetrics(rec.Metrics)
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}

	s.logger.Info("Saved optimal strategy",
		zap.Stringer("parameters", rec.Parameters),
		zap.Float64("total_profit", rec.Metrics.TotalProfit))
	return nil
}

// clampMetrics replaces non-finite values with the infinite profit factor sentinel
// so the file stays valid JSON.
func clampMetrics(m backtest.Metrics) backtest.Metrics {
	for _, f := range []*float64{
		&m.WinRate, &m.TotalProfit, &m.AverageProfit, &m.LargestWin, &m.LargestLoss,
		&m.MaxDrawdownPct, &m.ProfitFactor, &m.FinalCapital,
	} {
		*f = finite(*f)
	}
	return m
}

func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return backtest.InfiniteProfitFactor
	case math.IsInf(v, -1):
		return -backtest.InfiniteProfitFactor
	}
	return v
}
