package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"luno-trade-bot-go/internal/models"
	"luno-trade-bot-go/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultLimit = 100

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	db      *gorm.DB
	records *store.RecordStore
	now     func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB, records *store.RecordStore) *APIHandler {
	return &APIHandler{log: log.Named("ui"), db: db, records: records, now: time.Now}
}

// NewRouter routes the read-only API.
func NewRouter(h *APIHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests())

	api := r.Group("/api")
	{
		api.GET("/trades", h.TradesHandler)
		api.GET("/session", h.SessionHandler)
		api.GET("/statistics", h.StatisticsHandler)
		api.GET("/runs", h.RunsHandler)
		api.GET("/optimal", h.OptimalHandler)
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func (h *APIHandler) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debug("Request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// limit reads ?limit=, falling back to defaultLimit.
func limit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return n
}

// TradesHandler returns the most recent paper trades, optionally for one session.
func (h *APIHandler) TradesHandler(c *gin.Context) {
	q := h.db.Order("timestamp desc").Limit(limit(c))
	if session := c.Query("session"); session != "" {
		q = q.Where("session_id = ?", session)
	}

	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get trades"})
		return
	}
	c.JSON(http.StatusOK, trades)
}

// SessionHandler returns the most recently updated paper-trading session.
func (h *APIHandler) SessionHandler(c *gin.Context) {
	var session models.Session
	err := h.db.Order("updated_at desc").First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No trading session yet"})
		return
	}
	if err != nil {
		h.log.Error("Failed to get session from database", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// RunsHandler returns the backtest run history, newest first.
func (h *APIHandler) RunsHandler(c *gin.Context) {
	q := h.db.Order("started_at desc").Limit(limit(c))
	if kind := c.Query("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var runs []models.BacktestRun
	if err := q.Find(&runs).Error; err != nil {
		h.log.Error("Failed to get backtest runs from database", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get backtest runs"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// OptimalHandler returns the persisted optimal strategy.
func (h *APIHandler) OptimalHandler(c *gin.Context) {
	rec, err := h.records.Load()
	if errors.Is(err, store.ErrNoRecord) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No optimal strategy recorded"})
		return
	}
	if err != nil {
		h.log.Error("Failed to load optimal strategy", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load optimal strategy"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
	TotalFees        float64 `json:"total_fees"`
}

func (s *StatsDetail) add(t models.Trade) {
	s.TotalTrades++
	if t.Profit > 0 {
		s.ProfitableTrades++
	}
	s.TotalProfit += t.Profit
}

func (s *StatsDetail) finish() {
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.ProfitableTrades) / float64(s.TotalTrades)
	}
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// StatisticsHandler calculates closed-trade statistics. A round trip counts once, on its sell.
func (h *APIHandler) StatisticsHandler(c *gin.Context) {
	var allTrades []models.Trade
	if err := h.db.Find(&allTrades).Error; err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate statistics"})
		return
	}

	since24h := h.now().Add(-24 * time.Hour)

	var resp StatisticsResponse
	for _, trade := range allTrades {
		recent := time.UnixMilli(trade.Timestamp).After(since24h)
		resp.AllTime.TotalFees += trade.Fee
		if recent {
			resp.Since24h.TotalFees += trade.Fee
		}
		if trade.Type != models.TradeTypeSell {
			continue
		}
		resp.AllTime.add(trade)
		if recent {
			resp.Since24h.add(trade)
		}
	}
	resp.AllTime.finish()
	resp.Since24h.finish()

	c.JSON(http.StatusOK, resp)
}
