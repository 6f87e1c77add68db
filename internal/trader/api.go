package trader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"luno-trade-bot-go/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIServer exposes the engine's state over HTTP while it trades.
type APIServer struct {
	server *http.Server
	engine *Engine
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(engine *Engine, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		engine: engine,
		logger: logger.Named("api-server"),
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	return s
}

// Handler routes the status endpoints.
func (s *APIServer) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/status", s.status)
	r.GET("/trades", s.trades)
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status())
}

// trades lists the current session's paper trades, newest first.
func (s *APIServer) trades(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	trades, err := s.engine.RecentTrades(limit)
	if err != nil {
		s.logger.Error("Failed to load trades", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load trades"})
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}
