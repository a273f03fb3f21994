// Package api exposes a read-only HTTP view of the feed.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"CandleFeed/internal/cache"
	"CandleFeed/internal/feed"
	"CandleFeed/internal/model"
	"CandleFeed/internal/portfolio"
)

// Server serves cache, engine and portfolio status over HTTP.
type Server struct {
	cache     *cache.Rolling
	engine    *feed.Engine
	portfolio *portfolio.Manager
	logger    *slog.Logger
}

// NewServer creates a new status server.
func NewServer(c *cache.Rolling, eng *feed.Engine, pm *portfolio.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cache: c, engine: eng, portfolio: pm, logger: logger}
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/symbols", s.GetSymbols)
		api.GET("/candles/:symbol", s.GetCandles)
		api.GET("/positions", s.GetPositions)
		api.POST("/refresh", s.Refresh)
	}
	return router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Health reports liveness and poll progress.
// GET /healthz
func (s *Server) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"running": s.engine.Running(),
	}
	if last := s.engine.LastPoll(); !last.IsZero() {
		resp["last_poll"] = last
	}
	c.JSON(http.StatusOK, resp)
}

type symbolStatus struct {
	Symbol string        `json:"symbol"`
	Loaded bool          `json:"loaded"`
	Bars   int           `json:"bars"`
	Last   *model.Candle `json:"last,omitempty"`
}

// GetSymbols lists every tracked symbol with its cache state.
// GET /api/v1/symbols
func (s *Server) GetSymbols(c *gin.Context) {
	symbols := s.engine.Symbols()
	out := make([]symbolStatus, 0, len(symbols))
	for _, sym := range symbols {
		st := symbolStatus{Symbol: sym}
		if history, ok := s.cache.Get(sym); ok {
			st.Loaded = true
			st.Bars = len(history)
			if len(history) > 0 {
				last := history[len(history)-1]
				st.Last = &last
			}
		}
		out = append(out, st)
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// GetCandles returns the retained history of one symbol, optionally only
// the last ?limit= bars.
// GET /api/v1/candles/:symbol
func (s *Server) GetCandles(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	history, ok := s.cache.Get(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not loaded"})
		return
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		if limit < len(history) {
			history = history[len(history)-limit:]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"count":  len(history),
		"data":   history,
	})
}

// GetPositions returns the portfolio totals and open positions.
// GET /api/v1/positions
func (s *Server) GetPositions(c *gin.Context) {
	state := s.portfolio.GetState()
	c.JSON(http.StatusOK, gin.H{
		"account_size":  state.AccountSize,
		"risk_pct":      state.RiskPct,
		"closed_trades": state.ClosedTrades,
		"realized_pnl":  state.RealizedPnL,
		"data":          s.portfolio.Positions(),
	})
}

// Refresh runs one poll pass immediately.
// POST /api/v1/refresh
func (s *Server) Refresh(c *gin.Context) {
	n := s.engine.PollOnce(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"notified": n, "last_poll": s.engine.LastPoll()})
}
