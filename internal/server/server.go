// Package server exposes an analysis session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dmoloce/stock-ta-ai/internal/collector"
	"github.com/dmoloce/stock-ta-ai/internal/config"
	"github.com/dmoloce/stock-ta-ai/internal/indicator"
	"github.com/dmoloce/stock-ta-ai/internal/session"
)

// Server is the dashboard HTTP API.
type Server struct {
	Session *session.Session
	engine  *gin.Engine
	http    *http.Server
}

// New builds the router. Pass debug to keep gin's debug mode.
func New(sess *session.Session, addr string, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{Session: sess, engine: gin.New()}
	s.engine.Use(gin.Recovery(), requestLogger(), cors())
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.health)
	s.engine.HEAD("/healthz", s.health)

	api := s.engine.Group("/api")
	{
		api.POST("/fetch", s.fetch)
		api.PUT("/indicators", s.selectIndicators)
		api.GET("/series", s.series)
		api.GET("/chart.png", s.chart)
		api.POST("/analyze", s.analyze)
		api.GET("/history", s.history)
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Msg("starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (s *Server) fetch(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if issues := fetchSchema.Validate(&req); issues != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": issueText(issues)})
		return
	}
	start, err := config.ParseDate(req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end, err := config.ParseDate(req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be before end"})
		return
	}

	series, err := s.Session.Fetch(c.Request.Context(), req.Ticker, start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	first, last := series.First(), series.Last()
	c.JSON(http.StatusOK, gin.H{
		"symbol": series.Symbol,
		"bars":   series.Len(),
		"first":  first.Format(time.DateOnly),
		"last":   last.Format(time.DateOnly),
	})
}

func (s *Server) selectIndicators(c *gin.Context) {
	var req indicatorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if issues := indicatorsSchema.Validate(&req); issues != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": issueText(issues)})
		return
	}
	kinds, err := s.Session.Select(req.Indicators)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"indicators": kinds})
}

func (s *Server) series(c *gin.Context) {
	snap, err := s.Session.Snapshot()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) chart(c *gin.Context) {
	png, err := s.Session.Chart()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) analyze(c *gin.Context) {
	rec, _, err := s.Session.Analyze(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) history(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if issues := historySchema.Validate(&q); issues != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": issueText(issues)})
		return
	}
	recs, err := s.Session.History(q.Ticker, q.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": recs})
}

// writeError maps session and engine errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var invalid *indicator.InvalidInputError
	var unknown *indicator.UnknownIndicatorError
	status := http.StatusBadGateway
	switch {
	case errors.As(err, &invalid), errors.As(err, &unknown):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNoData):
		status = http.StatusConflict
	case errors.Is(err, collector.ErrNoData):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
