// Package admin exposes the referee request endpoints over HTTP.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"droneops-referee/internal/logging"
	"droneops-referee/internal/referee"
	"droneops-referee/internal/score"
)

// Referee is the controller surface served by the admin endpoints.
type Referee interface {
	StartRequest(flag bool) bool
	FinishRequest(flag bool) bool
	ReportTargets(fields []string) bool
	OnBattery(topic string, percentage float64)
	Status() referee.Status
	Score() score.Snapshot
}

// StatusListener is told when the endpoint starts or stops listening.
type StatusListener interface {
	SetAdminStatus(listening bool)
}

// FlagRequest is the body of the start and finish requests.
type FlagRequest struct {
	Data bool `json:"data"`
}

// FlagResponse answers a start, finish or report request.
type FlagResponse struct {
	Data bool `json:"data"`
}

// ReportRequest carries one target report.
type ReportRequest struct {
	Data []string `json:"data"`
}

// BatteryRequest carries one battery state message.
type BatteryRequest struct {
	Topic      string   `json:"topic" binding:"required"`
	Percentage *float64 `json:"percentage" binding:"required"`
}

// ScoreResponse is the current score.
type ScoreResponse struct {
	Score       float64 `json:"score"`
	Infinite    bool    `json:"infinite"`
	TimePenalty int     `json:"time_penalty"`
	Started     bool    `json:"started"`
	SimElapsed  float64 `json:"sim_elapsed_sec"`
	RealElapsed float64 `json:"real_elapsed_sec"`
}

// Server exposes the referee controls over HTTP.
type Server struct {
	ref      Referee
	engine   *gin.Engine
	listener StatusListener
}

// NewServer builds the router. listener may be nil.
func NewServer(ref Referee, listener StatusListener) *Server {
	s := &Server{ref: ref, engine: gin.New(), listener: listener}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.POST("/start", s.handleStart)
	s.engine.POST("/finish", s.handleFinish)
	s.engine.POST("/report/targets", s.handleReportTargets)
	s.engine.POST("/battery", s.handleBattery)
	s.engine.GET("/status", s.handleStatus)
	s.engine.GET("/score", s.handleScore)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("admin endpoint listening", "addr", addr)
	s.setStatus(true)
	defer s.setStatus(false)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("admin shutdown failed", "error", err)
			return err
		}
		log.Info("admin endpoint stopped")
		return nil
	}
}

func (s *Server) setStatus(listening bool) {
	if s.listener != nil {
		s.listener.SetAdminStatus(listening)
	}
}

func (s *Server) handleStart(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	c.JSON(http.StatusOK, FlagResponse{Data: s.ref.StartRequest(req.Data)})
}

func (s *Server) handleFinish(c *gin.Context) {
	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	c.JSON(http.StatusOK, FlagResponse{Data: s.ref.FinishRequest(req.Data)})
}

func (s *Server) handleReportTargets(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	slog.Debug("target report received", "fields", req.Data)
	c.JSON(http.StatusOK, FlagResponse{Data: s.ref.ReportTargets(req.Data)})
}

func (s *Server) handleBattery(c *gin.Context) {
	var req BatteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.ref.OnBattery(req.Topic, *req.Percentage)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.ref.Status())
}

func (s *Server) handleScore(c *gin.Context) {
	snap := s.ref.Score()
	c.JSON(http.StatusOK, ScoreResponse{
		Score:       snap.Score,
		Infinite:    snap.Infinite(),
		TimePenalty: snap.Penalty,
		Started:     snap.Started,
		SimElapsed:  snap.SimElapsed.Seconds(),
		RealElapsed: snap.RealElapsed.Seconds(),
	})
}
