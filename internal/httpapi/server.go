// Package httpapi provides the HTTP API for ragd.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/assembler"
	"github.com/fyrsmithlabs/ragd/internal/docstore"
	"github.com/fyrsmithlabs/ragd/internal/pipeline"
	"github.com/fyrsmithlabs/ragd/internal/prompts"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// FeedbackStore persists user verdicts on answers.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, f docstore.Feedback) (int64, error)
}

// Server provides HTTP endpoints for ragd.
type Server struct {
	echo     *echo.Echo
	pipeline *pipeline.Service
	feedback FeedbackStore
	logger   *zap.Logger
	config   Config
}

// NewServer creates the HTTP server.
func NewServer(p *pipeline.Service, feedback FeedbackStore, logger *zap.Logger, cfg Config) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		pipeline: p,
		feedback: feedback,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/chat", s.handleChat)
	v1.POST("/verify", s.handleVerify)
	v1.POST("/feedback", s.handleFeedback)
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("http server starting", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	Question string            `json:"question"`
	History  []prompts.Message `json:"history,omitempty"`
}

// VerifyRequest is the request body for POST /api/v1/verify.
type VerifyRequest struct {
	Answer  string             `json:"answer"`
	Sources []assembler.Source `json:"sources"`
}

// FeedbackRequest is the request body for POST /api/v1/feedback.
type FeedbackRequest struct {
	Question string                    `json:"question"`
	Answer   string                    `json:"answer"`
	Sources  []docstore.FeedbackSource `json:"sources,omitempty"`
	Type     string                    `json:"type"`
	UserID   string                    `json:"user_id,omitempty"`
	Comment  string                    `json:"comment,omitempty"`
}

func (s *Server) handleVerify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Answer == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "answer is required")
	}

	result := s.pipeline.VerifyCitations(req.Answer, req.Sources)
	invalidCitations.Add(float64(len(result.InvalidCitations)))
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleFeedback(c echo.Context) error {
	if s.feedback == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "feedback storage not configured")
	}

	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Type != "positive" && req.Type != "negative" {
		return echo.NewHTTPError(http.StatusBadRequest, "type must be positive or negative")
	}

	id, err := s.feedback.SaveFeedback(c.Request().Context(), docstore.Feedback{
		Question: req.Question,
		Answer:   req.Answer,
		Sources:  req.Sources,
		Type:     req.Type,
		UserID:   req.UserID,
		Comment:  req.Comment,
	})
	if err != nil {
		s.logger.Error("saving feedback failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save feedback")
	}

	feedbackReceived.WithLabelValues(req.Type).Inc()
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}
