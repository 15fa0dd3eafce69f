package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

// SSE event names emitted by the chat stream.
const (
	eventSources = "sources"
	eventToken   = "token"
	eventError   = "error"
	eventEnd     = "end"
)

// handleChat answers a question as a server-sent event stream: one sources
// event, then token events as the model generates, then an end event.
// Client disconnect cancels the generation stream.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	start := time.Now()
	ctx := c.Request().Context()

	stream, err := s.pipeline.Answer(ctx, req.Question, req.History)
	if err != nil {
		chatRequests.WithLabelValues("error").Inc()
		if errors.Is(err, retriever.ErrEmbeddingUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "embedding service unavailable")
		}
		s.logger.Error("chat retrieval failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "retrieval failed")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, eventSources, stream.Sources); err != nil {
		return err
	}

	outcome := "ok"
	for token := range stream.Tokens {
		if err := writeEvent(res, eventToken, token); err != nil {
			// Client went away; the request context cancellation tears
			// down the generation stream.
			outcome = "disconnected"
			break
		}
	}
	if genErr := <-stream.Errs; genErr != nil {
		s.logger.Error("generation failed mid-stream", zap.Error(genErr))
		_ = writeEvent(res, eventError, "generation failed")
		outcome = "generation_failed"
	}

	_ = writeEvent(res, eventEnd, "")

	chatRequests.WithLabelValues(outcome).Inc()
	chatDuration.Observe(time.Since(start).Seconds())
	return nil
}

// writeEvent serializes one SSE event and flushes it.
func writeEvent(res *echo.Response, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	res.Flush()
	return nil
}
