package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragd_chat_requests_total",
		Help: "Chat requests by outcome.",
	}, []string{"outcome"})

	chatDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragd_chat_duration_seconds",
		Help:    "End-to-end chat request duration.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	invalidCitations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragd_invalid_citations_total",
		Help: "Hallucinated citations detected by the validator.",
	})

	feedbackReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragd_feedback_total",
		Help: "Feedback submissions by type.",
	}, []string{"type"})
)
