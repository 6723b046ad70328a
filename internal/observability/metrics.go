package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dyresolve",
		Name:      "resolve_total",
		Help:      "Resolution attempts by the stage they ended in and their outcome",
	}, []string{"stage", "outcome"})

	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dyresolve",
		Name:      "resolve_duration_seconds",
		Help:      "Duration of a full link resolution",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"outcome"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dyresolve",
		Name:      "upstream_requests_total",
		Help:      "Requests to platform endpoints by endpoint and HTTP status",
	}, []string{"endpoint", "status"})

	CollaboratorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dyresolve",
		Name:      "collaborator_calls_total",
		Help:      "Calls to transcription, LLM, document store and email collaborators",
	}, []string{"collaborator", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dyresolve",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Outcome returns the metric label for an error result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
