package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screening_analyses_total",
		Help: "Resume analyses by outcome.",
	}, []string{"outcome"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "screening_analysis_duration_seconds",
		Help:    "Resume analysis duration in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "form_submissions_total",
		Help: "Public form submissions by outcome.",
	}, []string{"outcome"})

	interviewTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_transitions_total",
		Help: "Interview question transitions by trigger.",
	}, []string{"trigger"})

	llmErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_errors_total",
		Help: "Completion endpoint failures by kind.",
	}, []string{"provider", "kind"})
)

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() { analysesTotal.WithLabelValues("started").Inc() }

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() { analysesTotal.WithLabelValues("completed").Inc() }

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() { analysesTotal.WithLabelValues("failed").Inc() }

// ObserveAnalysisDuration records the duration of one analysis.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(d.Seconds())
}

// IncSubmission counts a public submission outcome (accepted, invalid, duplicate, failed).
func IncSubmission(outcome string) { submissionsTotal.WithLabelValues(outcome).Inc() }

// IncInterviewTransition counts a question transition (manual, expiry).
func IncInterviewTransition(trigger string) { interviewTransitions.WithLabelValues(trigger).Inc() }

// IncLLMError counts a completion failure.
func IncLLMError(provider, kind string) { llmErrors.WithLabelValues(provider, kind).Inc() }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
