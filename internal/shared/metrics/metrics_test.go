package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(submissionsTotal.WithLabelValues("duplicate"))
	IncSubmission("duplicate")
	IncSubmission("duplicate")
	if got := testutil.ToFloat64(submissionsTotal.WithLabelValues("duplicate")); got != before+2 {
		t.Fatalf("expected %v, got %v", before+2, got)
	}

	beforeExpiry := testutil.ToFloat64(interviewTransitions.WithLabelValues("expiry"))
	IncInterviewTransition("expiry")
	if got := testutil.ToFloat64(interviewTransitions.WithLabelValues("expiry")); got != beforeExpiry+1 {
		t.Fatalf("expected %v, got %v", beforeExpiry+1, got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncAnalysisStarted()
	ObserveAnalysisDuration(1500 * time.Millisecond)

	r := gin.New()
	r.GET("/metrics", Handler())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, name := range []string{"screening_analyses_total", "screening_analysis_duration_seconds_bucket"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}
