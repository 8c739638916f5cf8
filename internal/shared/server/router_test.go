package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"recruitai-backend/internal/candidates"
	"recruitai-backend/internal/forms"
	"recruitai-backend/internal/shared/auth"
	"recruitai-backend/internal/shared/config"
	"recruitai-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T, env string) (*gin.Engine, *auth.Keys) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	keys, err := auth.NewKeys("router-secret", false)
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewRouter(RouterDeps{
		Config:     config.Config{Env: env},
		Verifier:   keys,
		Limiter:    middleware.NewRateLimiter(func() time.Time { return fixed }),
		Forms:      forms.NewHandler(&forms.Service{Repo: forms.NewMemoryRepo()}),
		Candidates: candidates.NewHandler(&candidates.Service{Repo: candidates.NewMemoryRepo()}),
	}), keys
}

func get(router http.Handler, path string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp.Code
}

func TestHealthAndMetricsAreOpen(t *testing.T) {
	router, _ := newTestRouter(t, "production")
	for _, path := range []string{"/health", "/api/v1/health", "/metrics"} {
		if code := get(router, path, nil); code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, code)
		}
	}
}

func TestRecruiterRoutesRequireIdentity(t *testing.T) {
	router, keys := newTestRouter(t, "production")
	token, err := keys.Sign(auth.Claims{Sub: "rec-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	cases := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"guest outside dev", map[string]string{"X-Guest-Id": "g1"}, http.StatusUnauthorized},
		{"bad token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"valid token", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := get(router, "/api/v1/candidates", tc.headers); code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, code)
			}
		})
	}

	devRouter, _ := newTestRouter(t, "dev")
	if code := get(devRouter, "/api/v1/candidates", map[string]string{"X-Guest-Id": "g1"}); code != http.StatusOK {
		t.Fatalf("dev guest: expected 200, got %d", code)
	}
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	router, _ := newTestRouter(t, "production")
	for i := 0; i < 10; i++ {
		if code := get(router, "/apply/unknown", nil); code != http.StatusNotFound {
			t.Fatalf("request %d: expected 404, got %d", i, code)
		}
	}
	if code := get(router, "/apply/unknown", nil); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
