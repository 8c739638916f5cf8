package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recruitai-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can carry domain ids.
const (
	FormIDKey      = "formId"
	SessionIDKey   = "sessionId"
	ScreeningIDKey = "screeningId"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		telemetry.Info("request.complete", map[string]any{
			"request_id":   RequestIDFromContext(c),
			"method":       c.Request.Method,
			"path":         c.Request.URL.Path,
			"route":        c.FullPath(),
			"status":       c.Writer.Status(),
			"duration_ms":  float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":      UserIDFromContext(c),
			"form_id":      c.GetString(FormIDKey),
			"session_id":   c.GetString(SessionIDKey),
			"screening_id": c.GetString(ScreeningIDKey),
			"client_ip":    c.ClientIP(),
			"user_agent":   c.Request.UserAgent(),
		})
	}
}
