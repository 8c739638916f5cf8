package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recruitai-backend/internal/analyses"
	"recruitai-backend/internal/candidates"
	"recruitai-backend/internal/forms"
	"recruitai-backend/internal/interviews"
	"recruitai-backend/internal/services/health"
	"recruitai-backend/internal/shared/config"
	"recruitai-backend/internal/shared/metrics"
	"recruitai-backend/internal/shared/server/middleware"
	"recruitai-backend/internal/shared/server/respond"
	"recruitai-backend/internal/users"
	"recruitai-backend/internal/voice"
)

// Rate limit groups.
const (
	groupDefault = "DEFAULT"
	groupLLM     = "LLM"
	groupPublic  = "PUBLIC"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config     config.Config
	Verifier   middleware.TokenVerifier
	Health     *health.Service
	Limiter    *middleware.RateLimiter
	Analyses   *analyses.Handler
	Interviews *interviews.Handler
	Voice      *voice.Handler
	Forms      *forms.Handler
	Candidates *candidates.Handler
	Users      *users.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.IsDevLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(nil)
	}

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}
	healthHandler := func(c *gin.Context) {
		body, ok := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, body)
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	public := r.Group("/")
	public.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        map[string]middleware.RateLimitRule{groupPublic: {Rate: 1, Burst: 10}},
		DefaultGroup: groupPublic,
		Limiter:      limiter,
	}))
	if deps.Forms != nil {
		deps.Forms.RegisterPublicRoutes(public)
	}
	if deps.Interviews != nil {
		deps.Interviews.RegisterPublicRoutes(public)
	}
	if deps.Voice != nil {
		deps.Voice.RegisterWebhook(public)
	}

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)
	api.Use(
		middleware.Auth(deps.Verifier, deps.Config.IsDevLike()),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				groupDefault: {Rate: 10, Burst: 40},
				groupLLM:     {Rate: 0.2, Burst: 5},
			},
			DefaultGroup: groupDefault,
			GroupFor:     rateGroup,
			Limiter:      limiter,
		}),
	)
	if deps.Users != nil {
		deps.Users.RegisterRoutes(api)
	}
	if deps.Analyses != nil {
		deps.Analyses.RegisterRoutes(api)
	}
	if deps.Interviews != nil {
		deps.Interviews.RegisterRoutes(api)
	}
	if deps.Voice != nil {
		deps.Voice.RegisterRoutes(api)
	}
	if deps.Forms != nil {
		deps.Forms.RegisterRoutes(api)
	}
	if deps.Candidates != nil {
		deps.Candidates.RegisterRoutes(api)
	}
	return r
}

// rateGroup puts the routes that call the model in their own, tighter bucket.
func rateGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return groupDefault
	}
	switch c.FullPath() {
	case "/api/v1/screenings", "/api/v1/screenings/:id/chat", "/api/v1/resumes/parse":
		return groupLLM
	}
	return groupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
