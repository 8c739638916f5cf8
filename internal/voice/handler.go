package voice

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"recruitai-backend/internal/interviews"
	"recruitai-backend/internal/shared/server/middleware"
	"recruitai-backend/internal/shared/server/respond"
	"recruitai-backend/internal/shared/telemetry"
)

const (
	ErrorCodeDisabled     = "VOICE_DISABLED"
	ErrorCodeNotVoice     = "NOT_VOICE_INTERVIEW"
	ErrorCodeUpstream     = "VOICE_PROVIDER_ERROR"
	ErrorCodeUnauthorized = "unauthorized"
)

const maxWebhookBytes = 1 << 20

// Handler exposes voice call control and the provider webhook.
type Handler struct {
	Svc *Service
	// WebhookSecret must match the X-Vapi-Secret header.
	WebhookSecret string
	// AllowUnsigned accepts webhooks when no secret is configured. Dev only.
	AllowUnsigned bool
}

func NewHandler(svc *Service, webhookSecret string, allowUnsigned bool) *Handler {
	return &Handler{Svc: svc, WebhookSecret: webhookSecret, AllowUnsigned: allowUnsigned}
}

// RegisterRoutes attaches recruiter routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interviews/:id/voice/start", h.start)
	rg.POST("/interviews/:id/voice/stop", h.stop)
}

// RegisterWebhook attaches the unauthenticated provider callback.
func (h *Handler) RegisterWebhook(rg *gin.RouterGroup) {
	rg.POST("/webhooks/vapi", h.webhook)
}

func (h *Handler) start(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	call, err := h.Svc.Start(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, call)
}

func (h *Handler) stop(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	if err := h.Svc.Stop(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) webhook(c *gin.Context) {
	if h.WebhookSecret == "" && !h.AllowUnsigned {
		telemetry.Warn("voice.webhook_rejected", map[string]any{"reason": "no webhook secret configured"})
		respond.Error(c, http.StatusUnauthorized, ErrorCodeUnauthorized, "webhook secret not configured", nil)
		return
	}
	if h.WebhookSecret != "" {
		got := c.GetHeader("X-Vapi-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookSecret)) != 1 {
			respond.Error(c, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid webhook secret", nil)
			return
		}
	}
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, interviews.ErrorCodeValidation, "unreadable body", nil)
		return
	}
	ev, ok, err := ParseEvent(raw)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, interviews.ErrorCodeValidation, "invalid webhook payload", nil)
		return
	}
	if !ok {
		// Acknowledge message types we do not track.
		respond.NoContent(c)
		return
	}
	if err := h.Svc.HandleEvent(c.Request.Context(), ev); err != nil {
		telemetry.Error("voice.webhook_failed", map[string]any{"type": string(ev.Type), "call_id": ev.CallID, "error": err})
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func writeError(c *gin.Context, err error) {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrDisabled):
		respond.Error(c, http.StatusServiceUnavailable, ErrorCodeDisabled, err.Error(), nil)
	case errors.Is(err, ErrNotVoice):
		respond.Error(c, http.StatusBadRequest, ErrorCodeNotVoice, err.Error(), nil)
	case errors.Is(err, interviews.ErrNotFound):
		respond.Error(c, http.StatusNotFound, interviews.ErrorCodeNotFound, "interview not found", nil)
	case errors.Is(err, interviews.ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, interviews.ErrorCodeInvalidState, err.Error(), nil)
	case errors.Is(err, interviews.ErrNotLive):
		respond.Error(c, http.StatusConflict, interviews.ErrorCodeNotLive, "no call in progress", nil)
	case errors.As(err, &apiErr):
		respond.Error(c, http.StatusBadGateway, ErrorCodeUpstream, apiErr.Message, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, interviews.ErrorCodeInternal, "voice request failed", nil)
	}
}
