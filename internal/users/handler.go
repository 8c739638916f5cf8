package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"recruitai-backend/internal/shared/server/middleware"
	"recruitai-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.PUT("/me", h.onboard)
}

type profileRequest struct {
	FullName string `json:"fullName"`
	Company  string `json:"company"`
	JobTitle string `json:"jobTitle"`
}

// me returns the stored profile, or the token identity with onboarded=false before onboarding.
func (h *Handler) me(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		respond.OK(c, User{
			ID:       userID,
			Email:    middleware.UserEmailFromContext(c),
			FullName: middleware.UserNameFromContext(c),
		})
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load user", nil)
		return
	}
	respond.OK(c, user)
}

func (h *Handler) onboard(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	user, err := h.Svc.CompleteOnboarding(c.Request.Context(), Identity{
		ID:    middleware.UserIDFromContext(c),
		Email: middleware.UserEmailFromContext(c),
		Name:  middleware.UserNameFromContext(c),
	}, ProfileInput(req))
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to save profile", nil)
		return
	}
	respond.OK(c, user)
}
