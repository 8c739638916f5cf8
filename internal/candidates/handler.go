package candidates

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
	rg.GET("/candidates", h.list)
	rg.POST("/candidates", h.add)
	rg.PATCH("/candidates/:id/status", h.updateStatus)
	rg.DELETE("/candidates/:id", h.remove)
	rg.GET("/candidate-statuses", h.statuses)
}

type addRequest struct {
	CandidateName  string `json:"candidateName"`
	CandidateEmail string `json:"candidateEmail"`
	Status         string `json:"status"`
}

func (h *Handler) add(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	out, err := h.Svc.Add(c.Request.Context(), middleware.UserIDFromContext(c), AddInput{
		CandidateName:  req.CandidateName,
		CandidateEmail: req.CandidateEmail,
		Status:         req.Status,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Created(c, out)
}

func (h *Handler) list(c *gin.Context) {
	out, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		out = []Candidate{}
	}
	respond.OK(c, out)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	out, err := h.Svc.UpdateStatus(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Remove(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) statuses(c *gin.Context) {
	out, err := h.Svc.Statuses(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, ErrUnknownStatus):
		respond.Error(c, http.StatusBadRequest, ErrorCodeUnknownStatus, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "candidate not found", nil)
	case errors.Is(err, ErrDuplicate):
		respond.Error(c, http.StatusConflict, ErrorCodeDuplicate, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "candidate request failed", nil)
	}
}
