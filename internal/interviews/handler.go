package interviews

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"recruitai-backend/internal/shared/server/middleware"
	"recruitai-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the interview service.
type Handler struct {
	Svc          *Service
	upgrader     websocket.Upgrader
	tickInterval time.Duration
}

// NewHandler constructs a Handler. Live views accept browser origins from allowedOrigins only.
func NewHandler(svc *Service, allowedOrigins []string) *Handler {
	return &Handler{
		Svc:          svc,
		upgrader:     websocket.Upgrader{CheckOrigin: middleware.OriginChecker(allowedOrigins)},
		tickInterval: time.Second,
	}
}

// RegisterRoutes attaches recruiter routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/interviews", h.schedule)
	rg.GET("/interviews", h.list)
	rg.GET("/interviews/:id", h.get)
	rg.PATCH("/interviews/:id/decision", h.updateDecision)
	rg.GET("/interviews/:id/live", h.recruiterLive)
}

// RegisterPublicRoutes attaches the candidate-facing routes keyed by public id.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/interview/:publicId", h.lookup)
	rg.POST("/interview/:publicId/begin", h.begin)
	rg.POST("/interview/:publicId/answer", h.answer)
	rg.PUT("/interview/:publicId/draft", h.draft)
	rg.GET("/interview/:publicId/live", h.candidateLive)
}

type scheduleRequest struct {
	ResumeID       string   `json:"resumeId"`
	CandidateName  string   `json:"candidateName"`
	CandidateEmail string   `json:"candidateEmail"`
	JobRole        string   `json:"jobRole"`
	KeySkills      []string `json:"keySkills"`
	InterviewType  string   `json:"interviewType"`
	NumQuestions   int      `json:"numQuestions"`
}

func (h *Handler) schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	name := middleware.UserNameFromContext(c)
	session, err := h.Svc.Schedule(c.Request.Context(), ScheduleInput{
		RecruiterID:    middleware.UserIDFromContext(c),
		RecruiterName:  name,
		ResumeID:       req.ResumeID,
		CandidateName:  req.CandidateName,
		CandidateEmail: req.CandidateEmail,
		JobRole:        req.JobRole,
		KeySkills:      req.KeySkills,
		Modality:       Modality(req.InterviewType),
		NumQuestions:   req.NumQuestions,
	})
	if err != nil {
		writeError(c, err, "failed to schedule interview")
		return
	}
	c.Set(middleware.SessionIDKey, session.ID)
	respond.Created(c, session)
}

func (h *Handler) list(c *gin.Context) {
	sessions, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list interviews")
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	respond.OK(c, sessions)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	detail, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to fetch interview")
		return
	}
	respond.OK(c, detail)
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

func (h *Handler) updateDecision(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	res, err := h.Svc.UpdateDecision(c.Request.Context(), middleware.UserIDFromContext(c), id, req.Decision)
	if err != nil {
		writeError(c, err, "failed to update decision")
		return
	}
	respond.OK(c, res)
}

// publicSession is what a candidate may see before starting.
type publicSession struct {
	PublicID      string   `json:"publicId"`
	CandidateName string   `json:"candidateName"`
	JobRole       string   `json:"jobRole"`
	KeySkills     []string `json:"keySkills"`
	InterviewType Modality `json:"interviewType"`
	NumQuestions  int      `json:"numQuestions"`
	Status        Status   `json:"status"`
}

func (h *Handler) lookup(c *gin.Context) {
	session, err := h.Svc.Lookup(c.Request.Context(), c.Param("publicId"))
	if err != nil {
		writeError(c, err, "failed to fetch interview")
		return
	}
	c.Set(middleware.SessionIDKey, session.ID)
	respond.OK(c, publicSession{
		PublicID:      session.PublicID,
		CandidateName: session.CandidateName,
		JobRole:       session.JobRole,
		KeySkills:     session.KeySkills,
		InterviewType: session.Modality,
		NumQuestions:  session.NumQuestions,
		Status:        session.Status,
	})
}

type beginRequest struct {
	CandidateName  string `json:"candidateName"`
	CandidateEmail string `json:"candidateEmail"`
	MediaGranted   bool   `json:"mediaGranted"`
}

func (h *Handler) begin(c *gin.Context) {
	var req beginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	snap, err := h.Svc.Begin(c.Request.Context(), c.Param("publicId"), BeginInput(req))
	if err != nil {
		writeError(c, err, "failed to start interview")
		return
	}
	respond.OK(c, snap)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	snap, err := h.Svc.Answer(c.Request.Context(), c.Param("publicId"), req.Answer)
	if err != nil {
		writeError(c, err, "failed to record answer")
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) draft(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	if err := h.Svc.SaveDraft(c.Request.Context(), c.Param("publicId"), req.Answer); err != nil {
		writeError(c, err, "failed to save draft")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) recruiterLive(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	if _, err := h.Svc.Repo.GetSession(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to fetch interview")
		return
	}
	m, err := h.Svc.LiveBySessionID(id)
	if err != nil {
		writeError(c, err, "interview is not running")
		return
	}
	h.streamLive(c, m)
}

func (h *Handler) candidateLive(c *gin.Context) {
	m, err := h.Svc.Live(c.Request.Context(), c.Param("publicId"))
	if err != nil {
		writeError(c, err, "interview is not running")
		return
	}
	h.streamLive(c, m)
}

// streamLive pushes a snapshot on every tick and every transition until completion or disconnect.
func (h *Handler) streamLive(c *gin.Context, m *Machine) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, cancel := m.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	send := func(s Snapshot) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(s); err != nil {
			return false
		}
		return s.State != StateCompleted
	}

	if !send(m.Snapshot()) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case s, ok := <-updates:
			if !ok || !send(s) {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview complete"))
				return
			}
		case <-ticker.C:
			if !send(m.Snapshot()) {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview complete"))
				return
			}
		}
	}
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "interview not found", nil)
	case errors.Is(err, ErrPermissionDenied):
		respond.Error(c, http.StatusForbidden, ErrorCodePermission, err.Error(), nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, ErrorCodeInvalidState, err.Error(), nil)
	case errors.Is(err, ErrNotLive):
		respond.Error(c, http.StatusConflict, ErrorCodeNotLive, err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, fallback, nil)
	}
}
