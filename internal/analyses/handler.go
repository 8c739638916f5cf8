package analyses

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"recruitai-backend/internal/extract"
	"recruitai-backend/internal/llm"
	"recruitai-backend/internal/shared/server/middleware"
	"recruitai-backend/internal/shared/server/respond"
	"recruitai-backend/internal/shared/util"
)

// MaxUploadBytes bounds resume uploads.
const MaxUploadBytes = 10 << 20

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches screening routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/screenings", h.analyze)
	rg.GET("/screenings", h.list)
	rg.GET("/screenings/:id", h.get)
	rg.DELETE("/screenings/:id", h.delete)
	rg.POST("/screenings/:id/chat", h.chat)
	rg.POST("/resumes/parse", h.parse)
}

func (h *Handler) analyze(c *gin.Context) {
	fileName, data, ok := readUpload(c)
	if !ok {
		return
	}
	jobTitle := strings.TrimSpace(c.PostForm("jobTitle"))
	if jobTitle == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "jobTitle is required", []map[string]string{
			{"field": "jobTitle", "issue": "required"},
		})
		return
	}

	screening, err := h.Svc.Analyze(c.Request.Context(), AnalyzeInput{
		RecruiterID:    middleware.UserIDFromContext(c),
		FileName:       fileName,
		Data:           data,
		JobTitle:       jobTitle,
		JobDescription: c.PostForm("jobDescription"),
	})
	if err != nil {
		writeError(c, err, "failed to analyze resume")
		return
	}
	c.Set(middleware.ScreeningIDKey, screening.ID)
	respond.Created(c, screening)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	screenings, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err, "failed to list screenings")
		return
	}

	resp := make([]gin.H, 0, len(screenings))
	for _, s := range screenings {
		item := gin.H{
			"id":             s.ID,
			"fileName":       s.FileName,
			"jobRole":        s.JobRole,
			"candidateName":  s.CandidateName,
			"candidateEmail": s.CandidateEmail,
			"incomplete":     s.Incomplete,
			"uploadedAt":     s.UploadedAt,
		}
		if s.Score != nil {
			item["score"] = *s.Score
		}
		resp = append(resp, item)
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ScreeningIDKey, id)
	screening, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to fetch screening")
		return
	}
	respond.OK(c, screening)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ScreeningIDKey, id)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete screening")
		return
	}
	respond.NoContent(c)
}

type chatRequest struct {
	Question string `json:"question"`
}

func (h *Handler) chat(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.ScreeningIDKey, id)
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "question is required", []map[string]string{
			{"field": "question", "issue": "required"},
		})
		return
	}
	answer, err := h.Svc.Ask(c.Request.Context(), middleware.UserIDFromContext(c), id, req.Question)
	if err != nil {
		writeError(c, err, "failed to answer question")
		return
	}
	respond.OK(c, gin.H{"answer": answer})
}

func (h *Handler) parse(c *gin.Context) {
	fileName, data, ok := readUpload(c)
	if !ok {
		return
	}
	profile, err := h.Svc.ParseFile(c.Request.Context(), fileName, data)
	if err != nil {
		writeError(c, err, "failed to parse resume")
		return
	}
	respond.OK(c, profile)
}

// readUpload reads the "file" part, enforcing MaxUploadBytes. It writes the error response itself.
func readUpload(c *gin.Context) (string, []byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeFileTooLarge, "file exceeds 10MB limit", nil)
			return "", nil, false
		}
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file is required", []map[string]string{
			{"field": "file", "issue": "required"},
		})
		return "", nil, false
	}
	if header.Size > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeFileTooLarge, "file exceeds 10MB limit", nil)
		return "", nil, false
	}
	fileName, err := util.SanitizeFileName(header.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid file name", []map[string]string{
			{"field": "file", "issue": "invalid_name"},
		})
		return "", nil, false
	}
	if _, err := extract.FormatOf(fileName); err != nil {
		respond.Error(c, http.StatusUnsupportedMediaType, ErrorCodeUnsupportedFile, "only PDF, DOCX and TXT files are supported", nil)
		return "", nil, false
	}
	f, err := header.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "could not read file", nil)
		return "", nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "could not read file", nil)
		return "", nil, false
	}
	return fileName, data, true
}

// writeError maps service errors to HTTP responses.
func writeError(c *gin.Context, err error, fallback string) {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "screening not found", nil)
	case errors.Is(err, extract.ErrUnsupportedFormat):
		respond.Error(c, http.StatusUnsupportedMediaType, ErrorCodeUnsupportedFile, "only PDF, DOCX and TXT files are supported", nil)
	case errors.Is(err, extract.ErrExtractionFailure), errors.Is(err, ErrEmptyResume):
		respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeExtractionFailed, "could not extract text from the resume", nil)
	case errors.As(err, &apiErr):
		switch apiErr.Kind {
		case llm.KindAuth:
			respond.Error(c, http.StatusUnauthorized, ErrorCodeLLMAuth, "analysis provider rejected the API key", nil)
		case llm.KindPayment:
			respond.Error(c, http.StatusPaymentRequired, ErrorCodeLLMPayment, "analysis provider requires payment", nil)
		case llm.KindRateLimit:
			respond.Error(c, http.StatusTooManyRequests, ErrorCodeLLMRateLimited, "analysis provider rate limit exceeded, try again later", nil)
		default:
			respond.Error(c, http.StatusBadGateway, ErrorCodeLLMError, "analysis provider error", gin.H{"status": apiErr.StatusCode})
		}
	case errors.Is(err, llm.ErrInvalidResponse):
		respond.Error(c, http.StatusBadGateway, ErrorCodeLLMInvalidResponse, "analysis provider returned an invalid response", nil)
	case errors.Is(err, ErrMalformedResult):
		respond.Error(c, http.StatusBadGateway, ErrorCodeLLMSchemaMismatch, "analysis result did not match the expected format", nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, ErrorCodeLLMTimeout, "analysis timed out", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, fallback, nil)
	}
}
