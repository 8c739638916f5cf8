package forms

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recruitai-backend/internal/candidates"
	"recruitai-backend/internal/shared/server/middleware"
	"recruitai-backend/internal/shared/server/respond"
)

const (
	// MaxFileBytes caps each uploaded file.
	MaxFileBytes = 10 << 20
	// maxSubmissionBytes caps the whole multipart body.
	maxSubmissionBytes = 25 << 20
)

var errFileTooLarge = errors.New("file exceeds 10MB limit")

// Handler wires HTTP handlers to the form service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the recruiter builder and review routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/forms", h.createForm)
	rg.GET("/forms", h.listForms)
	rg.GET("/forms/:id", h.getForm)
	rg.PATCH("/forms/:id", h.updateForm)
	rg.POST("/forms/:id/toggle", h.toggleForm)
	rg.DELETE("/forms/:id", h.deleteForm)

	rg.POST("/forms/:id/fields", h.addField)
	rg.PUT("/forms/:id/fields/order", h.reorderFields)
	rg.PATCH("/forms/:id/fields/:fieldId", h.updateField)
	rg.DELETE("/forms/:id/fields/:fieldId", h.deleteField)

	rg.GET("/forms/:id/submissions", h.listSubmissions)
	rg.PATCH("/submissions/:id/status", h.updateSubmissionStatus)
	rg.POST("/submissions/:id/pipeline", h.moveToPipeline)
}

// RegisterPublicRoutes attaches the unauthenticated application routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/apply/:slug", h.publicForm)
	rg.POST("/apply/:slug", h.submit)
}

type formRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Settings    map[string]any `json:"settings"`
	IsActive    *bool          `json:"isActive"`
}

func (r formRequest) input() FormInput {
	return FormInput{Title: r.Title, Description: r.Description, Settings: r.Settings, IsActive: r.IsActive}
}

func (h *Handler) createForm(c *gin.Context) {
	var req formRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	form, err := h.Svc.CreateForm(c.Request.Context(), middleware.UserIDFromContext(c), req.input())
	if err != nil {
		writeError(c, err, "failed to create form")
		return
	}
	c.Set(middleware.FormIDKey, form.ID)
	respond.Created(c, form)
}

func (h *Handler) listForms(c *gin.Context) {
	forms, err := h.Svc.ListForms(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list forms")
		return
	}
	if forms == nil {
		forms = []Form{}
	}
	respond.OK(c, forms)
}

func (h *Handler) getForm(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	form, err := h.Svc.GetForm(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to fetch form")
		return
	}
	respond.OK(c, form)
}

func (h *Handler) updateForm(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	var req formRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	form, err := h.Svc.UpdateForm(c.Request.Context(), middleware.UserIDFromContext(c), id, req.input())
	if err != nil {
		writeError(c, err, "failed to update form")
		return
	}
	respond.OK(c, form)
}

func (h *Handler) toggleForm(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	form, err := h.Svc.ToggleActive(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to update form")
		return
	}
	respond.OK(c, form)
}

func (h *Handler) deleteForm(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	if err := h.Svc.DeleteForm(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete form")
		return
	}
	respond.NoContent(c)
}

type fieldRequest struct {
	Type            FieldType      `json:"fieldType"`
	Label           string         `json:"label"`
	Placeholder     string         `json:"placeholder"`
	Required        bool           `json:"isRequired"`
	Options         []string       `json:"options"`
	ValidationRules map[string]any `json:"validationRules"`
}

func (h *Handler) bindField(c *gin.Context) (FieldInput, bool) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return FieldInput{}, false
	}
	return FieldInput(req), true
}

func (h *Handler) addField(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	in, ok := h.bindField(c)
	if !ok {
		return
	}
	field, err := h.Svc.AddField(c.Request.Context(), middleware.UserIDFromContext(c), id, in)
	if err != nil {
		writeError(c, err, "failed to add field")
		return
	}
	respond.Created(c, field)
}

func (h *Handler) updateField(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	in, ok := h.bindField(c)
	if !ok {
		return
	}
	field, err := h.Svc.UpdateField(c.Request.Context(), middleware.UserIDFromContext(c), id, c.Param("fieldId"), in)
	if err != nil {
		writeError(c, err, "failed to update field")
		return
	}
	respond.OK(c, field)
}

func (h *Handler) deleteField(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	if err := h.Svc.DeleteField(c.Request.Context(), middleware.UserIDFromContext(c), id, c.Param("fieldId")); err != nil {
		writeError(c, err, "failed to delete field")
		return
	}
	respond.NoContent(c)
}

type reorderRequest struct {
	FieldIDs []string `json:"fieldIds"`
}

func (h *Handler) reorderFields(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	form, err := h.Svc.ReorderFields(c.Request.Context(), middleware.UserIDFromContext(c), id, req.FieldIDs)
	if err != nil {
		writeError(c, err, "failed to reorder fields")
		return
	}
	respond.OK(c, form)
}

func (h *Handler) listSubmissions(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.FormIDKey, id)
	subs, err := h.Svc.ListSubmissions(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to list submissions")
		return
	}
	if subs == nil {
		subs = []Submission{}
	}
	respond.OK(c, subs)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateSubmissionStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}
	sub, err := h.Svc.UpdateSubmissionStatus(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err, "failed to update submission")
		return
	}
	respond.OK(c, sub)
}

func (h *Handler) moveToPipeline(c *gin.Context) {
	cand, err := h.Svc.MoveToPipeline(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to move candidate to pipeline")
		return
	}
	respond.Created(c, cand)
}

func (h *Handler) publicForm(c *gin.Context) {
	form, err := h.Svc.PublicForm(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err, "failed to fetch form")
		return
	}
	c.Set(middleware.FormIDKey, form.ID)
	respond.OK(c, publicView(form))
}

// publicFormView is what applicants see; owner and settings stay private.
type publicFormView struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Slug        string  `json:"slug"`
	Fields      []Field `json:"fields"`
}

func publicView(f Form) publicFormView {
	return publicFormView{ID: f.ID, Title: f.Title, Description: f.Description, Slug: f.Slug, Fields: f.Fields}
}

func (h *Handler) submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmissionBytes)
	if err := c.Request.ParseMultipartForm(MaxFileBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeTooLarge, "submission is too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "expected multipart form data", nil)
		return
	}
	in := SubmitInput{
		Values:         map[string][]string{},
		Files:          map[string]Upload{},
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	for k, v := range c.Request.MultipartForm.Value {
		in.Values[k] = v
	}
	for fieldID, headers := range c.Request.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		header := headers[0]
		if header.Size > MaxFileBytes {
			respond.Error(c, http.StatusRequestEntityTooLarge, ErrorCodeTooLarge, errFileTooLarge.Error(), []map[string]string{
				{"fieldId": fieldID, "issue": "too_large"},
			})
			return
		}
		f, err := header.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "could not read file", nil)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, MaxFileBytes+1))
		_ = f.Close()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "could not read file", nil)
			return
		}
		in.Files[fieldID] = Upload{FileName: header.Filename, Data: data}
	}

	sub, err := h.Svc.Submit(c.Request.Context(), c.Param("slug"), in)
	if err != nil {
		writeError(c, err, "failed to submit application")
		return
	}
	c.Set(middleware.FormIDKey, sub.FormID)
	respond.Created(c, gin.H{"id": sub.ID, "status": sub.Status, "submittedAt": sub.SubmittedAt})
}

func writeError(c *gin.Context, err error, fallback string) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "some fields are invalid", vErr.Failures)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, candidates.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "form not found", nil)
	case errors.Is(err, ErrDuplicateSubmission):
		respond.Error(c, http.StatusConflict, ErrorCodeDuplicate, "this application was already submitted", nil)
	case errors.Is(err, candidates.ErrDuplicate):
		respond.Error(c, http.StatusConflict, candidates.ErrorCodeDuplicate, err.Error(), nil)
	case errors.Is(err, ErrSlugTaken):
		respond.Error(c, http.StatusConflict, ErrorCodeConflict, err.Error(), nil)
	case errors.Is(err, ErrUploadFailed):
		respond.Error(c, http.StatusBadGateway, ErrorCodeUpload, "could not store uploaded file", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, fallback, nil)
	}
}
