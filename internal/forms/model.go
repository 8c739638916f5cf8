package forms

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTextarea FieldType = "textarea"
	FieldFile     FieldType = "file"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldPhone    FieldType = "phone"
	FieldURL      FieldType = "url"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldEmail, FieldTextarea, FieldFile, FieldSelect, FieldCheckbox,
		FieldRadio, FieldNumber, FieldDate, FieldPhone, FieldURL:
		return true
	}
	return false
}

type SubmissionStatus string

const (
	StatusNew         SubmissionStatus = "new"
	StatusReviewed    SubmissionStatus = "reviewed"
	StatusShortlisted SubmissionStatus = "shortlisted"
	StatusRejected    SubmissionStatus = "rejected"
)

// ParseSubmissionStatus accepts the four review states case-insensitively.
func ParseSubmissionStatus(s string) (SubmissionStatus, bool) {
	switch st := SubmissionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusNew, StatusReviewed, StatusShortlisted, StatusRejected:
		return st, true
	}
	return "", false
}

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrSlugTaken           = errors.New("slug already in use")
	ErrUploadFailed        = errors.New("file upload failed")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeDuplicate  = "DUPLICATE_SUBMISSION"
	ErrorCodeTooLarge   = "FILE_TOO_LARGE"
	ErrorCodeUpload     = "UPLOAD_FAILED"
	ErrorCodeConflict   = "CONFLICT"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)

// Form is a recruiter-built application form.
type Form struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Slug        string         `json:"slug"`
	IsActive    bool           `json:"isActive"`
	Settings    map[string]any `json:"settings"`
	Fields      []Field        `json:"fields"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Field is one input on a form.
type Field struct {
	ID              string         `json:"id"`
	FormID          string         `json:"formId"`
	Type            FieldType      `json:"fieldType"`
	Label           string         `json:"label"`
	Placeholder     string         `json:"placeholder"`
	Required        bool           `json:"isRequired"`
	Options         []string       `json:"options"`
	ValidationRules map[string]any `json:"validationRules"`
	OrderIndex      int            `json:"orderIndex"`
}

// Submission is one candidate's application.
type Submission struct {
	ID             string           `json:"id"`
	FormID         string           `json:"formId"`
	CandidateName  string           `json:"candidateName"`
	CandidateEmail string           `json:"candidateEmail"`
	Status         SubmissionStatus `json:"status"`
	Responses      []Response       `json:"responses"`
	SubmittedAt    time.Time        `json:"submittedAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Response is the answer to one field. File answers carry the stored object key.
type Response struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submissionId"`
	FieldID      string `json:"fieldId"`
	Value        string `json:"value"`
	FileKey      string `json:"fileKey,omitempty"`
}

// ValidationFailure reports one field that failed validation.
type ValidationFailure struct {
	FieldID string `json:"fieldId"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// ValidationError collects every failing field of a submission.
type ValidationError struct {
	Failures []ValidationFailure
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %s", f.Label, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
