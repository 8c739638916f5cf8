package forms

import (
	"context"
	"time"
)

// Repo persists forms, their fields and submissions.
type Repo interface {
	// CreateForm stores the form and its initial fields together.
	CreateForm(ctx context.Context, f Form) error
	// GetForm loads a form with fields ordered by order_index. An empty ownerID skips the owner check.
	GetForm(ctx context.Context, ownerID, id string) (Form, error)
	GetFormBySlug(ctx context.Context, slug string) (Form, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListForms(ctx context.Context, ownerID string) ([]Form, error)
	UpdateForm(ctx context.Context, f Form) error
	DeleteForm(ctx context.Context, ownerID, id string) error

	AddField(ctx context.Context, f Field) error
	UpdateField(ctx context.Context, f Field) error
	DeleteField(ctx context.Context, formID, fieldID string) error
	// ReorderFields assigns order_index by position in fieldIDs.
	ReorderFields(ctx context.Context, formID string, fieldIDs []string) error

	// CreateSubmission stores the submission and all responses atomically.
	CreateSubmission(ctx context.Context, s Submission) error
	GetSubmission(ctx context.Context, id string) (Submission, error)
	ListSubmissions(ctx context.Context, formID string) ([]Submission, error)
	UpdateSubmissionStatus(ctx context.Context, id string, status SubmissionStatus, at time.Time) error
}
