package candidates

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnknownStatus = errors.New("unknown candidate status")
	ErrDuplicate     = errors.New("submission already in pipeline")
)

const (
	ErrorCodeValidation    = "VALIDATION_ERROR"
	ErrorCodeNotFound      = "NOT_FOUND"
	ErrorCodeUnknownStatus = "UNKNOWN_STATUS"
	ErrorCodeDuplicate     = "ALREADY_IN_PIPELINE"
	ErrorCodeInternal      = "INTERNAL_ERROR"
)

// DefaultStatus is assigned to new pipeline entries.
const DefaultStatus = "New"

// Candidate is one person in a recruiter's hiring pipeline.
type Candidate struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"ownerId"`
	CandidateName  string    `json:"candidateName"`
	CandidateEmail string    `json:"candidateEmail"`
	Status         string    `json:"status"`
	SubmissionID   string    `json:"submissionId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Status is a pipeline stage.
type Status struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	OrderIndex int    `json:"orderIndex"`
}

// DefaultStatuses mirrors the seeded lookup table.
func DefaultStatuses() []Status {
	names := []string{"New", "Screening", "Interview", "Offer", "Hired", "Rejected"}
	out := make([]Status, len(names))
	for i, n := range names {
		out[i] = Status{ID: i + 1, Name: n, OrderIndex: i}
	}
	return out
}
