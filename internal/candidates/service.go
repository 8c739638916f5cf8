package candidates

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"recruitai-backend/internal/shared/telemetry"
)

// Service manages the candidate pipeline.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// AddInput creates a pipeline entry, optionally linked to a form submission.
type AddInput struct {
	CandidateName  string
	CandidateEmail string
	Status         string
	SubmissionID   string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Add validates and stores a new entry. A blank status means DefaultStatus.
func (s *Service) Add(ctx context.Context, ownerID string, in AddInput) (Candidate, error) {
	name := strings.TrimSpace(in.CandidateName)
	email := strings.TrimSpace(in.CandidateEmail)
	if name == "" {
		return Candidate{}, fmt.Errorf("%w: candidateName is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Candidate{}, fmt.Errorf("%w: candidateEmail is invalid", ErrInvalidInput)
	}
	status := DefaultStatus
	if strings.TrimSpace(in.Status) != "" {
		canonical, err := s.canonicalStatus(ctx, in.Status)
		if err != nil {
			return Candidate{}, err
		}
		status = canonical
	}
	now := s.now()
	c := Candidate{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		CandidateName:  name,
		CandidateEmail: email,
		Status:         status,
		SubmissionID:   strings.TrimSpace(in.SubmissionID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Add(ctx, c); err != nil {
		return Candidate{}, err
	}
	telemetry.Info("candidate.added", map[string]any{"candidate_id": c.ID, "owner_id": ownerID, "from_submission": c.SubmissionID != ""})
	return c, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Candidate, error) {
	return s.Repo.List(ctx, ownerID)
}

// UpdateStatus sets a new stage. Concurrent updates are not merged; the last one stands.
func (s *Service) UpdateStatus(ctx context.Context, ownerID, id, status string) (Candidate, error) {
	canonical, err := s.canonicalStatus(ctx, status)
	if err != nil {
		return Candidate{}, err
	}
	if err := s.Repo.UpdateStatus(ctx, ownerID, id, canonical, s.now()); err != nil {
		return Candidate{}, err
	}
	return s.Repo.Get(ctx, ownerID, id)
}

func (s *Service) Remove(ctx context.Context, ownerID, id string) error {
	return s.Repo.Remove(ctx, ownerID, id)
}

func (s *Service) Statuses(ctx context.Context) ([]Status, error) {
	return s.Repo.ListStatuses(ctx)
}

func (s *Service) canonicalStatus(ctx context.Context, status string) (string, error) {
	want := strings.TrimSpace(status)
	statuses, err := s.Repo.ListStatuses(ctx)
	if err != nil {
		return "", err
	}
	for _, st := range statuses {
		if strings.EqualFold(st.Name, want) {
			return st.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, want)
}
