package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recruitai-backend/internal/shared/telemetry"
)

const (
	defaultFullName = "User"
	defaultCompany  = "Unknown Company"
)

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Identity is what the auth token says about the caller.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// ProfileInput carries the onboarding answers.
type ProfileInput struct {
	FullName string
	Company  string
	JobTitle string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CompleteOnboarding stores the recruiter profile and marks it onboarded. A blank name
// falls back to the token name, then the company.
func (s *Service) CompleteOnboarding(ctx context.Context, id Identity, in ProfileInput) (User, error) {
	if strings.TrimSpace(id.ID) == "" || strings.TrimSpace(id.Email) == "" {
		return User{}, fmt.Errorf("%w: user id and email are required", ErrInvalidInput)
	}
	company := strings.TrimSpace(in.Company)
	fullName := firstNonBlank(in.FullName, id.Name, company, defaultFullName)
	if company == "" {
		company = defaultCompany
	}
	now := s.now()
	user, err := s.Repo.Upsert(ctx, User{
		ID:        id.ID,
		Email:     strings.TrimSpace(id.Email),
		FullName:  fullName,
		Company:   company,
		JobTitle:  strings.TrimSpace(in.JobTitle),
		Onboarded: true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return User{}, err
	}
	telemetry.Info("user.onboarded", map[string]any{"user_id": user.ID})
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
