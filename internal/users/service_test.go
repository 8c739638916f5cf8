package users

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCompleteOnboardingDefaults(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)
	now := created
	svc := &Service{Repo: NewMemoryRepo(), Now: func() time.Time { return now }}
	ctx := context.Background()

	cases := []struct {
		name     string
		identity Identity
		in       ProfileInput
		wantName string
		wantCo   string
	}{
		{"explicit name wins", Identity{ID: "u1", Email: "a@x.io", Name: "Token Name"}, ProfileInput{FullName: "Ana", Company: "Acme"}, "Ana", "Acme"},
		{"token name", Identity{ID: "u2", Email: "b@x.io", Name: "Bo"}, ProfileInput{Company: "Beta"}, "Bo", "Beta"},
		{"company as name", Identity{ID: "u3", Email: "c@x.io"}, ProfileInput{Company: "Gamma"}, "Gamma", "Gamma"},
		{"all blank", Identity{ID: "u4", Email: "d@x.io"}, ProfileInput{}, defaultFullName, defaultCompany},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := svc.CompleteOnboarding(ctx, tc.identity, tc.in)
			if err != nil {
				t.Fatalf("CompleteOnboarding: %v", err)
			}
			if u.FullName != tc.wantName || u.Company != tc.wantCo || !u.Onboarded {
				t.Fatalf("got %+v", u)
			}
		})
	}

	now = later
	u, err := svc.CompleteOnboarding(ctx, Identity{ID: "u1", Email: "a@x.io"}, ProfileInput{FullName: "Ana B", Company: "Acme"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !u.CreatedAt.Equal(created) {
		t.Fatalf("expected CreatedAt to stay %v, got %v", created, u.CreatedAt)
	}
	if !u.UpdatedAt.Equal(later) {
		t.Fatalf("expected UpdatedAt %v, got %v", later, u.UpdatedAt)
	}

	if _, err := svc.CompleteOnboarding(ctx, Identity{ID: "u5"}, ProfileInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
