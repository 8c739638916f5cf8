package candidates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	clock := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	return &Service{
		Repo: NewMemoryRepo(),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}
}

func TestAddDefaultsStatus(t *testing.T) {
	svc := newService()
	c, err := svc.Add(context.Background(), "rec-1", AddInput{CandidateName: " Jane ", CandidateEmail: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", c.CandidateName)
	assert.Equal(t, DefaultStatus, c.Status)
}

func TestAddValidation(t *testing.T) {
	svc := newService()
	tests := []struct {
		name string
		in   AddInput
		want error
	}{
		{name: "missing name", in: AddInput{CandidateEmail: "a@b.co"}, want: ErrInvalidInput},
		{name: "bad email", in: AddInput{CandidateName: "A", CandidateEmail: "nope"}, want: ErrInvalidInput},
		{name: "unknown status", in: AddInput{CandidateName: "A", CandidateEmail: "a@b.co", Status: "Ghosted"}, want: ErrUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), "rec-1", tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAddRejectsDuplicateSubmission(t *testing.T) {
	svc := newService()
	in := AddInput{CandidateName: "Jane", CandidateEmail: "jane@example.com", SubmissionID: "sub-1"}
	_, err := svc.Add(context.Background(), "rec-1", in)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "rec-1", in)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUpdateStatusLastWriteWins(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	c, err := svc.Add(ctx, "rec-1", AddInput{CandidateName: "Jane", CandidateEmail: "jane@example.com"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, "rec-1", c.ID, "interview")
	require.NoError(t, err)
	got, err := svc.UpdateStatus(ctx, "rec-1", c.ID, "Offer")
	require.NoError(t, err)
	assert.Equal(t, "Offer", got.Status)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt))

	_, err = svc.UpdateStatus(ctx, "rec-2", c.ID, "Hired")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateStatus(ctx, "rec-1", c.ID, "Maybe")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestListAndRemove(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	first, err := svc.Add(ctx, "rec-1", AddInput{CandidateName: "A", CandidateEmail: "a@example.com"})
	require.NoError(t, err)
	second, err := svc.Add(ctx, "rec-1", AddInput{CandidateName: "B", CandidateEmail: "b@example.com"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "rec-2", AddInput{CandidateName: "C", CandidateEmail: "c@example.com"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	require.NoError(t, svc.Remove(ctx, "rec-1", first.ID))
	assert.ErrorIs(t, svc.Remove(ctx, "rec-1", first.ID), ErrNotFound)

	statuses, err := svc.Statuses(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 6)
}
