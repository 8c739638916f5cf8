package interviews

import (
	"context"
	"time"
)

// Repo persists sessions and results.
type Repo interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, recruiterID, id string) (Session, error)
	GetSessionByPublicID(ctx context.Context, publicID string) (Session, error)
	GetSessionByCallID(ctx context.Context, callID string) (Session, error)
	ListSessions(ctx context.Context, recruiterID string) ([]Session, error)
	// MarkStarted moves a scheduled session to in_progress; any other status is ErrInvalidTransition.
	MarkStarted(ctx context.Context, id, candidateName string, at time.Time) error
	SetCallID(ctx context.Context, id, callID string) error
	// Complete stores the result and marks the session completed atomically.
	Complete(ctx context.Context, r Result) error
	// ListStale returns in_progress sessions started before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]Session, error)
	// ResetToScheduled moves an in_progress session back to scheduled.
	ResetToScheduled(ctx context.Context, id string) error
	GetResult(ctx context.Context, sessionID string) (Result, error)
	UpdateDecision(ctx context.Context, sessionID string, d Decision) error
}
