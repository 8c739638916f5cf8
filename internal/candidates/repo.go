package candidates

import (
	"context"
	"time"
)

// Repo persists pipeline entries and reads the status lookup.
type Repo interface {
	Add(ctx context.Context, c Candidate) error
	Get(ctx context.Context, ownerID, id string) (Candidate, error)
	List(ctx context.Context, ownerID string) ([]Candidate, error)
	UpdateStatus(ctx context.Context, ownerID, id, status string, at time.Time) error
	Remove(ctx context.Context, ownerID, id string) error
	ListStatuses(ctx context.Context) ([]Status, error)
}
