package analyses

import "context"

// Repo defines persistence operations for screenings. Reads and deletes are scoped to the recruiter.
type Repo interface {
	Create(ctx context.Context, s Screening) error
	Get(ctx context.Context, recruiterID, id string) (Screening, error)
	ListByRecruiter(ctx context.Context, recruiterID string, limit, offset int) ([]Screening, error)
	Delete(ctx context.Context, recruiterID, id string) error
}
