package candidates

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps the pipeline in memory with the default status lookup.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[string]Candidate
	statuses []Status
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]Candidate{}, statuses: DefaultStatuses()}
}

func (r *MemoryRepo) Add(ctx context.Context, c Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.SubmissionID != "" {
		for _, existing := range r.byID {
			if existing.SubmissionID == c.SubmissionID {
				return ErrDuplicate
			}
		}
	}
	r.byID[c.ID] = c
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, ownerID, id string) (Candidate, error) {
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok || c.OwnerID != ownerID {
		return Candidate{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) List(ctx context.Context, ownerID string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Candidate
	for _, c := range r.byID {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, ownerID, id, status string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = at
	r.byID[id] = c
	return nil
}

func (r *MemoryRepo) Remove(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepo) ListStatuses(ctx context.Context) ([]Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Status(nil), r.statuses...), nil
}
