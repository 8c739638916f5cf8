package analyses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores screenings in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Screening
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Screening)}
}

func (r *MemoryRepo) Create(ctx context.Context, s Screening) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, recruiterID, id string) (Screening, error) {
	if err := ctx.Err(); err != nil {
		return Screening{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok || s.RecruiterID != recruiterID {
		return Screening{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) ListByRecruiter(ctx context.Context, recruiterID string, limit, offset int) ([]Screening, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Screening
	for _, s := range r.byID {
		if s.RecruiterID == recruiterID {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, recruiterID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || s.RecruiterID != recruiterID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
