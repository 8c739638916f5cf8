package interviews

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores sessions and results in memory.
type MemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
	results  map[string]Result
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: map[string]Session{}, results: map[string]Result{}}
}

func (r *MemoryRepo) CreateSession(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *MemoryRepo) GetSession(ctx context.Context, recruiterID, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || (recruiterID != "" && s.RecruiterID != recruiterID) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) find(match func(Session) bool) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if match(s) {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}

func (r *MemoryRepo) GetSessionByPublicID(ctx context.Context, publicID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	return r.find(func(s Session) bool { return s.PublicID == publicID })
}

func (r *MemoryRepo) GetSessionByCallID(ctx context.Context, callID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if callID == "" {
		return Session{}, ErrNotFound
	}
	return r.find(func(s Session) bool { return s.CallID == callID })
}

func (r *MemoryRepo) ListSessions(ctx context.Context, recruiterID string) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Session
	for _, s := range r.sessions {
		if s.RecruiterID == recruiterID {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) update(id string, fn func(*Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&s); err != nil {
		return err
	}
	r.sessions[id] = s
	return nil
}

func (r *MemoryRepo) MarkStarted(ctx context.Context, id, candidateName string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(id, func(s *Session) error {
		if s.Status != StatusScheduled {
			return ErrInvalidTransition
		}
		s.Status = StatusInProgress
		s.StartedAt = &at
		if candidateName != "" {
			s.CandidateName = candidateName
		}
		return nil
	})
}

func (r *MemoryRepo) SetCallID(ctx context.Context, id, callID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(id, func(s *Session) error {
		s.CallID = callID
		return nil
	})
}

func (r *MemoryRepo) Complete(ctx context.Context, res Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[res.SessionID]
	if !ok {
		return ErrNotFound
	}
	if s.Status == StatusCompleted {
		return ErrInvalidTransition
	}
	completed := res.CompletedAt
	s.Status = StatusCompleted
	s.CompletedAt = &completed
	r.sessions[s.ID] = s
	r.results[res.SessionID] = res
	return nil
}

func (r *MemoryRepo) ListStale(ctx context.Context, cutoff time.Time) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Session
	for _, s := range r.sessions {
		if s.Status == StatusInProgress && s.StartedAt != nil && s.StartedAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ResetToScheduled(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.update(id, func(s *Session) error {
		if s.Status != StatusInProgress {
			return ErrInvalidTransition
		}
		s.Status = StatusScheduled
		s.StartedAt = nil
		return nil
	})
}

func (r *MemoryRepo) GetResult(ctx context.Context, sessionID string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.results[sessionID]
	if !ok {
		return Result{}, ErrNotFound
	}
	return res, nil
}

func (r *MemoryRepo) UpdateDecision(ctx context.Context, sessionID string, d Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[sessionID]
	if !ok {
		return ErrNotFound
	}
	res.Decision = d
	r.results[sessionID] = res
	return nil
}
