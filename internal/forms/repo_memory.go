package forms

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps forms and submissions in memory.
type MemoryRepo struct {
	mu          sync.RWMutex
	forms       map[string]Form
	submissions map[string]Submission
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{forms: map[string]Form{}, submissions: map[string]Submission{}}
}

func cloneForm(f Form) Form {
	f.Fields = append([]Field(nil), f.Fields...)
	sort.SliceStable(f.Fields, func(i, j int) bool { return f.Fields[i].OrderIndex < f.Fields[j].OrderIndex })
	return f
}

func (r *MemoryRepo) CreateForm(ctx context.Context, f Form) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.forms {
		if existing.Slug == f.Slug {
			return ErrSlugTaken
		}
	}
	r.forms[f.ID] = cloneForm(f)
	return nil
}

func (r *MemoryRepo) GetForm(ctx context.Context, ownerID, id string) (Form, error) {
	if err := ctx.Err(); err != nil {
		return Form{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[id]
	if !ok || (ownerID != "" && f.OwnerID != ownerID) {
		return Form{}, ErrNotFound
	}
	return cloneForm(f), nil
}

func (r *MemoryRepo) GetFormBySlug(ctx context.Context, slug string) (Form, error) {
	if err := ctx.Err(); err != nil {
		return Form{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.forms {
		if f.Slug == slug {
			return cloneForm(f), nil
		}
	}
	return Form{}, ErrNotFound
}

func (r *MemoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := r.GetFormBySlug(ctx, slug)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *MemoryRepo) ListForms(ctx context.Context, ownerID string) ([]Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Form
	for _, f := range r.forms {
		if f.OwnerID == ownerID {
			out = append(out, cloneForm(f))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) UpdateForm(ctx context.Context, f Form) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.forms[f.ID]
	if !ok || existing.OwnerID != f.OwnerID {
		return ErrNotFound
	}
	existing.Title = f.Title
	existing.Description = f.Description
	existing.Settings = f.Settings
	existing.IsActive = f.IsActive
	existing.UpdatedAt = f.UpdatedAt
	r.forms[f.ID] = existing
	return nil
}

func (r *MemoryRepo) DeleteForm(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.forms[id]
	if !ok || f.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.forms, id)
	for sid, s := range r.submissions {
		if s.FormID == id {
			delete(r.submissions, sid)
		}
	}
	return nil
}

func (r *MemoryRepo) withForm(formID string, fn func(*Form) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.forms[formID]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&f); err != nil {
		return err
	}
	r.forms[formID] = f
	return nil
}

func (r *MemoryRepo) AddField(ctx context.Context, field Field) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.withForm(field.FormID, func(f *Form) error {
		f.Fields = append(f.Fields, field)
		return nil
	})
}

func (r *MemoryRepo) UpdateField(ctx context.Context, field Field) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.withForm(field.FormID, func(f *Form) error {
		for i := range f.Fields {
			if f.Fields[i].ID == field.ID {
				f.Fields[i] = field
				return nil
			}
		}
		return ErrNotFound
	})
}

func (r *MemoryRepo) DeleteField(ctx context.Context, formID, fieldID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.withForm(formID, func(f *Form) error {
		for i := range f.Fields {
			if f.Fields[i].ID == fieldID {
				f.Fields = append(f.Fields[:i:i], f.Fields[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (r *MemoryRepo) ReorderFields(ctx context.Context, formID string, fieldIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.withForm(formID, func(f *Form) error {
		pos := make(map[string]int, len(fieldIDs))
		for i, id := range fieldIDs {
			pos[id] = i
		}
		for i := range f.Fields {
			idx, ok := pos[f.Fields[i].ID]
			if !ok {
				return ErrNotFound
			}
			f.Fields[i].OrderIndex = idx
		}
		return nil
	})
}

func (r *MemoryRepo) CreateSubmission(ctx context.Context, s Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forms[s.FormID]; !ok {
		return ErrNotFound
	}
	s.Responses = append([]Response(nil), s.Responses...)
	r.submissions[s.ID] = s
	return nil
}

func (r *MemoryRepo) GetSubmission(ctx context.Context, id string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.submissions[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) ListSubmissions(ctx context.Context, formID string) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Submission
	for _, s := range r.submissions {
		if s.FormID == formID {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (r *MemoryRepo) UpdateSubmissionStatus(ctx context.Context, id string, status SubmissionStatus, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = at
	r.submissions[id] = s
	return nil
}
