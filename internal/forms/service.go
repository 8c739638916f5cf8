package forms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"recruitai-backend/internal/analyses"
	"recruitai-backend/internal/candidates"
	"recruitai-backend/internal/notify"
	"recruitai-backend/internal/shared/idempotency"
	"recruitai-backend/internal/shared/storage/object"
	"recruitai-backend/internal/shared/telemetry"
)

// Pipeline receives candidates moved out of a form's submissions.
type Pipeline interface {
	Add(ctx context.Context, ownerID string, in candidates.AddInput) (candidates.Candidate, error)
}

// ResumeParser fills in candidate details from an uploaded resume.
type ResumeParser interface {
	ParseFile(ctx context.Context, fileName string, data []byte) (analyses.CandidateProfile, error)
}

// Service implements the form builder and the public submission pipeline.
type Service struct {
	Repo      Repo
	Store     object.ObjectStore
	Guard     idempotency.Guard
	Mailer    notify.Mailer
	Pipeline  Pipeline
	Parser    ResumeParser
	DedupeTTL time.Duration
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// FormInput carries builder edits. Nil pointers leave the value unchanged.
type FormInput struct {
	Title       *string
	Description *string
	Settings    map[string]any
	IsActive    *bool
}

// FieldInput describes a field to add or replace.
type FieldInput struct {
	Type            FieldType
	Label           string
	Placeholder     string
	Required        bool
	Options         []string
	ValidationRules map[string]any
}

const slugAttempts = 5

// CreateForm creates an active form with a unique slug and the default fields.
func (s *Service) CreateForm(ctx context.Context, ownerID string, in FormInput) (Form, error) {
	title := ""
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
	}
	if title == "" {
		return Form{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	description := ""
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
	}
	settings := in.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	now := s.now()
	f := Form{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		IsActive:    true,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.Fields = DefaultFields(f.ID)

	base := Slugify(title)
	for attempt := 0; attempt < slugAttempts; attempt++ {
		slug := base
		if attempt > 0 {
			slug = base + "-" + slugSuffix()
		}
		taken, err := s.Repo.SlugExists(ctx, slug)
		if err != nil {
			return Form{}, err
		}
		if taken {
			continue
		}
		f.Slug = slug
		err = s.Repo.CreateForm(ctx, f)
		if errors.Is(err, ErrSlugTaken) {
			// Lost a race for the slug.
			continue
		}
		if err != nil {
			return Form{}, err
		}
		telemetry.Info("form.created", map[string]any{"form_id": f.ID, "owner_id": ownerID, "slug": slug})
		return f, nil
	}
	return Form{}, ErrSlugTaken
}

func (s *Service) GetForm(ctx context.Context, ownerID, id string) (Form, error) {
	return s.Repo.GetForm(ctx, ownerID, id)
}

func (s *Service) ListForms(ctx context.Context, ownerID string) ([]Form, error) {
	return s.Repo.ListForms(ctx, ownerID)
}

// UpdateForm applies builder edits to title, description, settings and the active flag.
func (s *Service) UpdateForm(ctx context.Context, ownerID, id string, in FormInput) (Form, error) {
	f, err := s.Repo.GetForm(ctx, ownerID, id)
	if err != nil {
		return Form{}, err
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return Form{}, fmt.Errorf("%w: title cannot be blank", ErrInvalidInput)
		}
		f.Title = title
	}
	if in.Description != nil {
		f.Description = strings.TrimSpace(*in.Description)
	}
	if in.Settings != nil {
		f.Settings = in.Settings
	}
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}
	f.UpdatedAt = s.now()
	if err := s.Repo.UpdateForm(ctx, f); err != nil {
		return Form{}, err
	}
	return f, nil
}

// ToggleActive flips whether the form accepts applications.
func (s *Service) ToggleActive(ctx context.Context, ownerID, id string) (Form, error) {
	f, err := s.Repo.GetForm(ctx, ownerID, id)
	if err != nil {
		return Form{}, err
	}
	active := !f.IsActive
	return s.UpdateForm(ctx, ownerID, id, FormInput{IsActive: &active})
}

func (s *Service) DeleteForm(ctx context.Context, ownerID, id string) error {
	if err := s.Repo.DeleteForm(ctx, ownerID, id); err != nil {
		return err
	}
	telemetry.Info("form.deleted", map[string]any{"form_id": id, "owner_id": ownerID})
	return nil
}

func (in FieldInput) validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown field type %q", ErrInvalidInput, in.Type)
	}
	if strings.TrimSpace(in.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidInput)
	}
	if (in.Type == FieldSelect || in.Type == FieldRadio) && len(in.Options) == 0 {
		return fmt.Errorf("%w: %s fields need options", ErrInvalidInput, in.Type)
	}
	return nil
}

func (in FieldInput) apply(f *Field) {
	f.Type = in.Type
	f.Label = strings.TrimSpace(in.Label)
	f.Placeholder = in.Placeholder
	f.Required = in.Required
	f.Options = []string{}
	for _, o := range in.Options {
		if o = strings.TrimSpace(o); o != "" {
			f.Options = append(f.Options, o)
		}
	}
	f.ValidationRules = in.ValidationRules
	if f.ValidationRules == nil {
		f.ValidationRules = map[string]any{}
	}
}

// AddField appends a field after the current last one.
func (s *Service) AddField(ctx context.Context, ownerID, formID string, in FieldInput) (Field, error) {
	if err := in.validate(); err != nil {
		return Field{}, err
	}
	form, err := s.Repo.GetForm(ctx, ownerID, formID)
	if err != nil {
		return Field{}, err
	}
	next := 0
	for _, f := range form.Fields {
		if f.OrderIndex >= next {
			next = f.OrderIndex + 1
		}
	}
	field := Field{ID: uuid.NewString(), FormID: formID, OrderIndex: next}
	in.apply(&field)
	if err := s.Repo.AddField(ctx, field); err != nil {
		return Field{}, err
	}
	return field, nil
}

func (s *Service) UpdateField(ctx context.Context, ownerID, formID, fieldID string, in FieldInput) (Field, error) {
	if err := in.validate(); err != nil {
		return Field{}, err
	}
	form, err := s.Repo.GetForm(ctx, ownerID, formID)
	if err != nil {
		return Field{}, err
	}
	for _, f := range form.Fields {
		if f.ID != fieldID {
			continue
		}
		in.apply(&f)
		if err := s.Repo.UpdateField(ctx, f); err != nil {
			return Field{}, err
		}
		return f, nil
	}
	return Field{}, ErrNotFound
}

func (s *Service) DeleteField(ctx context.Context, ownerID, formID, fieldID string) error {
	if _, err := s.Repo.GetForm(ctx, ownerID, formID); err != nil {
		return err
	}
	return s.Repo.DeleteField(ctx, formID, fieldID)
}

// ReorderFields sets the field order. fieldIDs must name every field exactly once.
func (s *Service) ReorderFields(ctx context.Context, ownerID, formID string, fieldIDs []string) (Form, error) {
	form, err := s.Repo.GetForm(ctx, ownerID, formID)
	if err != nil {
		return Form{}, err
	}
	if len(fieldIDs) != len(form.Fields) {
		return Form{}, fmt.Errorf("%w: expected %d field ids", ErrInvalidInput, len(form.Fields))
	}
	known := make(map[string]bool, len(form.Fields))
	for _, f := range form.Fields {
		known[f.ID] = true
	}
	for _, id := range fieldIDs {
		if !known[id] {
			return Form{}, fmt.Errorf("%w: unknown or repeated field %s", ErrInvalidInput, id)
		}
		delete(known, id)
	}
	if err := s.Repo.ReorderFields(ctx, formID, fieldIDs); err != nil {
		return Form{}, err
	}
	return s.Repo.GetForm(ctx, ownerID, formID)
}

// PublicForm returns an active form by slug; inactive forms are reported as not found.
func (s *Service) PublicForm(ctx context.Context, slug string) (Form, error) {
	f, err := s.Repo.GetFormBySlug(ctx, slug)
	if err != nil {
		return Form{}, err
	}
	if !f.IsActive {
		return Form{}, ErrNotFound
	}
	return f, nil
}

// ListSubmissions returns a form's submissions with their responses.
func (s *Service) ListSubmissions(ctx context.Context, ownerID, formID string) ([]Submission, error) {
	if _, err := s.Repo.GetForm(ctx, ownerID, formID); err != nil {
		return nil, err
	}
	return s.Repo.ListSubmissions(ctx, formID)
}

func (s *Service) ownedSubmission(ctx context.Context, ownerID, id string) (Submission, Form, error) {
	sub, err := s.Repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, Form{}, err
	}
	form, err := s.Repo.GetForm(ctx, ownerID, sub.FormID)
	if err != nil {
		return Submission{}, Form{}, err
	}
	return sub, form, nil
}

// UpdateSubmissionStatus overwrites the review status. Concurrent reviewers are not merged.
func (s *Service) UpdateSubmissionStatus(ctx context.Context, ownerID, id, status string) (Submission, error) {
	st, ok := ParseSubmissionStatus(status)
	if !ok {
		return Submission{}, fmt.Errorf("%w: status must be new, reviewed, shortlisted or rejected", ErrInvalidInput)
	}
	sub, _, err := s.ownedSubmission(ctx, ownerID, id)
	if err != nil {
		return Submission{}, err
	}
	now := s.now()
	if err := s.Repo.UpdateSubmissionStatus(ctx, id, st, now); err != nil {
		return Submission{}, err
	}
	sub.Status = st
	sub.UpdatedAt = now
	return sub, nil
}

// MoveToPipeline adds the submission's candidate to the recruiter's pipeline. Missing
// name or email are taken from the attached resume when a parser is configured.
func (s *Service) MoveToPipeline(ctx context.Context, ownerID, submissionID string) (candidates.Candidate, error) {
	if s.Pipeline == nil {
		return candidates.Candidate{}, errors.New("candidate pipeline is not configured")
	}
	sub, form, err := s.ownedSubmission(ctx, ownerID, submissionID)
	if err != nil {
		return candidates.Candidate{}, err
	}
	name, email := sub.CandidateName, sub.CandidateEmail
	if name == "" || email == "" {
		if profileName, profileEmail := s.profileFromResume(ctx, form, sub); profileName != "" || profileEmail != "" {
			if name == "" {
				name = profileName
			}
			if email == "" {
				email = profileEmail
			}
		}
	}
	c, err := s.Pipeline.Add(ctx, ownerID, candidates.AddInput{
		CandidateName:  name,
		CandidateEmail: email,
		SubmissionID:   sub.ID,
	})
	if err != nil {
		return candidates.Candidate{}, err
	}
	if sub.Status == StatusNew {
		if err := s.Repo.UpdateSubmissionStatus(ctx, sub.ID, StatusShortlisted, s.now()); err != nil {
			telemetry.Warn("form.shortlist_failed", map[string]any{"submission_id": sub.ID, "error": err})
		}
	}
	return c, nil
}

func (s *Service) profileFromResume(ctx context.Context, form Form, sub Submission) (string, string) {
	if s.Parser == nil || s.Store == nil {
		return "", ""
	}
	fileFields := map[string]bool{}
	for _, f := range form.Fields {
		if f.Type == FieldFile {
			fileFields[f.ID] = true
		}
	}
	for _, resp := range sub.Responses {
		if resp.FileKey == "" || !fileFields[resp.FieldID] {
			continue
		}
		data, err := s.readObject(ctx, resp.FileKey)
		if err != nil {
			telemetry.Warn("form.resume_read_failed", map[string]any{"submission_id": sub.ID, "error": err})
			continue
		}
		profile, err := s.Parser.ParseFile(ctx, resp.Value, data)
		if err != nil {
			telemetry.Warn("form.resume_parse_failed", map[string]any{"submission_id": sub.ID, "error": err})
			continue
		}
		return strings.TrimSpace(profile.Candidate.Name), strings.TrimSpace(profile.Candidate.Email)
	}
	return "", ""
}
