package forms

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"recruitai-backend/internal/notify"
	"recruitai-backend/internal/shared/metrics"
	"recruitai-backend/internal/shared/telemetry"
	"recruitai-backend/internal/shared/util"
)

// DefaultDedupeTTL is how long a submission key blocks repeats.
const DefaultDedupeTTL = 10 * time.Minute

// Upload is a file attached to a submission.
type Upload struct {
	FileName string
	Data     []byte
}

// SubmitInput is a public application keyed by field id.
type SubmitInput struct {
	Values         map[string][]string
	Files          map[string]Upload
	IdempotencyKey string
}

// Submit validates, uploads files, and stores the submission with its responses in one
// transaction. On any failure after uploading, the uploaded objects are removed.
func (s *Service) Submit(ctx context.Context, slug string, in SubmitInput) (Submission, error) {
	form, err := s.PublicForm(ctx, slug)
	if err != nil {
		return Submission{}, err
	}

	if failures := validateSubmission(form, in); len(failures) > 0 {
		metrics.IncSubmission("invalid")
		return Submission{}, &ValidationError{Failures: failures}
	}
	name, email := candidateIdentity(form, in)

	release, err := s.claim(ctx, form, slug, email, in.IdempotencyKey)
	if err != nil {
		metrics.IncSubmission("duplicate")
		return Submission{}, err
	}

	now := s.now()
	sub := Submission{
		ID:             uuid.NewString(),
		FormID:         form.ID,
		CandidateName:  name,
		CandidateEmail: email,
		Status:         StatusNew,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}

	var uploaded []string
	fail := func(err error) (Submission, error) {
		s.compensate(uploaded)
		release()
		metrics.IncSubmission("failed")
		telemetry.Error("form.submission_failed", map[string]any{"form_id": form.ID, "submission_id": sub.ID, "error": err})
		return Submission{}, err
	}

	for _, field := range form.Fields {
		if field.Type == FieldFile {
			up, ok := in.Files[field.ID]
			if !ok {
				continue
			}
			key, fileName, err := s.upload(ctx, form.ID, sub.ID, field.ID, now, up)
			if err != nil {
				return fail(err)
			}
			uploaded = append(uploaded, key)
			sub.Responses = append(sub.Responses, Response{
				ID: uuid.NewString(), SubmissionID: sub.ID, FieldID: field.ID, Value: fileName, FileKey: key,
			})
			continue
		}
		values := nonBlank(in.Values[field.ID])
		if len(values) == 0 {
			continue
		}
		sub.Responses = append(sub.Responses, Response{
			ID: uuid.NewString(), SubmissionID: sub.ID, FieldID: field.ID, Value: strings.Join(values, ", "),
		})
	}

	if err := s.Repo.CreateSubmission(ctx, sub); err != nil {
		return fail(err)
	}

	metrics.IncSubmission("accepted")
	telemetry.Info("form.submission_created", map[string]any{
		"form_id":       form.ID,
		"submission_id": sub.ID,
		"files":         len(uploaded),
	})
	if s.Mailer != nil && email != "" {
		err := s.Mailer.SendConfirmation(ctx, notify.Confirmation{
			To:            email,
			CandidateName: name,
			FormTitle:     form.Title,
			SubmissionID:  sub.ID,
		})
		if err != nil {
			telemetry.Warn("form.confirmation_failed", map[string]any{"submission_id": sub.ID, "error": err})
		}
	}
	return sub, nil
}

func validateSubmission(form Form, in SubmitInput) []ValidationFailure {
	var failures []ValidationFailure
	for _, f := range form.Fields {
		if f.Type == FieldFile {
			up, ok := in.Files[f.ID]
			if f.Required && (!ok || len(up.Data) == 0) {
				failures = append(failures, ValidationFailure{FieldID: f.ID, Label: f.Label, Message: "file is required"})
			}
			continue
		}
		values := nonBlank(in.Values[f.ID])
		if f.Required && len(values) == 0 {
			failures = append(failures, ValidationFailure{FieldID: f.ID, Label: f.Label, Message: "is required"})
			continue
		}
		if msg := validateValue(f, values); msg != "" {
			failures = append(failures, ValidationFailure{FieldID: f.ID, Label: f.Label, Message: msg})
		}
	}
	return failures
}

// candidateIdentity reads the email-typed field and the first name-labelled text field.
func candidateIdentity(form Form, in SubmitInput) (name, email string) {
	for _, f := range form.Fields {
		values := nonBlank(in.Values[f.ID])
		if len(values) == 0 {
			continue
		}
		switch {
		case f.Type == FieldEmail && email == "":
			email = values[0]
		case f.Type == FieldText && name == "" && isNameLabel(f.Label):
			name = values[0]
		}
	}
	return name, email
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// claim reserves the submission key. The returned func releases it so a failed attempt
// can be retried.
func (s *Service) claim(ctx context.Context, form Form, slug, email, explicit string) (func(), error) {
	noop := func() {}
	if s.Guard == nil {
		return noop, nil
	}
	key := strings.TrimSpace(explicit)
	if key == "" {
		if email == "" {
			return noop, nil
		}
		key = util.HashUserKey(slug + "|" + strings.ToLower(email))
	}
	key = "submission:" + form.ID + ":" + key
	ttl := s.DedupeTTL
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	ok, err := s.Guard.Claim(ctx, key, ttl)
	if err != nil {
		// Duplicate detection is best effort; an unavailable guard must not block applications.
		telemetry.Warn("form.dedupe_unavailable", map[string]any{"form_id": form.ID, "error": err})
		return noop, nil
	}
	if !ok {
		return nil, ErrDuplicateSubmission
	}
	return func() {
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Guard.Release(relCtx, key); err != nil {
			telemetry.Warn("form.dedupe_release_failed", map[string]any{"form_id": form.ID, "error": err})
		}
	}, nil
}

func (s *Service) upload(ctx context.Context, formID, submissionID, fieldID string, now time.Time, up Upload) (string, string, error) {
	if s.Store == nil {
		return "", "", fmt.Errorf("%w: no object store", ErrUploadFailed)
	}
	name, err := util.SanitizeFileName(up.FileName)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	// Submission and field prefixes keep equally named files apart, within one submission too.
	key := fmt.Sprintf("resumes/%s/%d_%s-%s-%s", formID, now.Unix(), shortID(submissionID), shortID(fieldID), name)
	if _, err := s.Store.SaveWithKey(ctx, key, http.DetectContentType(up.Data), bytes.NewReader(up.Data)); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return key, name, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (s *Service) compensate(keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := s.Store.Delete(ctx, key); err != nil {
			telemetry.Error("form.compensation_failed", map[string]any{"key": key, "error": err})
		}
	}
}

func (s *Service) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
