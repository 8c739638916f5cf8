package forms

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitai-backend/internal/analyses"
	"recruitai-backend/internal/candidates"
	"recruitai-backend/internal/notify"
	"recruitai-backend/internal/shared/idempotency"
	"recruitai-backend/internal/shared/storage/object"
	"recruitai-backend/internal/shared/storage/object/local"
)

type recordingStore struct {
	object.ObjectStore
	mu    sync.Mutex
	live  map[string]bool
	saves int
	// failAt makes the n-th save (1-based) fail; zero disables it.
	failAt int
}

func newRecordingStore(t *testing.T) *recordingStore {
	return &recordingStore{ObjectStore: local.New(t.TempDir()), live: map[string]bool{}}
}

func (s *recordingStore) SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	s.mu.Lock()
	s.saves++
	fail := s.failAt > 0 && s.saves == s.failAt
	s.mu.Unlock()
	if fail {
		return 0, errors.New("bucket unavailable")
	}
	n, err := s.ObjectStore.SaveWithKey(ctx, key, contentType, r)
	if err == nil {
		s.mu.Lock()
		s.live[key] = true
		s.mu.Unlock()
	}
	return n, err
}

func (s *recordingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.live, key)
	s.mu.Unlock()
	return s.ObjectStore.Delete(ctx, key)
}

func (s *recordingStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.live {
		out = append(out, k)
	}
	return out
}

// flakyRepo fails submission inserts while failing is set.
type flakyRepo struct {
	*MemoryRepo
	mu      sync.Mutex
	failing bool
}

func (r *flakyRepo) setFailing(v bool) {
	r.mu.Lock()
	r.failing = v
	r.mu.Unlock()
}

func (r *flakyRepo) CreateSubmission(ctx context.Context, s Submission) error {
	r.mu.Lock()
	failing := r.failing
	r.mu.Unlock()
	if failing {
		return errors.New("insert failed")
	}
	return r.MemoryRepo.CreateSubmission(ctx, s)
}

type fakeParser struct {
	profile  analyses.CandidateProfile
	fileName string
	data     []byte
}

func (p *fakeParser) ParseFile(ctx context.Context, fileName string, data []byte) (analyses.CandidateProfile, error) {
	p.fileName = fileName
	p.data = data
	return p.profile, nil
}

type testEnv struct {
	svc        *Service
	repo       *flakyRepo
	store      *recordingStore
	mailer     *notify.LogMailer
	candidates *candidates.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := &flakyRepo{MemoryRepo: NewMemoryRepo()}
	store := newRecordingStore(t)
	mailer := notify.NewLogMailer()
	pipeline := &candidates.Service{Repo: candidates.NewMemoryRepo()}
	fixed := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	return &testEnv{
		svc: &Service{
			Repo:     repo,
			Store:    store,
			Guard:    idempotency.NewMemoryGuard(),
			Mailer:   mailer,
			Pipeline: pipeline,
			Now:      func() time.Time { return fixed },
		},
		repo:       repo,
		store:      store,
		mailer:     mailer,
		candidates: pipeline,
	}
}

func strPtr(s string) *string { return &s }

func fieldOf(t *testing.T, f Form, typ FieldType) Field {
	t.Helper()
	for _, field := range f.Fields {
		if field.Type == typ {
			return field
		}
	}
	t.Fatalf("form has no %s field", typ)
	return Field{}
}

func application(t *testing.T, f Form, name, email string) SubmitInput {
	t.Helper()
	in := SubmitInput{
		Values: map[string][]string{
			fieldOf(t, f, FieldEmail).ID:    {email},
			fieldOf(t, f, FieldTextarea).ID: {"I like distributed systems."},
		},
		Files: map[string]Upload{
			fieldOf(t, f, FieldFile).ID: {FileName: "jane resume.pdf", Data: []byte("%PDF-1.4 fake")},
		},
	}
	if name != "" {
		in.Values[fieldOf(t, f, FieldText).ID] = []string{name}
	}
	return in
}

func TestCreateFormAddsDefaultFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Senior Go Engineer")})
	require.NoError(t, err)
	assert.Equal(t, "senior-go-engineer", f.Slug)
	assert.True(t, f.IsActive)
	require.Len(t, f.Fields, 4)
	for i, field := range f.Fields {
		assert.Equal(t, i, field.OrderIndex)
		assert.True(t, field.Required)
	}

	_, err = env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("   ")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.GetForm(ctx, "rec-2", f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFormSuffixesTakenSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Data Analyst")})
	require.NoError(t, err)
	second, err := env.svc.CreateForm(ctx, "rec-2", FormInput{Title: strPtr("Data Analyst")})
	require.NoError(t, err)

	assert.Equal(t, "data-analyst", first.Slug)
	assert.True(t, strings.HasPrefix(second.Slug, "data-analyst-"), second.Slug)
	assert.Len(t, second.Slug, len("data-analyst-")+6)
}

func TestFieldBuilder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Designer")})
	require.NoError(t, err)

	_, err = env.svc.AddField(ctx, "rec-1", f.ID, FieldInput{Type: FieldSelect, Label: "Seniority"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.svc.AddField(ctx, "rec-1", f.ID, FieldInput{Type: "slider", Label: "Mood"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	added, err := env.svc.AddField(ctx, "rec-1", f.ID, FieldInput{
		Type: FieldSelect, Label: "Seniority", Options: []string{"Junior", " ", "Senior"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, added.OrderIndex)
	assert.Equal(t, []string{"Junior", "Senior"}, added.Options)

	updated, err := env.svc.UpdateField(ctx, "rec-1", f.ID, added.ID, FieldInput{
		Type: FieldRadio, Label: "Level", Required: true, Options: []string{"Mid"},
	})
	require.NoError(t, err)
	assert.Equal(t, FieldRadio, updated.Type)
	assert.Equal(t, 4, updated.OrderIndex)

	_, err = env.svc.UpdateField(ctx, "rec-1", f.ID, "missing", FieldInput{Type: FieldText, Label: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	current, err := env.svc.GetForm(ctx, "rec-1", f.ID)
	require.NoError(t, err)
	ids := make([]string, 0, len(current.Fields))
	for i := len(current.Fields) - 1; i >= 0; i-- {
		ids = append(ids, current.Fields[i].ID)
	}

	_, err = env.svc.ReorderFields(ctx, "rec-1", f.ID, ids[:3])
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.svc.ReorderFields(ctx, "rec-1", f.ID, append(ids[:4:4], ids[0]))
	assert.ErrorIs(t, err, ErrInvalidInput)

	reordered, err := env.svc.ReorderFields(ctx, "rec-1", f.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, added.ID, reordered.Fields[0].ID)
	assert.Equal(t, current.Fields[0].ID, reordered.Fields[4].ID)

	require.NoError(t, env.svc.DeleteField(ctx, "rec-1", f.ID, added.ID))
	after, err := env.svc.GetForm(ctx, "rec-1", f.ID)
	require.NoError(t, err)
	assert.Len(t, after.Fields, 4)
}

func TestToggleActiveHidesPublicForm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Support Lead")})
	require.NoError(t, err)

	toggled, err := env.svc.ToggleActive(ctx, "rec-1", f.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	_, err = env.svc.PublicForm(ctx, f.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "jane@example.com"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitStoresResumeAndConfirms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Backend Engineer")})
	require.NoError(t, err)

	sub, err := env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "jane@example.com"))
	require.NoError(t, err)
	assert.Equal(t, StatusNew, sub.Status)
	assert.Equal(t, "Jane Doe", sub.CandidateName)
	assert.Equal(t, "jane@example.com", sub.CandidateEmail)
	require.Len(t, sub.Responses, 4)

	keys := env.store.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "resumes/"+f.ID+"/"), keys[0])
	assert.True(t, strings.HasSuffix(keys[0], "-jane resume.pdf"), keys[0])

	var fileResp Response
	for _, r := range sub.Responses {
		if r.FileKey != "" {
			fileResp = r
		}
	}
	assert.Equal(t, keys[0], fileResp.FileKey)
	assert.Equal(t, "jane resume.pdf", fileResp.Value)

	stored, err := env.svc.ListSubmissions(ctx, "rec-1", f.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, sub.ID, stored[0].ID)

	sent := env.mailer.Sent()
	require.Len(t, sent, 1)
	confirmation, ok := sent[0].(notify.Confirmation)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", confirmation.To)
	assert.Equal(t, sub.ID, confirmation.SubmissionID)
}

func TestSubmitReportsEveryInvalidField(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("QA Engineer")})
	require.NoError(t, err)

	in := SubmitInput{Values: map[string][]string{fieldOf(t, f, FieldEmail).ID: {"not-an-email"}}}
	_, err = env.svc.Submit(ctx, f.Slug, in)
	require.ErrorIs(t, err, ErrInvalidInput)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Failures, 4)
	assert.Empty(t, env.store.keys())
}

func TestSubmitRejectsDuplicateApplication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("SRE")})
	require.NoError(t, err)

	_, err = env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "jane@example.com"))
	require.NoError(t, err)
	_, err = env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "JANE@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	_, err = env.svc.Submit(ctx, f.Slug, application(t, f, "John Roe", "john@example.com"))
	require.NoError(t, err)

	keyed := application(t, f, "John Roe", "john@example.com")
	keyed.IdempotencyKey = "retry-1"
	_, err = env.svc.Submit(ctx, f.Slug, keyed)
	require.NoError(t, err)
	_, err = env.svc.Submit(ctx, f.Slug, keyed)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	subs, err := env.svc.ListSubmissions(ctx, "rec-1", f.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 3)
}

func TestSubmitRemovesUploadsWhenInsertFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Data Engineer")})
	require.NoError(t, err)

	env.repo.setFailing(true)
	_, err = env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "jane@example.com"))
	require.Error(t, err)
	assert.Empty(t, env.store.keys())
	assert.Empty(t, env.mailer.Sent())

	// The dedupe key was released, so a retry goes through.
	env.repo.setFailing(false)
	_, err = env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "jane@example.com"))
	require.NoError(t, err)
	assert.Len(t, env.store.keys(), 1)
}

func TestSubmitRequiresTextAndFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Recruiter")})
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteField(ctx, "rec-1", f.ID, fieldOf(t, f, FieldEmail).ID))
	require.NoError(t, env.svc.DeleteField(ctx, "rec-1", f.ID, fieldOf(t, f, FieldTextarea).ID))
	f, err = env.svc.GetForm(ctx, "rec-1", f.ID)
	require.NoError(t, err)
	require.Len(t, f.Fields, 2)

	text := fieldOf(t, f, FieldText)
	file := fieldOf(t, f, FieldFile)
	resume := Upload{FileName: "cv.pdf", Data: []byte("%PDF-1.4 fake")}

	tests := []struct {
		name        string
		in          SubmitInput
		wantInvalid string
	}{
		{
			name:        "missing text",
			in:          SubmitInput{Files: map[string]Upload{file.ID: resume}},
			wantInvalid: text.ID,
		},
		{
			name:        "missing file",
			in:          SubmitInput{Values: map[string][]string{text.ID: {"Jane Doe"}}},
			wantInvalid: file.ID,
		},
		{
			name: "both present",
			in: SubmitInput{
				Values: map[string][]string{text.ID: {"Jane Doe"}},
				Files:  map[string]Upload{file.ID: resume},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := env.svc.Submit(ctx, f.Slug, tt.in)
			if tt.wantInvalid == "" {
				require.NoError(t, err)
				assert.Len(t, sub.Responses, 2)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Failures, 1)
			assert.Equal(t, tt.wantInvalid, vErr.Failures[0].FieldID)
		})
	}

	subs, err := env.svc.ListSubmissions(ctx, "rec-1", f.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubmitKeepsSameNamedFilesApart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Writer")})
	require.NoError(t, err)
	cover, err := env.svc.AddField(ctx, "rec-1", f.ID, FieldInput{Type: FieldFile, Label: "Cover letter", Required: true})
	require.NoError(t, err)
	f, err = env.svc.GetForm(ctx, "rec-1", f.ID)
	require.NoError(t, err)

	in := application(t, f, "Jane Doe", "jane@example.com")
	resumeID := fieldOf(t, f, FieldFile).ID
	in.Files[resumeID] = Upload{FileName: "doc.pdf", Data: []byte("resume bytes")}
	in.Files[cover.ID] = Upload{FileName: "doc.pdf", Data: []byte("cover bytes")}

	sub, err := env.svc.Submit(ctx, f.Slug, in)
	require.NoError(t, err)
	assert.Len(t, env.store.keys(), 2)

	got := map[string]string{}
	for _, r := range sub.Responses {
		if r.FileKey == "" {
			continue
		}
		data, err := env.svc.readObject(ctx, r.FileKey)
		require.NoError(t, err)
		got[r.FieldID] = string(data)
	}
	assert.Equal(t, map[string]string{resumeID: "resume bytes", cover.ID: "cover bytes"}, got)
}

func TestSubmitRemovesEarlierUploadsWhenLaterUploadFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Illustrator")})
	require.NoError(t, err)
	cover, err := env.svc.AddField(ctx, "rec-1", f.ID, FieldInput{Type: FieldFile, Label: "Portfolio", Required: true})
	require.NoError(t, err)
	f, err = env.svc.GetForm(ctx, "rec-1", f.ID)
	require.NoError(t, err)

	in := application(t, f, "Jane Doe", "jane@example.com")
	in.Files[cover.ID] = Upload{FileName: "portfolio.pdf", Data: []byte("%PDF-1.4 art")}

	env.store.failAt = 2
	_, err = env.svc.Submit(ctx, f.Slug, in)
	require.ErrorIs(t, err, ErrUploadFailed)
	assert.Empty(t, env.store.keys())
	assert.Empty(t, env.mailer.Sent())

	subs, err := env.svc.ListSubmissions(ctx, "rec-1", f.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = env.svc.Submit(ctx, f.Slug, in)
	require.NoError(t, err)
	assert.Len(t, env.store.keys(), 2)
}

func TestUpdateSubmissionStatusLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Analyst")})
	require.NoError(t, err)
	sub, err := env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "jane@example.com"))
	require.NoError(t, err)

	_, err = env.svc.UpdateSubmissionStatus(ctx, "rec-1", sub.ID, "shortlisted")
	require.NoError(t, err)
	_, err = env.svc.UpdateSubmissionStatus(ctx, "rec-2", sub.ID, "rejected")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = env.svc.UpdateSubmissionStatus(ctx, "rec-1", sub.ID, "rejected")
	require.NoError(t, err)

	stored, err := env.repo.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, stored.Status)
}

func TestUpdateSubmissionStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("PM")})
	require.NoError(t, err)
	sub, err := env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "jane@example.com"))
	require.NoError(t, err)

	_, err = env.svc.UpdateSubmissionStatus(ctx, "rec-1", sub.ID, "hired")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.svc.UpdateSubmissionStatus(ctx, "rec-2", sub.ID, "reviewed")
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := env.svc.UpdateSubmissionStatus(ctx, "rec-1", sub.ID, "Reviewed")
	require.NoError(t, err)
	assert.Equal(t, StatusReviewed, updated.Status)
}

func TestMoveToPipeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("Frontend Engineer")})
	require.NoError(t, err)
	sub, err := env.svc.Submit(ctx, f.Slug, application(t, f, "Jane Doe", "jane@example.com"))
	require.NoError(t, err)

	c, err := env.svc.MoveToPipeline(ctx, "rec-1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", c.CandidateName)
	assert.Equal(t, candidates.DefaultStatus, c.Status)
	assert.Equal(t, sub.ID, c.SubmissionID)

	stored, err := env.repo.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShortlisted, stored.Status)

	_, err = env.svc.MoveToPipeline(ctx, "rec-1", sub.ID)
	assert.ErrorIs(t, err, candidates.ErrDuplicate)
}

func TestMoveToPipelineReadsNameFromResume(t *testing.T) {
	env := newTestEnv(t)
	parser := &fakeParser{}
	parser.profile.Candidate.Name = "Jane Parsed"
	env.svc.Parser = parser
	ctx := context.Background()

	f, err := env.svc.CreateForm(ctx, "rec-1", FormInput{Title: strPtr("ML Engineer")})
	require.NoError(t, err)
	require.NoError(t, env.svc.DeleteField(ctx, "rec-1", f.ID, fieldOf(t, f, FieldText).ID))
	f, err = env.svc.GetForm(ctx, "rec-1", f.ID)
	require.NoError(t, err)

	sub, err := env.svc.Submit(ctx, f.Slug, application(t, f, "", "jane@example.com"))
	require.NoError(t, err)
	assert.Empty(t, sub.CandidateName)

	c, err := env.svc.MoveToPipeline(ctx, "rec-1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Parsed", c.CandidateName)
	assert.Equal(t, "jane@example.com", c.CandidateEmail)
	assert.Equal(t, "jane resume.pdf", parser.fileName)
	assert.Equal(t, []byte("%PDF-1.4 fake"), parser.data)
}
