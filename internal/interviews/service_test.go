package interviews

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitai-backend/internal/notify"
)

type stubEvaluator struct {
	ev    Evaluation
	err   error
	calls int
	last  string
}

func intPtr(v int) *int { return &v }

func (s *stubEvaluator) Evaluate(_ context.Context, transcript, _ string, _ []string) (Evaluation, error) {
	s.calls++
	s.last = transcript
	return s.ev, s.err
}

func newTestService(t *testing.T, ev Evaluator) (*Service, *MemoryRepo, *fakeClock, *notify.LogMailer) {
	t.Helper()
	repo := NewMemoryRepo()
	clock := newFakeClock()
	mailer := notify.NewLogMailer()
	svc := &Service{
		Repo:             repo,
		Evaluator:        ev,
		Mailer:           mailer,
		Pool:             QuestionPool{Questions: []string{"q1", "q2", "q3", "q4"}},
		Clock:            clock,
		QuestionDuration: 2 * time.Minute,
		AppURL:           "https://app.example.com/",
		Shuffle:          func(int, func(int, int)) {},
	}
	return svc, repo, clock, mailer
}

func validSchedule() ScheduleInput {
	return ScheduleInput{
		RecruiterID:    "rec-1",
		RecruiterName:  "Riley",
		CandidateName:  "Jane Doe",
		CandidateEmail: "jane@example.com",
		JobRole:        "Backend Engineer",
		KeySkills:      []string{"Go", " ", "Postgres"},
		Modality:       ModalityVideo,
		NumQuestions:   3,
	}
}

func TestScheduleCreatesSessionAndInvites(t *testing.T) {
	svc, repo, _, mailer := newTestService(t, nil)

	session, err := svc.Schedule(context.Background(), validSchedule())
	require.NoError(t, err)

	assert.Equal(t, StatusScheduled, session.Status)
	assert.Equal(t, []string{"Go", "Postgres"}, session.KeySkills)
	assert.True(t, strings.HasPrefix(session.PublicID, "interview_"), session.PublicID)

	stored, err := repo.GetSession(context.Background(), "rec-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.PublicID, stored.PublicID)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	inv, ok := sent[0].(notify.Invitation)
	require.True(t, ok)
	assert.Equal(t, "https://app.example.com/interview/live/"+session.PublicID, inv.Link)
}

func TestScheduleValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	tests := []struct {
		name   string
		mutate func(*ScheduleInput)
	}{
		{name: "bad email", mutate: func(in *ScheduleInput) { in.CandidateEmail = "nope" }},
		{name: "no role", mutate: func(in *ScheduleInput) { in.JobRole = " " }},
		{name: "bad modality", mutate: func(in *ScheduleInput) { in.Modality = "chat" }},
		{name: "no questions", mutate: func(in *ScheduleInput) { in.NumQuestions = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSchedule()
			tt.mutate(&in)
			_, err := svc.Schedule(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestScheduleClampsQuestionCount(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	in := validSchedule()
	in.NumQuestions = 50
	session, err := svc.Schedule(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 4, session.NumQuestions)
}

func TestBeginRequiresMediaAndIdentity(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	session, err := svc.Schedule(context.Background(), validSchedule())
	require.NoError(t, err)

	_, err = svc.Begin(context.Background(), session.PublicID, BeginInput{CandidateName: "Jane", CandidateEmail: "jane@example.com"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.Begin(context.Background(), session.PublicID, BeginInput{CandidateEmail: "jane@example.com", MediaGranted: true})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Begin(context.Background(), "interview_missing", BeginInput{CandidateName: "Jane", CandidateEmail: "jane@example.com", MediaGranted: true})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Live(context.Background(), session.PublicID)
	assert.ErrorIs(t, err, ErrNotLive)
}

func TestInterviewRunsToEvaluatedResult(t *testing.T) {
	ev := &stubEvaluator{ev: Evaluation{Score: intPtr(81), Summary: "Strong", Recommendation: "hire"}}
	svc, repo, clock, _ := newTestService(t, ev)
	ctx := context.Background()

	session, err := svc.Schedule(ctx, validSchedule())
	require.NoError(t, err)

	snap, err := svc.Begin(ctx, session.PublicID, BeginInput{CandidateName: "Jane D", CandidateEmail: "jane@example.com", MediaGranted: true})
	require.NoError(t, err)
	assert.Equal(t, "q1", snap.Question)
	assert.Equal(t, 3, snap.Total)

	_, err = svc.Begin(ctx, session.PublicID, BeginInput{CandidateName: "Jane D", CandidateEmail: "jane@example.com", MediaGranted: true})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Answer(ctx, session.PublicID, "I build APIs")
	require.NoError(t, err)
	require.NoError(t, svc.SaveDraft(ctx, session.PublicID, "half an answer"))
	clock.Advance(2 * time.Minute)
	_, err = svc.Answer(ctx, session.PublicID, "done")
	require.NoError(t, err)

	assert.Equal(t, 1, ev.calls)
	assert.Equal(t, "Q1: q1\nA1: I build APIs\n\nQ2: q2\nA2: half an answer\n\nQ3: q3\nA3: done", ev.last)

	res, err := repo.GetResult(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, DecisionHire, res.Decision)
	require.NotNil(t, res.Score)
	assert.Equal(t, 81, *res.Score)
	assert.Equal(t, "Jane D", res.CandidateName)

	stored, err := repo.GetSession(ctx, "", session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	_, err = svc.Live(ctx, session.PublicID)
	assert.ErrorIs(t, err, ErrNotLive)
}

func TestUnscoredEvaluationKeepsScoreNil(t *testing.T) {
	svc, repo, _, _ := newTestService(t, &stubEvaluator{ev: Evaluation{Summary: "x", Recommendation: "consider"}})
	ctx := context.Background()

	session, err := svc.Schedule(ctx, validSchedule())
	require.NoError(t, err)

	res, err := svc.Complete(ctx, session.ID, "Q1: hi\nA1: hello")
	require.NoError(t, err)
	assert.Nil(t, res.Score)
	assert.Equal(t, "x", res.Summary)
	assert.Equal(t, DecisionConsider, res.Decision)

	stored, err := repo.GetResult(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Score)
}

func TestEvaluationFailureLeavesDecisionPending(t *testing.T) {
	ev := &stubEvaluator{err: errors.New("llm down")}
	svc, repo, _, _ := newTestService(t, ev)
	ctx := context.Background()

	session, err := svc.Schedule(ctx, validSchedule())
	require.NoError(t, err)

	res, err := svc.Complete(ctx, session.ID, "Q1: hi\nA1: hello")
	require.NoError(t, err)
	assert.Nil(t, res.Score)
	assert.Equal(t, DecisionPending, res.Decision)

	stored, err := repo.GetResult(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q1: hi\nA1: hello", stored.Transcript)

	_, err = svc.Complete(ctx, session.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateDecision(t *testing.T) {
	svc, _, _, _ := newTestService(t, &stubEvaluator{ev: Evaluation{Score: intPtr(40), Recommendation: "reject"}})
	ctx := context.Background()
	session, err := svc.Schedule(ctx, validSchedule())
	require.NoError(t, err)

	_, err = svc.UpdateDecision(ctx, "rec-1", session.ID, "hire")
	assert.ErrorIs(t, err, ErrNotFound, "no result yet")

	_, err = svc.Complete(ctx, session.ID, "transcript")
	require.NoError(t, err)

	_, err = svc.UpdateDecision(ctx, "rec-1", session.ID, "maybe")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateDecision(ctx, "rec-2", session.ID, "hire")
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := svc.UpdateDecision(ctx, "rec-1", session.ID, "Consider")
	require.NoError(t, err)
	assert.Equal(t, DecisionConsider, res.Decision)

	detail, err := svc.Get(ctx, "rec-1", session.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Result)
	assert.Equal(t, DecisionConsider, detail.Result.Decision)
}

func TestReconcileStaleSkipsRunningMachines(t *testing.T) {
	svc, repo, clock, _ := newTestService(t, nil)
	ctx := context.Background()

	running, err := svc.Schedule(ctx, validSchedule())
	require.NoError(t, err)
	abandoned, err := svc.Schedule(ctx, validSchedule())
	require.NoError(t, err)

	_, err = svc.Begin(ctx, running.PublicID, BeginInput{CandidateName: "Jane", CandidateEmail: "jane@example.com", MediaGranted: true})
	require.NoError(t, err)
	// Simulates a session started by a process that has since gone away.
	require.NoError(t, repo.MarkStarted(ctx, abandoned.ID, "", clock.Now()))

	// Advance the wall clock without firing question timers.
	clock.mu.Lock()
	clock.now = clock.now.Add(time.Hour)
	clock.mu.Unlock()

	n, err := NewReconciler(svc, "", 30*time.Minute).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetSession(ctx, "", abandoned.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.Nil(t, got.StartedAt)

	got, err = repo.GetSession(ctx, "", running.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestMarkCallStartedIsIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	ctx := context.Background()
	in := validSchedule()
	in.Modality = ModalityVoice
	session, err := svc.Schedule(ctx, in)
	require.NoError(t, err)

	require.NoError(t, svc.MarkCallStarted(ctx, session.ID, "call-9"))
	require.NoError(t, svc.MarkCallStarted(ctx, session.ID, "call-9"))

	got, err := svc.SessionByCallID(ctx, "call-9")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestReconcilerStartRejectsBadSchedule(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	r := NewReconciler(svc, "not a schedule", time.Minute)
	require.Error(t, r.Start())
}
