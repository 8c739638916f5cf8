package interviews

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"recruitai-backend/internal/notify"
	"recruitai-backend/internal/shared/telemetry"
)

// Service coordinates scheduling, running and finalizing interviews.
type Service struct {
	Repo             Repo
	Evaluator        Evaluator
	Mailer           notify.Mailer
	Pool             QuestionPool
	Clock            Clock
	QuestionDuration time.Duration
	AppURL           string
	// Shuffle is rand.Shuffle unless a test pins the order.
	Shuffle func(n int, swap func(i, j int))

	mu       sync.Mutex
	machines map[string]*Machine
}

// ScheduleInput describes a new interview.
type ScheduleInput struct {
	RecruiterID    string
	RecruiterName  string
	ResumeID       string
	CandidateName  string
	CandidateEmail string
	JobRole        string
	KeySkills      []string
	Modality       Modality
	NumQuestions   int
}

// BeginInput is the candidate's entry form plus the browser's media permission result.
type BeginInput struct {
	CandidateName  string
	CandidateEmail string
	MediaGranted   bool
}

func (s *Service) clock() Clock {
	if s.Clock == nil {
		return RealClock()
	}
	return s.Clock
}

func (s *Service) now() time.Time {
	return s.clock().Now().UTC()
}

func (s *Service) pool() QuestionPool {
	if len(s.Pool.Questions) == 0 {
		return DefaultPool()
	}
	return s.Pool
}

func validEmail(addr string) bool {
	parsed, err := mail.ParseAddress(strings.TrimSpace(addr))
	return err == nil && parsed.Address == strings.TrimSpace(addr)
}

// Schedule persists a new session and sends the invitation.
func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (Session, error) {
	var problems []string
	if !validEmail(in.CandidateEmail) {
		problems = append(problems, "candidateEmail")
	}
	if strings.TrimSpace(in.JobRole) == "" {
		problems = append(problems, "jobRole")
	}
	if in.Modality != ModalityVoice && in.Modality != ModalityVideo {
		problems = append(problems, "interviewType")
	}
	if in.NumQuestions <= 0 {
		problems = append(problems, "numQuestions")
	}
	if len(problems) > 0 {
		return Session{}, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, ", "))
	}
	if size := len(s.pool().Questions); in.NumQuestions > size {
		in.NumQuestions = size
	}

	skills := make([]string, 0, len(in.KeySkills))
	for _, sk := range in.KeySkills {
		if sk = strings.TrimSpace(sk); sk != "" {
			skills = append(skills, sk)
		}
	}

	now := s.now()
	session := Session{
		ID:             uuid.NewString(),
		RecruiterID:    in.RecruiterID,
		ResumeID:       strings.TrimSpace(in.ResumeID),
		PublicID:       fmt.Sprintf("interview_%d_%s", now.Unix(), randomSuffix()),
		CandidateName:  strings.TrimSpace(in.CandidateName),
		CandidateEmail: strings.TrimSpace(in.CandidateEmail),
		JobRole:        strings.TrimSpace(in.JobRole),
		KeySkills:      skills,
		Modality:       in.Modality,
		NumQuestions:   in.NumQuestions,
		Status:         StatusScheduled,
		CreatedAt:      now,
	}
	if err := s.Repo.CreateSession(ctx, session); err != nil {
		return Session{}, err
	}

	if s.Mailer != nil {
		err := s.Mailer.SendInvitation(ctx, notify.Invitation{
			To:            session.CandidateEmail,
			CandidateName: session.CandidateName,
			SessionID:     session.PublicID,
			JobRole:       session.JobRole,
			RecruiterName: in.RecruiterName,
			Link:          strings.TrimRight(s.AppURL, "/") + "/interview/live/" + session.PublicID,
		})
		if err != nil {
			telemetry.Warn("interview.invitation_failed", map[string]any{"session_id": session.ID, "error": err})
		}
	}
	telemetry.Info("interview.scheduled", map[string]any{
		"session_id":   session.ID,
		"recruiter_id": session.RecruiterID,
		"modality":     string(session.Modality),
	})
	return session, nil
}

func randomSuffix() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 9)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// Lookup returns a session by its public id.
func (s *Service) Lookup(ctx context.Context, publicID string) (Session, error) {
	return s.Repo.GetSessionByPublicID(ctx, publicID)
}

// Begin starts the question sequence for a scheduled session.
func (s *Service) Begin(ctx context.Context, publicID string, in BeginInput) (Snapshot, error) {
	if strings.TrimSpace(in.CandidateName) == "" || !validEmail(in.CandidateEmail) {
		return Snapshot{}, fmt.Errorf("%w: candidate name and a valid email are required", ErrInvalidInput)
	}
	if !in.MediaGranted {
		return Snapshot{}, ErrPermissionDenied
	}
	session, err := s.Repo.GetSessionByPublicID(ctx, publicID)
	if err != nil {
		return Snapshot{}, err
	}
	if session.Status != StatusScheduled {
		return Snapshot{}, fmt.Errorf("%w: session is %s", ErrInvalidTransition, session.Status)
	}
	if err := s.Repo.MarkStarted(ctx, session.ID, strings.TrimSpace(in.CandidateName), s.now()); err != nil {
		return Snapshot{}, err
	}
	session.CandidateName = strings.TrimSpace(in.CandidateName)
	session.Status = StatusInProgress

	m := NewMachine(s.clock(), s.QuestionDuration, func(qa []QA) {
		s.finishMachine(session, qa)
	})
	s.register(session.ID, m)
	if err := m.Start(s.pool().Sample(session.NumQuestions, s.Shuffle)); err != nil {
		s.unregister(session.ID)
		return Snapshot{}, err
	}
	telemetry.Info("interview.started", map[string]any{"session_id": session.ID, "questions": session.NumQuestions})
	return m.Snapshot(), nil
}

// Answer submits the current answer.
func (s *Service) Answer(ctx context.Context, publicID, answer string) (Snapshot, error) {
	m, err := s.Live(ctx, publicID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.Next(answer)
}

// SaveDraft records the in-progress answer so an expiry keeps it.
func (s *Service) SaveDraft(ctx context.Context, publicID, text string) error {
	m, err := s.Live(ctx, publicID)
	if err != nil {
		return err
	}
	return m.SetDraft(text)
}

// Live returns the running machine for a public id.
func (s *Service) Live(ctx context.Context, publicID string) (*Machine, error) {
	session, err := s.Repo.GetSessionByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return s.LiveBySessionID(session.ID)
}

// LiveBySessionID returns the running machine for a session id.
func (s *Service) LiveBySessionID(sessionID string) (*Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[sessionID]
	if !ok {
		return nil, ErrNotLive
	}
	return m, nil
}

func (s *Service) register(id string, m *Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machines == nil {
		s.machines = make(map[string]*Machine)
	}
	s.machines[id] = m
}

func (s *Service) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.machines, id)
}

func (s *Service) isLive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.machines[id]
	return ok
}

// finishMachine runs on the machine's terminal transition, possibly from a timer goroutine.
func (s *Service) finishMachine(session Session, qa []QA) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := s.finalize(ctx, session, Transcript(qa)); err != nil {
		telemetry.Error("interview.finalize_failed", map[string]any{"session_id": session.ID, "error": err})
	}
	// Keep the machine registered until the result is stored so the reconciler skips it.
	s.unregister(session.ID)
}

// Complete finalizes a session from an externally produced transcript (voice calls).
func (s *Service) Complete(ctx context.Context, sessionID, transcript string) (Result, error) {
	session, err := s.Repo.GetSession(ctx, "", sessionID)
	if err != nil {
		return Result{}, err
	}
	if session.Status == StatusCompleted {
		return Result{}, fmt.Errorf("%w: session already completed", ErrInvalidTransition)
	}
	return s.finalize(ctx, session, transcript)
}

// finalize evaluates the transcript and stores the result. An evaluation failure still
// stores the transcript, with no score and a pending decision.
func (s *Service) finalize(ctx context.Context, session Session, transcript string) (Result, error) {
	result := Result{
		ID:            uuid.NewString(),
		SessionID:     session.ID,
		CandidateName: session.CandidateName,
		Transcript:    transcript,
		Decision:      DecisionPending,
		CompletedAt:   s.now(),
	}
	if s.Evaluator != nil {
		ev, err := s.Evaluator.Evaluate(ctx, transcript, session.JobRole, session.KeySkills)
		if err != nil {
			telemetry.Warn("interview.evaluation_failed", map[string]any{"session_id": session.ID, "error": err})
		} else {
			result.Score = ev.Score
			result.Summary = ev.Summary
			result.Evaluation = &ev
			if d, ok := ParseDecision(ev.Recommendation); ok {
				result.Decision = d
			}
		}
	}
	if err := s.Repo.Complete(ctx, result); err != nil {
		return Result{}, err
	}
	telemetry.Info("interview.completed", map[string]any{
		"session_id": session.ID,
		"decision":   string(result.Decision),
		"scored":     result.Score != nil,
	})
	return result, nil
}

// UpdateDecision records the reviewer's decision on a completed interview.
func (s *Service) UpdateDecision(ctx context.Context, recruiterID, sessionID string, decision string) (Result, error) {
	d, ok := ParseDecision(decision)
	if !ok {
		return Result{}, fmt.Errorf("%w: decision must be pending, hire, consider or reject", ErrInvalidInput)
	}
	if _, err := s.Repo.GetSession(ctx, recruiterID, sessionID); err != nil {
		return Result{}, err
	}
	if err := s.Repo.UpdateDecision(ctx, sessionID, d); err != nil {
		return Result{}, err
	}
	return s.Repo.GetResult(ctx, sessionID)
}

// List returns the recruiter's sessions, newest first.
func (s *Service) List(ctx context.Context, recruiterID string) ([]Session, error) {
	return s.Repo.ListSessions(ctx, recruiterID)
}

// Detail is a session with its result when completed.
type Detail struct {
	Session Session   `json:"session"`
	Result  *Result   `json:"result,omitempty"`
	Live    *Snapshot `json:"live,omitempty"`
}

// Get returns one session with its result.
func (s *Service) Get(ctx context.Context, recruiterID, id string) (Detail, error) {
	session, err := s.Repo.GetSession(ctx, recruiterID, id)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Session: session}
	if res, err := s.Repo.GetResult(ctx, id); err == nil {
		d.Result = &res
	} else if !errors.Is(err, ErrNotFound) {
		return Detail{}, err
	}
	if m, err := s.LiveBySessionID(id); err == nil {
		snap := m.Snapshot()
		d.Live = &snap
	}
	return d, nil
}

// MarkCallStarted records a voice call start for a session.
func (s *Service) MarkCallStarted(ctx context.Context, sessionID, callID string) error {
	if callID != "" {
		if err := s.Repo.SetCallID(ctx, sessionID, callID); err != nil {
			return err
		}
	}
	err := s.Repo.MarkStarted(ctx, sessionID, "", s.now())
	if errors.Is(err, ErrInvalidTransition) {
		// Repeated call-started events are harmless.
		return nil
	}
	return err
}

// SessionByCallID resolves a voice call to its session.
func (s *Service) SessionByCallID(ctx context.Context, callID string) (Session, error) {
	return s.Repo.GetSessionByCallID(ctx, callID)
}

// GetSession returns a session by id without an owner check.
func (s *Service) GetSession(ctx context.Context, id string) (Session, error) {
	return s.Repo.GetSession(ctx, "", id)
}

// ReconcileStale moves sessions stuck in_progress with no running machine back to scheduled.
func (s *Service) ReconcileStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	cutoff := s.now().Add(-staleAfter)
	stale, err := s.Repo.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, session := range stale {
		if s.isLive(session.ID) {
			continue
		}
		if err := s.Repo.ResetToScheduled(ctx, session.ID); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return reset, err
		}
		reset++
		telemetry.Warn("interview.reset_stale", map[string]any{"session_id": session.ID})
	}
	return reset, nil
}
