package voice

import (
	"context"
	"errors"
	"fmt"

	"recruitai-backend/internal/interviews"
	"recruitai-backend/internal/shared/telemetry"
)

// ErrNotVoice is returned for sessions scheduled as video interviews.
var ErrNotVoice = errors.New("session is not a voice interview")

// Caller is the subset of the Vapi client the service drives.
type Caller interface {
	CreateAssistant(ctx context.Context, cfg AssistantConfig) (Assistant, error)
	StartCall(ctx context.Context, assistantID string, metadata map[string]string) (Call, error)
	StopCall(ctx context.Context, callID string) error
}

// Sessions is the interview bookkeeping voice calls update.
type Sessions interface {
	Get(ctx context.Context, recruiterID, id string) (interviews.Detail, error)
	GetSession(ctx context.Context, id string) (interviews.Session, error)
	MarkCallStarted(ctx context.Context, sessionID, callID string) error
	SessionByCallID(ctx context.Context, callID string) (interviews.Session, error)
	Complete(ctx context.Context, sessionID, transcript string) (interviews.Result, error)
}

// Service starts voice calls and applies their lifecycle events to sessions.
type Service struct {
	Caller     Caller
	Sessions   Sessions
	Dispatcher *Dispatcher
}

// NewService wires the lifecycle handlers. A nil caller disables outbound calls but
// webhooks still apply.
func NewService(caller Caller, sessions Sessions) *Service {
	s := &Service{Caller: caller, Sessions: sessions, Dispatcher: NewDispatcher()}
	s.Dispatcher.On(EventCallStarted, s.onCallStarted)
	s.Dispatcher.On(EventCallEnded, s.onCallEnded)
	s.Dispatcher.On(EventError, s.onError)
	return s
}

// Enabled reports whether outbound calls can be placed.
func (s *Service) Enabled() bool {
	return s != nil && s.Caller != nil
}

// Start creates an assistant for the session's role and starts its call.
func (s *Service) Start(ctx context.Context, recruiterID, sessionID string) (Call, error) {
	if !s.Enabled() {
		return Call{}, ErrDisabled
	}
	detail, err := s.Sessions.Get(ctx, recruiterID, sessionID)
	if err != nil {
		return Call{}, err
	}
	session := detail.Session
	if session.Modality != interviews.ModalityVoice {
		return Call{}, ErrNotVoice
	}
	if session.Status != interviews.StatusScheduled {
		return Call{}, fmt.Errorf("%w: session is %s", interviews.ErrInvalidTransition, session.Status)
	}

	assistant, err := s.Caller.CreateAssistant(ctx, InterviewAssistant(session.JobRole, session.KeySkills))
	if err != nil {
		return Call{}, fmt.Errorf("create assistant: %w", err)
	}
	call, err := s.Caller.StartCall(ctx, assistant.ID, map[string]string{"sessionId": session.ID})
	if err != nil {
		return Call{}, fmt.Errorf("start call: %w", err)
	}
	if err := s.Sessions.MarkCallStarted(ctx, session.ID, call.ID); err != nil {
		return Call{}, err
	}
	telemetry.Info("voice.call_started", map[string]any{"session_id": session.ID, "call_id": call.ID})
	return call, nil
}

// Stop ends the session's running call. Completion arrives through the call-ended event.
func (s *Service) Stop(ctx context.Context, recruiterID, sessionID string) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	detail, err := s.Sessions.Get(ctx, recruiterID, sessionID)
	if err != nil {
		return err
	}
	if detail.Session.CallID == "" || detail.Session.Status != interviews.StatusInProgress {
		return interviews.ErrNotLive
	}
	return s.Caller.StopCall(ctx, detail.Session.CallID)
}

// HandleEvent dispatches a webhook event.
func (s *Service) HandleEvent(ctx context.Context, ev Event) error {
	return s.Dispatcher.Dispatch(ctx, ev)
}

func (s *Service) resolve(ctx context.Context, ev Event) (interviews.Session, error) {
	if ev.SessionID != "" {
		return s.Sessions.GetSession(ctx, ev.SessionID)
	}
	return s.Sessions.SessionByCallID(ctx, ev.CallID)
}

func (s *Service) onCallStarted(ctx context.Context, ev Event) error {
	session, err := s.resolve(ctx, ev)
	if err != nil {
		return err
	}
	return s.Sessions.MarkCallStarted(ctx, session.ID, ev.CallID)
}

func (s *Service) onCallEnded(ctx context.Context, ev Event) error {
	session, err := s.resolve(ctx, ev)
	if err != nil {
		return err
	}
	if session.Status == interviews.StatusCompleted {
		return nil
	}
	_, err = s.Sessions.Complete(ctx, session.ID, ev.Transcript)
	if errors.Is(err, interviews.ErrInvalidTransition) {
		// A duplicate end event raced the first one.
		return nil
	}
	return err
}

func (s *Service) onError(_ context.Context, ev Event) error {
	telemetry.Error("voice.call_error", map[string]any{
		"call_id":    ev.CallID,
		"session_id": ev.SessionID,
		"error":      ev.Error,
	})
	return nil
}
