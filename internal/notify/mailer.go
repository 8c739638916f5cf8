// Package notify sends candidate-facing messages.
package notify

import (
	"context"
	"errors"
	"strings"
	"sync"

	"recruitai-backend/internal/shared/telemetry"
)

// ErrMissingRecipient is returned when a message has no address.
var ErrMissingRecipient = errors.New("recipient email is required")

// Invitation invites a candidate to an interview session.
type Invitation struct {
	To            string
	CandidateName string
	SessionID     string
	JobRole       string
	RecruiterName string
	Link          string
}

// Confirmation acknowledges a form submission.
type Confirmation struct {
	To            string
	CandidateName string
	FormTitle     string
	SubmissionID  string
}

// Mailer delivers notifications.
type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
	SendConfirmation(ctx context.Context, c Confirmation) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	mu   sync.Mutex
	sent []any
}

// NewLogMailer returns a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendInvitation(ctx context.Context, inv Invitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(inv.To) == "" {
		return ErrMissingRecipient
	}
	telemetry.Info("notify.invitation", map[string]any{
		"to":         inv.To,
		"candidate":  inv.CandidateName,
		"session_id": inv.SessionID,
		"job_role":   inv.JobRole,
		"recruiter":  inv.RecruiterName,
		"link":       inv.Link,
	})
	m.record(inv)
	return nil
}

func (m *LogMailer) SendConfirmation(ctx context.Context, c Confirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(c.To) == "" {
		return ErrMissingRecipient
	}
	telemetry.Info("notify.confirmation", map[string]any{
		"to":            c.To,
		"candidate":     c.CandidateName,
		"form":          c.FormTitle,
		"submission_id": c.SubmissionID,
	})
	m.record(c)
	return nil
}

// Sent returns a copy of every delivered message.
func (m *LogMailer) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *LogMailer) record(msg any) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
}
