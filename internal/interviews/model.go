package interviews

import (
	"errors"
	"time"
)

type Modality string

const (
	ModalityVoice Modality = "voice"
	ModalityVideo Modality = "video"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionHire     Decision = "hire"
	DecisionConsider Decision = "consider"
	DecisionReject   Decision = "reject"
)

// ParseDecision accepts the four decision values case-insensitively.
func ParseDecision(s string) (Decision, bool) {
	switch d := Decision(normalizeWord(s)); d {
	case DecisionPending, DecisionHire, DecisionConsider, DecisionReject:
		return d, true
	}
	return "", false
}

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrPermissionDenied  = errors.New("camera or microphone permission not granted")
	ErrNotLive           = errors.New("session has no running interview")
)

const (
	ErrorCodeValidation   = "VALIDATION_ERROR"
	ErrorCodeNotFound     = "NOT_FOUND"
	ErrorCodeInvalidState = "INVALID_STATE"
	ErrorCodePermission   = "MEDIA_PERMISSION_DENIED"
	ErrorCodeNotLive      = "NOT_LIVE"
	ErrorCodeInternal     = "INTERNAL_ERROR"
)

// Session is a scheduled interview.
type Session struct {
	ID             string     `json:"id"`
	RecruiterID    string     `json:"recruiterId"`
	ResumeID       string     `json:"resumeId,omitempty"`
	PublicID       string     `json:"publicId"`
	CandidateName  string     `json:"candidateName"`
	CandidateEmail string     `json:"candidateEmail"`
	JobRole        string     `json:"jobRole"`
	KeySkills      []string   `json:"keySkills"`
	Modality       Modality   `json:"interviewType"`
	NumQuestions   int        `json:"numQuestions"`
	Status         Status     `json:"status"`
	CallID         string     `json:"callId,omitempty"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Result is the evaluated outcome of a completed session.
type Result struct {
	ID            string      `json:"id"`
	SessionID     string      `json:"sessionId"`
	CandidateName string      `json:"candidateName"`
	Transcript    string      `json:"transcript"`
	Score         *int        `json:"score,omitempty"`
	Summary       string      `json:"summary"`
	Decision      Decision    `json:"decision"`
	Evaluation    *Evaluation `json:"evaluation,omitempty"`
	CompletedAt   time.Time   `json:"completedAt"`
}

// Evaluation is the evaluator's verdict on a transcript.
type Evaluation struct {
	Score          *int     `json:"score,omitempty"`
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
	Strengths      []string `json:"strengths,omitempty"`
	Concerns       []string `json:"concerns,omitempty"`
}
