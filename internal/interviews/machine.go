package interviews

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"recruitai-backend/internal/shared/metrics"
)

// MachineState is the lifecycle of a running interview.
type MachineState string

const (
	StateNotStarted MachineState = "not_started"
	StateInProgress MachineState = "in_progress"
	StateCompleted  MachineState = "completed"
)

const (
	triggerManual = "manual"
	triggerExpiry = "expiry"
)

// DefaultQuestionDuration is the per-question countdown.
const DefaultQuestionDuration = 120 * time.Second

// Timer is the subset of *time.Timer the machine uses.
type Timer interface {
	Stop() bool
}

// Clock supplies time and timers; tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time                            { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

// QA is one asked question and its recorded answer.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Snapshot is a point-in-time view for live clients.
type Snapshot struct {
	State            MachineState `json:"state"`
	Index            int          `json:"index"`
	Total            int          `json:"total"`
	Question         string       `json:"question,omitempty"`
	RemainingSeconds int          `json:"remainingSeconds"`
	Answered         int          `json:"answered"`
}

// Machine runs one interview: a fixed question list, one countdown per question.
// Manual Next and countdown expiry go through the same advance step.
type Machine struct {
	mu        sync.Mutex
	clock     Clock
	duration  time.Duration
	questions []string
	answers   []string
	draft     string
	index     int
	state     MachineState
	deadline  time.Time
	timer     Timer
	gen       uint64
	startedAt time.Time

	onComplete func([]QA)
	subs       map[int]chan Snapshot
	nextSub    int
}

// NewMachine returns a machine in not_started. onComplete runs exactly once, after the
// terminal transition and outside the machine lock.
func NewMachine(clock Clock, duration time.Duration, onComplete func([]QA)) *Machine {
	if clock == nil {
		clock = RealClock()
	}
	if duration <= 0 {
		duration = DefaultQuestionDuration
	}
	return &Machine{
		clock:      clock,
		duration:   duration,
		state:      StateNotStarted,
		onComplete: onComplete,
		subs:       make(map[int]chan Snapshot),
	}
}

// Start fixes the question list and arms the first countdown. An empty list completes immediately.
func (m *Machine) Start(questions []string) error {
	m.mu.Lock()
	if m.state != StateNotStarted {
		m.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, m.state)
	}
	m.questions = append([]string(nil), questions...)
	m.answers = make([]string, 0, len(questions))
	m.startedAt = m.clock.Now()
	if len(m.questions) == 0 {
		done := m.completeLocked()
		m.mu.Unlock()
		done()
		return nil
	}
	m.state = StateInProgress
	m.index = 0
	m.armLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(snap)
	return nil
}

// Next records answer for the current question and moves on.
func (m *Machine) Next(answer string) (Snapshot, error) {
	m.mu.Lock()
	if m.state != StateInProgress {
		state := m.state
		m.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: next from %s", ErrInvalidTransition, state)
	}
	return m.advanceLocked(answer, triggerManual)
}

// SetDraft stores the typed but unsubmitted answer; expiry records it.
func (m *Machine) SetDraft(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return fmt.Errorf("%w: draft in %s", ErrInvalidTransition, m.state)
	}
	m.draft = text
	return nil
}

func (m *Machine) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateInProgress {
		// Timer from an earlier question or a finished interview.
		m.mu.Unlock()
		return
	}
	_, _ = m.advanceLocked(m.draft, triggerExpiry)
}

// advanceLocked is the single transition for both triggers. It releases m.mu.
func (m *Machine) advanceLocked(answer, trigger string) (Snapshot, error) {
	m.answers = append(m.answers, strings.TrimSpace(answer))
	m.draft = ""
	m.index++
	metrics.IncInterviewTransition(trigger)

	if m.index >= len(m.questions) {
		done := m.completeLocked()
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.publish(snap)
		done()
		return snap, nil
	}
	m.armLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(snap)
	return snap, nil
}

func (m *Machine) armLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.gen++
	gen := m.gen
	m.deadline = m.clock.Now().Add(m.duration)
	m.timer = m.clock.AfterFunc(m.duration, func() { m.expire(gen) })
}

// completeLocked moves to completed and returns the deferred completion callback.
func (m *Machine) completeLocked() func() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
	m.state = StateCompleted
	qa := make([]QA, len(m.questions))
	for i, q := range m.questions {
		qa[i] = QA{Question: q, Answer: m.answers[i]}
	}
	cb := m.onComplete
	return func() {
		if cb != nil {
			cb(qa)
		}
	}
}

// Remaining reports whole seconds left on the current question.
func (m *Machine) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked()
}

func (m *Machine) remainingLocked() int {
	if m.state != StateInProgress {
		return 0
	}
	left := m.deadline.Sub(m.clock.Now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:            m.state,
		Index:            m.index,
		Total:            len(m.questions),
		RemainingSeconds: m.remainingLocked(),
		Answered:         len(m.answers),
	}
	if m.state == StateInProgress {
		s.Question = m.questions[m.index]
	}
	return s
}

// State returns the lifecycle state.
func (m *Machine) State() MachineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StartedAt returns when Start was called.
func (m *Machine) StartedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt
}

// Subscribe returns a channel receiving a snapshot after every transition. Slow
// subscribers miss snapshots rather than block the machine.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan Snapshot, 8)
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

func (m *Machine) publish(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Transcript renders answered questions as "Q{i}: q\nA{i}: a" blocks separated by blank lines.
func Transcript(qa []QA) string {
	parts := make([]string, len(qa))
	for i, item := range qa {
		parts[i] = fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, item.Question, i+1, item.Answer)
	}
	return strings.Join(parts, "\n\n")
}
