package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// EventType names a call lifecycle event.
type EventType string

const (
	EventCallStarted EventType = "call-started"
	EventCallEnded   EventType = "call-ended"
	EventError       EventType = "error"
)

// Event is a normalized webhook notification.
type Event struct {
	Type       EventType
	CallID     string
	SessionID  string
	Transcript string
	Error      string
}

// EventHandler reacts to one event.
type EventHandler func(ctx context.Context, ev Event) error

// Dispatcher routes events to the handlers registered for their type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventType][]EventHandler)}
}

// On registers h for t. Handlers run in registration order.
func (d *Dispatcher) On(t EventType, h EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], h)
}

// Dispatch runs every handler for the event type and joins their errors.
// Events with no handler are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.mu.RLock()
	hs := append([]EventHandler(nil), d.handlers[ev.Type]...)
	d.mu.RUnlock()
	var errs []error
	for _, h := range hs {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type webhookBody struct {
	Message struct {
		Type   string `json:"type"`
		Status string `json:"status"`
		Call   struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"call"`
		Transcript string `json:"transcript"`
		Artifact   struct {
			Transcript string `json:"transcript"`
		} `json:"artifact"`
		Error string `json:"error"`
	} `json:"message"`
}

// ParseEvent normalizes a webhook body. Vapi's server message names map onto the three
// lifecycle events; anything else yields ok=false.
func ParseEvent(raw []byte) (Event, bool, error) {
	var body webhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Event{}, false, fmt.Errorf("decode webhook: %w", err)
	}
	msg := body.Message
	ev := Event{
		CallID:     msg.Call.ID,
		SessionID:  msg.Call.Metadata["sessionId"],
		Transcript: strings.TrimSpace(msg.Transcript),
		Error:      msg.Error,
	}
	if ev.Transcript == "" {
		ev.Transcript = strings.TrimSpace(msg.Artifact.Transcript)
	}
	switch msg.Type {
	case "call-started":
		ev.Type = EventCallStarted
	case "call-ended", "end-of-call-report":
		ev.Type = EventCallEnded
	case "error", "hang":
		ev.Type = EventError
	case "status-update":
		switch msg.Status {
		case "in-progress":
			ev.Type = EventCallStarted
		default:
			return Event{}, false, nil
		}
	default:
		return Event{}, false, nil
	}
	return ev, true, nil
}
