package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    Role
	Content string
}

// Request is a single non-streaming completion call.
type Request struct {
	Messages    []Message
	Model       string
	Temperature float32
	MaxTokens   int
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the first completion choice.
type Response struct {
	Content string
	Model   string
	Usage   *Usage
}

// Completer abstracts LLM providers.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Kind classifies provider failures.
type Kind string

const (
	KindAuth      Kind = "auth"
	KindPayment   Kind = "payment"
	KindRateLimit Kind = "rate_limit"
	KindGeneric   Kind = "generic"
)

// ErrInvalidResponse is returned when a 2xx body carries no usable message.
var ErrInvalidResponse = errors.New("invalid response format from LLM provider")

// APIError is a non-2xx provider response.
type APIError struct {
	Kind       Kind
	StatusCode int
	Status     string
	Provider   string
	Message    string
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindAuth:
		return fmt.Sprintf("%s: authentication failed, check the API key", e.Provider)
	case KindPayment:
		return fmt.Sprintf("%s: payment required, check account credits", e.Provider)
	case KindRateLimit:
		return fmt.Sprintf("%s: rate limit exceeded, try again later", e.Provider)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: API error: %d (%s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: API error: %d (%s)", e.Provider, e.StatusCode, e.Status)
}

// KindFromStatus maps an HTTP status code to a Kind.
func KindFromStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusPaymentRequired:
		return KindPayment
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindGeneric
	}
}

// NewAPIError builds an APIError for a status code.
func NewAPIError(provider string, code int, status, message string) *APIError {
	if status == "" {
		status = http.StatusText(code)
	}
	return &APIError{Kind: KindFromStatus(code), StatusCode: code, Status: status, Provider: provider, Message: message}
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// DisabledCompleter fails every call with an auth error. Used in dev when no key is configured.
type DisabledCompleter struct {
	Provider string
}

// Complete always returns an auth APIError.
func (d DisabledCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	_ = ctx
	_ = req
	provider := d.Provider
	if provider == "" {
		provider = "llm"
	}
	return Response{}, &APIError{
		Kind:       KindAuth,
		StatusCode: http.StatusUnauthorized,
		Status:     http.StatusText(http.StatusUnauthorized),
		Provider:   provider,
		Message:    "no API key configured",
	}
}
