// Package voice runs voice interviews through the Vapi REST API.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.vapi.ai"
	DefaultVoiceID = "en-US-Neural2-F"
	DefaultModel   = "gpt-4"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("voice interviews are not configured")

// APIError is a non-2xx response from Vapi.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vapi: %d %s", e.StatusCode, e.Message)
}

// AssistantConfig describes the voice agent conducting one interview.
type AssistantConfig struct {
	Name         string
	FirstMessage string
	SystemPrompt string
	Model        string
	ModelVendor  string
	Temperature  float32
	VoiceID      string
	VoiceVendor  string
}

// Assistant is a created voice agent.
type Assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Call is a started call.
type Call struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistantId"`
	Status      string `json:"status"`
}

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the Vapi REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns ErrDisabled when the key is blank.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrDisabled
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{apiKey: opts.APIKey, baseURL: base, httpClient: hc}, nil
}

// InterviewAssistant builds the interviewer agent for a role.
func InterviewAssistant(jobRole string, skills []string) AssistantConfig {
	return AssistantConfig{
		Name:         "Interviewer for " + jobRole,
		FirstMessage: fmt.Sprintf("Hello! Thanks for joining this interview for the %s position. Shall we begin?", jobRole),
		SystemPrompt: fmt.Sprintf(
			"You are conducting a technical interview for a %s position. Key skills to assess: %s. "+
				"Ask relevant technical questions and evaluate the candidate's responses. "+
				"Be professional and maintain a conversational tone.",
			jobRole, strings.Join(skills, ", ")),
		Model:       DefaultModel,
		ModelVendor: "openai",
		Temperature: 0.7,
		VoiceID:     DefaultVoiceID,
		VoiceVendor: "azure",
	}
}

type promptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type modelSpec struct {
	Provider    string          `json:"provider"`
	Model       string          `json:"model"`
	Temperature float32         `json:"temperature"`
	Messages    []promptMessage `json:"messages,omitempty"`
}

type voiceSpec struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type assistantPayload struct {
	Name         string    `json:"name"`
	FirstMessage string    `json:"firstMessage,omitempty"`
	Model        modelSpec `json:"model"`
	Voice        voiceSpec `json:"voice"`
}

// CreateAssistant registers an assistant and returns its id.
func (c *Client) CreateAssistant(ctx context.Context, cfg AssistantConfig) (Assistant, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoiceID
	}
	p := assistantPayload{
		Name:         cfg.Name,
		FirstMessage: cfg.FirstMessage,
		Model:        modelSpec{Provider: cfg.ModelVendor, Model: cfg.Model, Temperature: cfg.Temperature},
		Voice:        voiceSpec{Provider: cfg.VoiceVendor, VoiceID: cfg.VoiceID},
	}
	if cfg.SystemPrompt != "" {
		p.Model.Messages = []promptMessage{{Role: "system", Content: cfg.SystemPrompt}}
	}

	var out Assistant
	err := c.do(ctx, http.MethodPost, "/assistant", p, &out)
	return out, err
}

// StartCall starts a web call for an assistant. Metadata is echoed back on webhook events.
func (c *Client) StartCall(ctx context.Context, assistantID string, metadata map[string]string) (Call, error) {
	body := map[string]any{"assistantId": assistantID}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}
	var out Call
	err := c.do(ctx, http.MethodPost, "/call/web", body, &out)
	return out, err
}

// StopCall ends a running call.
func (c *Client) StopCall(ctx context.Context, callID string) error {
	return c.do(ctx, http.MethodDelete, "/call/"+url.PathEscape(callID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vapi %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiMessage(raw, resp.Status)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode vapi response: %w", err)
	}
	return nil
}

func apiMessage(raw []byte, fallback string) string {
	var parsed struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		for _, v := range []any{parsed.Message, parsed.Error} {
			switch m := v.(type) {
			case string:
				if m != "" {
					return m
				}
			case []any:
				if len(m) > 0 {
					return fmt.Sprint(m[0])
				}
			}
		}
	}
	return fallback
}
