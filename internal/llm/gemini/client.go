// Package gemini implements llm.Completer on the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"recruitai-backend/internal/llm"
	"recruitai-backend/internal/shared/metrics"
	"recruitai-backend/internal/shared/telemetry"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-2.5-flash"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client wraps genai Models for single-shot completions.
type Client struct {
	models contentGenerator
	model  string
}

// NewClient creates a client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, model string, httpClient *http.Client) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model = strings.TrimSpace(model); model == "" || strings.Contains(model, "/") {
		// OpenRouter-style ids do not resolve on the Gemini API.
		model = defaultModel
	}
	return &Client{models: client.Models, model: model}, nil
}

// Complete maps system messages to SystemInstruction and the rest to contents.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" || strings.Contains(model, "/") {
		model = c.model
	}

	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	var system []*genai.Part
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}

	resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return llm.Response{}, mapError(model, err)
	}

	var b strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part == nil || part.Text == "" {
					continue
				}
				b.WriteString(part.Text)
			}
			break
		}
	}
	text := strings.ReplaceAll(b.String(), "\x00", "")
	if strings.TrimSpace(text) == "" {
		return llm.Response{}, llm.ErrInvalidResponse
	}

	out := llm.Response{Content: text, Model: model}
	if resp.UsageMetadata != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func mapError(model string, err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("generate content: %w", err)
		}
		apiErr = *ptr
	}
	code := apiErr.Code
	// Gemini reports invalid keys as 400/403 with a status string.
	if code == http.StatusForbidden || apiErr.Status == "PERMISSION_DENIED" || apiErr.Status == "UNAUTHENTICATED" {
		code = http.StatusUnauthorized
	}
	if apiErr.Status == "RESOURCE_EXHAUSTED" {
		code = http.StatusTooManyRequests
	}
	out := llm.NewAPIError(providerName, code, apiErr.Status, apiErr.Message)
	out.StatusCode = apiErr.Code
	metrics.IncLLMError(providerName, string(out.Kind))
	telemetry.Warn("llm.error", map[string]any{
		"provider": providerName,
		"model":    model,
		"status":   apiErr.Code,
		"kind":     string(out.Kind),
	})
	return out
}
