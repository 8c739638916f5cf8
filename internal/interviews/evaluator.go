package interviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"recruitai-backend/internal/llm"
)

// Evaluator scores an interview transcript.
type Evaluator interface {
	Evaluate(ctx context.Context, transcript, jobRole string, skills []string) (Evaluation, error)
}

const evaluatorSystemPrompt = `You are an expert technical interviewer. Evaluate the interview transcript for the given role.
Return ONLY a JSON object: {"score": number 0-100, "summary": "string", "recommendation": "hire" | "consider" | "reject", "strengths": ["string"], "concerns": ["string"]}.
Unanswered questions count against the candidate. Do not include text outside the JSON object.`

// LLMEvaluator asks a completer to grade the transcript.
type LLMEvaluator struct {
	LLM   llm.Completer
	Model string
}

func (e LLMEvaluator) Evaluate(ctx context.Context, transcript, jobRole string, skills []string) (Evaluation, error) {
	if e.LLM == nil {
		return Evaluation{}, errors.New("evaluator has no completer")
	}
	user := fmt.Sprintf("Role: %s\nKey skills: %s\n\nTranscript:\n%s", jobRole, strings.Join(skills, ", "), transcript)
	resp, err := e.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: evaluatorSystemPrompt},
			{Role: llm.RoleUser, Content: user},
		},
		Model:       e.Model,
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		return Evaluation{}, err
	}
	return parseEvaluation(resp.Content)
}

func parseEvaluation(raw string) (Evaluation, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return Evaluation{}, errors.New("evaluation is not a JSON object")
	}
	var decoded struct {
		Evaluation
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		return Evaluation{}, fmt.Errorf("decode evaluation: %w", err)
	}
	ev := decoded.Evaluation
	ev.Score = nil
	if decoded.Score != nil {
		if *decoded.Score < 0 || *decoded.Score > 100 {
			return Evaluation{}, fmt.Errorf("evaluation score %v outside 0-100", *decoded.Score)
		}
		score := int(math.Round(*decoded.Score))
		ev.Score = &score
	}
	ev.Recommendation = normalizeWord(ev.Recommendation)
	return ev, nil
}

func normalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
