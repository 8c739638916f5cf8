package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"recruitai-backend/internal/extract"
	"recruitai-backend/internal/llm"
	"recruitai-backend/internal/shared/metrics"
	"recruitai-backend/internal/shared/storage/object"
	"recruitai-backend/internal/shared/telemetry"
)

// Service contains business logic for resume screenings.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
	LLM   llm.Completer
	Model string
	Now   func() time.Time
}

// AnalyzeInput is one uploaded resume plus the job it is screened against.
type AnalyzeInput struct {
	RecruiterID    string
	FileName       string
	Data           []byte
	JobTitle       string
	JobDescription string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Analyze extracts, screens, stores and records one resume. The result is validated before
// anything is persisted; a failed insert deletes the uploaded file again.
func (s *Service) Analyze(ctx context.Context, in AnalyzeInput) (Screening, error) {
	if strings.TrimSpace(in.RecruiterID) == "" || strings.TrimSpace(in.FileName) == "" {
		return Screening{}, fmt.Errorf("%w: recruiter and file are required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.JobTitle) == "" {
		return Screening{}, fmt.Errorf("%w: job title is required", ErrInvalidInput)
	}

	started := time.Now()
	metrics.IncAnalysisStarted()
	screening, err := s.analyze(ctx, in)
	metrics.ObserveAnalysisDuration(time.Since(started))
	if err != nil {
		metrics.IncAnalysisFailed()
		telemetry.Warn("analysis.failed", map[string]any{
			"recruiter_id": in.RecruiterID,
			"file_name":    in.FileName,
			"error":        err,
		})
		return Screening{}, err
	}
	metrics.IncAnalysisCompleted()
	telemetry.Info("analysis.completed", map[string]any{
		"screening_id": screening.ID,
		"recruiter_id": screening.RecruiterID,
		"incomplete":   screening.Incomplete,
		"duration_ms":  time.Since(started).Milliseconds(),
	})
	return screening, nil
}

func (s *Service) analyze(ctx context.Context, in AnalyzeInput) (Screening, error) {
	text, err := extract.Extract(ctx, in.FileName, in.Data)
	if err != nil {
		return Screening{}, err
	}
	if strings.TrimSpace(text.String()) == "" {
		return Screening{}, ErrEmptyResume
	}

	jobDescription := NormalizeJobDescription(in.JobDescription)
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Messages:    buildAnalysisMessages(text.String(), strings.TrimSpace(in.JobTitle), jobDescription),
		Model:       s.Model,
		Temperature: analysisTemp,
		MaxTokens:   analysisMaxTokens,
	})
	if err != nil {
		return Screening{}, err
	}

	result, err := ParseResult(resp.Content)
	if err != nil {
		return Screening{}, err
	}

	key, _, _, err := s.Store.Save(ctx, in.RecruiterID, in.FileName, bytes.NewReader(in.Data))
	if err != nil {
		return Screening{}, fmt.Errorf("store resume: %w", err)
	}

	screening := Screening{
		ID:             uuid.NewString(),
		RecruiterID:    in.RecruiterID,
		FileName:       in.FileName,
		FileKey:        key,
		JobRole:        strings.TrimSpace(in.JobTitle),
		JobDescription: jobDescription,
		CandidateName:  result.CandidateName(),
		CandidateEmail: result.CandidateEmail(),
		Score:          result.Score(),
		AnalysisRaw:    resp.Content,
		Analysis:       result,
		Incomplete:     result.Incomplete(),
		Missing:        result.Missing(),
		UploadedAt:     s.now(),
	}
	if err := s.Repo.Create(ctx, screening); err != nil {
		s.deleteBlob(key)
		return Screening{}, err
	}
	return screening, nil
}

// deleteBlob runs with a fresh context so a canceled request still cleans up.
func (s *Service) deleteBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Error("analysis.blob_cleanup_failed", map[string]any{"file_key": key, "error": err})
	}
}

// Get returns one screening.
func (s *Service) Get(ctx context.Context, recruiterID, id string) (Screening, error) {
	return s.Repo.Get(ctx, recruiterID, id)
}

// List returns the recruiter's screenings, newest first.
func (s *Service) List(ctx context.Context, recruiterID string, limit, offset int) ([]Screening, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.ListByRecruiter(ctx, recruiterID, limit, offset)
}

// Delete removes the screening and its uploaded file.
func (s *Service) Delete(ctx context.Context, recruiterID, id string) error {
	screening, err := s.Repo.Get(ctx, recruiterID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, recruiterID, id); err != nil {
		return err
	}
	if screening.FileKey != "" {
		s.deleteBlob(screening.FileKey)
	}
	return nil
}

// Ask answers a question using only the stored analysis.
func (s *Service) Ask(ctx context.Context, recruiterID, id, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	screening, err := s.Repo.Get(ctx, recruiterID, id)
	if err != nil {
		return "", err
	}
	messages, err := buildChatMessages(screening.Analysis, question)
	if err != nil {
		return "", err
	}
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Messages:    messages,
		Model:       s.Model,
		Temperature: chatTemp,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// ParseResume extracts a structured profile. Failures yield an empty profile.
func (s *Service) ParseResume(ctx context.Context, resumeText string) CandidateProfile {
	profile := emptyProfile()
	if strings.TrimSpace(resumeText) == "" {
		return profile
	}
	resp, err := s.LLM.Complete(ctx, llm.Request{
		Messages:    buildParseMessages(resumeText),
		Model:       s.Model,
		Temperature: parseTemp,
		MaxTokens:   parseMaxTokens,
	})
	if err != nil {
		telemetry.Warn("analysis.parse_resume_failed", map[string]any{"error": err})
		return profile
	}
	body, err := outerObject(resp.Content)
	if err != nil {
		telemetry.Warn("analysis.parse_resume_failed", map[string]any{"error": err})
		return profile
	}
	var parsed CandidateProfile
	if err := json.Unmarshal(body, &parsed); err != nil {
		telemetry.Warn("analysis.parse_resume_failed", map[string]any{"error": err})
		return profile
	}
	parsed.fillDefaults()
	return parsed
}

// ParseFile extracts text from an uploaded resume and parses it into a profile.
func (s *Service) ParseFile(ctx context.Context, fileName string, data []byte) (CandidateProfile, error) {
	text, err := extract.Extract(ctx, fileName, data)
	if err != nil {
		return CandidateProfile{}, err
	}
	return s.ParseResume(ctx, text.String()), nil
}
