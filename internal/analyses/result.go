package analyses

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// AnalysisResult is the typed screening produced by the completer. Every section is optional.
type AnalysisResult struct {
	Candidate          *Candidate          `json:"candidate,omitempty"`
	OverallMatch       *OverallMatch       `json:"overall_match,omitempty"`
	SkillsAnalysis     *SkillsAnalysis     `json:"skills_analysis,omitempty"`
	ExperienceAnalysis *ExperienceAnalysis `json:"experience_analysis,omitempty"`
	TechnicalFit       *TechnicalFit       `json:"technical_fit,omitempty"`
	Recommendations    *Recommendations    `json:"recommendations,omitempty"`
	InterviewQuestions []InterviewQuestion `json:"interview_questions"`
}

type Candidate struct {
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Education []Education `json:"education"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

type OverallMatch struct {
	Score     *float64 `json:"score,omitempty"`
	Summary   string   `json:"summary"`
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

type SkillsAnalysis struct {
	MatchingSkills   []string `json:"matching_skills"`
	MissingSkills    []string `json:"missing_skills"`
	AdditionalSkills []string `json:"additional_skills"`
}

type ExperienceAnalysis struct {
	RelevantExperience []string `json:"relevant_experience"`
	ExperienceGaps     []string `json:"experience_gaps"`
	YearsOfExperience  *float64 `json:"years_of_experience,omitempty"`
}

type TechnicalFit struct {
	MatchingTechnologies   []string `json:"matching_technologies"`
	MissingTechnologies    []string `json:"missing_technologies"`
	AdditionalTechnologies []string `json:"additional_technologies"`
}

type Recommendations struct {
	InterviewFocus   []string `json:"interview_focus"`
	DevelopmentAreas []string `json:"development_areas"`
	RiskFactors      []string `json:"risk_factors"`
}

type InterviewQuestion struct {
	Question string `json:"question"`
	Purpose  string `json:"purpose"`
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ParseResult validates raw completion output. Code fences and text around the outermost
// object are tolerated; anything else that is not a well-typed object is ErrMalformedResult.
func ParseResult(raw string) (AnalysisResult, error) {
	body, err := outerObject(raw)
	if err != nil {
		return AnalysisResult{}, err
	}

	var out AnalysisResult
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&out); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	if out.OverallMatch != nil && out.OverallMatch.Score != nil {
		if s := *out.OverallMatch.Score; s < 0 || s > 100 {
			return AnalysisResult{}, fmt.Errorf("%w: score %v outside 0-100", ErrMalformedResult, s)
		}
	}
	if out.ExperienceAnalysis != nil && out.ExperienceAnalysis.YearsOfExperience != nil {
		if y := *out.ExperienceAnalysis.YearsOfExperience; y < 0 {
			return AnalysisResult{}, fmt.Errorf("%w: negative years of experience", ErrMalformedResult)
		}
	}
	return out, nil
}

func outerObject(raw string) ([]byte, error) {
	s := strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "```json"), "```"))
	if strings.HasPrefix(s, "[") {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedResult)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrMalformedResult)
	}
	body := []byte(s[start : end+1])
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResult)
	}
	return body, nil
}

// Missing lists absent top-level sections.
func (r AnalysisResult) Missing() []string {
	var out []string
	if r.Candidate == nil {
		out = append(out, "candidate")
	}
	if r.OverallMatch == nil {
		out = append(out, "overall_match")
	}
	if r.SkillsAnalysis == nil {
		out = append(out, "skills_analysis")
	}
	if r.ExperienceAnalysis == nil {
		out = append(out, "experience_analysis")
	}
	if r.TechnicalFit == nil {
		out = append(out, "technical_fit")
	}
	if r.Recommendations == nil {
		out = append(out, "recommendations")
	}
	if r.InterviewQuestions == nil {
		out = append(out, "interview_questions")
	}
	return out
}

// Incomplete reports whether any top-level section is absent.
func (r AnalysisResult) Incomplete() bool {
	return len(r.Missing()) > 0
}

// CandidateName returns the extracted name or "".
func (r AnalysisResult) CandidateName() string {
	if r.Candidate == nil {
		return ""
	}
	return strings.TrimSpace(r.Candidate.Name)
}

// CandidateEmail returns the extracted email or "".
func (r AnalysisResult) CandidateEmail() string {
	if r.Candidate == nil {
		return ""
	}
	return strings.TrimSpace(r.Candidate.Email)
}

// Score returns the rounded match score when present.
func (r AnalysisResult) Score() *int {
	if r.OverallMatch == nil || r.OverallMatch.Score == nil {
		return nil
	}
	v := int(*r.OverallMatch.Score + 0.5)
	return &v
}
