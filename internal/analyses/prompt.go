package analyses

import (
	"encoding/json"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"recruitai-backend/internal/llm"
	"recruitai-backend/internal/shared/telemetry"
)

const (
	analysisMaxTokens = 8192
	analysisTemp      = 0.5
	chatMaxTokens     = 1024
	chatTemp          = 0.7
	parseMaxTokens    = 1024
	parseTemp         = 0.3
)

const analysisSystemPrompt = `You are an expert HR professional and technical recruiter. Analyze the resume against the job requirements and give a detailed, actionable assessment.
Return ONLY a valid JSON object with double-quoted keys and string values. No markdown, comments or text before or after the object.
Include every top-level field (candidate, overall_match, skills_analysis, experience_analysis, technical_fit, recommendations, interview_questions) even when a value is empty.
If you cannot answer, return {}.`

const analysisFormat = `Provide the analysis in this JSON format:
{
  "candidate": {"name": "string", "email": "string", "phone": "string", "education": [{"degree": "string", "institution": "string", "year": "string"}]},
  "overall_match": {"score": number (0-100), "summary": "string", "strengths": ["string"], "gaps": ["string"]},
  "skills_analysis": {"matching_skills": ["string"], "missing_skills": ["string"], "additional_skills": ["string"]},
  "experience_analysis": {"relevant_experience": ["string"], "experience_gaps": ["string"], "years_of_experience": number},
  "technical_fit": {"matching_technologies": ["string"], "missing_technologies": ["string"], "additional_technologies": ["string"]},
  "recommendations": {"interview_focus": ["string"], "development_areas": ["string"], "risk_factors": ["string"]},
  "interview_questions": [{"question": "string", "purpose": "string"}]
}

Focus on:
1. Technical skills and technologies required for the role
2. Relevant experience and projects
3. Years of experience in key areas
4. Achievements that demonstrate capability
5. Gaps to probe during the interview
6. Interview questions tailored to the candidate's background`

const chatSystemPrompt = `You are a recruitment assistant that ONLY answers questions about the candidate's resume analysis.
1. Only answer questions about the candidate's resume, skills, experience and job fit.
2. Politely decline anything else and redirect to resume-related topics.
3. Base answers ONLY on the provided analysis data.
4. Be professional and concise.
5. If the analysis data does not contain the answer, say so.`

const parseSystemPrompt = `You are an expert resume parser. Extract the following fields from the resume and return ONLY a valid JSON object. If you cannot extract the fields, return {}.
{
  "candidate": {"name": "string", "email": "string", "phone": "string", "location": "string", "linkedin": "string", "portfolio": "string"},
  "skills": ["string"],
  "education": [{"degree": "string", "institution": "string", "year": "string"}],
  "experience": [{"title": "string", "company": "string", "duration": "string", "description": "string"}],
  "projects": [{"name": "string", "description": "string"}],
  "certifications": ["string"],
  "languages": ["string"],
  "summary": "string",
  "keywords": ["string"]
}`

var (
	htmlTag        = regexp.MustCompile(`(?i)</?(p|div|br|ul|ol|li|h[1-6]|strong|em|b|i|span|a|table|tr|td)\b[^>]*>`)
	excessNewlines = regexp.MustCompile(`\n{3,}`)
)

// NormalizeJobDescription converts HTML job posts to markdown and strips NUL characters.
func NormalizeJobDescription(jd string) string {
	jd = strings.ReplaceAll(jd, "\x00", "")
	if !htmlTag.MatchString(jd) {
		return strings.TrimSpace(jd)
	}
	md, err := htmltomarkdown.ConvertString(jd)
	if err != nil {
		telemetry.Warn("analysis.jd_convert_failed", map[string]any{"error": err})
		return strings.TrimSpace(jd)
	}
	return strings.TrimSpace(md)
}

func buildAnalysisMessages(resumeText, jobTitle, jobDescription string) []llm.Message {
	var b strings.Builder
	b.WriteString(analysisFormat)
	b.WriteString("\n\nResume text:\n")
	b.WriteString(strings.ReplaceAll(resumeText, "\x00", ""))
	b.WriteString("\n\nJob Requirements:\nJob Title: ")
	b.WriteString(jobTitle)
	b.WriteString("\nJob Description: ")
	b.WriteString(jobDescription)
	return []llm.Message{
		{Role: llm.RoleSystem, Content: analysisSystemPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}
}

func buildChatMessages(result AnalysisResult, question string) ([]llm.Message, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: chatSystemPrompt},
		{Role: llm.RoleUser, Content: "Here is the resume analysis data:\n" + string(data) + "\n\nQuestion: " + question},
	}, nil
}

func buildParseMessages(resumeText string) []llm.Message {
	cleaned := strings.ReplaceAll(resumeText, "\r\n", "\n")
	cleaned = excessNewlines.ReplaceAllString(cleaned, "\n\n")
	return []llm.Message{
		{Role: llm.RoleSystem, Content: parseSystemPrompt},
		{Role: llm.RoleUser, Content: strings.TrimSpace(cleaned)},
	}
}
