package analyses

import (
	"encoding/json"
	"time"
)

// Screening is a stored resume analysis.
type Screening struct {
	ID             string         `json:"id"`
	RecruiterID    string         `json:"recruiterId"`
	FileName       string         `json:"fileName"`
	FileKey        string         `json:"fileKey"`
	JobRole        string         `json:"jobRole"`
	JobDescription string         `json:"jobDescription"`
	CandidateName  string         `json:"candidateName"`
	CandidateEmail string         `json:"candidateEmail"`
	Score          *int           `json:"score,omitempty"`
	AnalysisRaw    string         `json:"-"`
	Analysis       AnalysisResult `json:"analysis"`
	Incomplete     bool           `json:"incomplete"`
	Missing        []string       `json:"missingSections,omitempty"`
	UploadedAt     time.Time      `json:"uploadedAt"`
}

// CandidateProfile is structured data parsed out of a resume.
type CandidateProfile struct {
	Candidate struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Location  string `json:"location"`
		LinkedIn  string `json:"linkedin"`
		Portfolio string `json:"portfolio"`
	} `json:"candidate"`
	Skills         []string          `json:"skills"`
	Education      []Education       `json:"education"`
	Experience     []ProfileRole     `json:"experience"`
	Projects       []ProfileProject  `json:"projects"`
	Certifications []json.RawMessage `json:"certifications"`
	Languages      []json.RawMessage `json:"languages"`
	Summary        string            `json:"summary"`
	Keywords       []string          `json:"keywords"`
}

type ProfileRole struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

type ProfileProject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// emptyProfile has every list non-nil so callers can range without checks.
func emptyProfile() CandidateProfile {
	return CandidateProfile{
		Skills:         []string{},
		Education:      []Education{},
		Experience:     []ProfileRole{},
		Projects:       []ProfileProject{},
		Certifications: []json.RawMessage{},
		Languages:      []json.RawMessage{},
		Keywords:       []string{},
	}
}

func (p *CandidateProfile) fillDefaults() {
	def := emptyProfile()
	if p.Skills == nil {
		p.Skills = def.Skills
	}
	if p.Education == nil {
		p.Education = def.Education
	}
	if p.Experience == nil {
		p.Experience = def.Experience
	}
	if p.Projects == nil {
		p.Projects = def.Projects
	}
	if p.Certifications == nil {
		p.Certifications = def.Certifications
	}
	if p.Languages == nil {
		p.Languages = def.Languages
	}
	if p.Keywords == nil {
		p.Keywords = def.Keywords
	}
}
