package forms

import (
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultFields returns the four required fields every new form starts with.
func DefaultFields(formID string) []Field {
	specs := []struct {
		typ         FieldType
		label       string
		placeholder string
	}{
		{FieldText, "Full Name", "Enter your full name"},
		{FieldEmail, "Email Address", "Enter your email address"},
		{FieldFile, "Resume", "Upload your resume (PDF, DOC, DOCX)"},
		{FieldTextarea, "Why are you interested in this position?", "Tell us why you're interested..."},
	}
	out := make([]Field, len(specs))
	for i, s := range specs {
		out[i] = Field{
			ID:              uuid.NewString(),
			FormID:          formID,
			Type:            s.typ,
			Label:           s.label,
			Placeholder:     s.placeholder,
			Required:        true,
			Options:         []string{},
			ValidationRules: map[string]any{},
			OrderIndex:      i,
		}
	}
	return out
}

// validateValue checks a non-file answer against its field type. Empty values pass;
// requiredness is checked separately.
func validateValue(f Field, values []string) string {
	joined := strings.TrimSpace(strings.Join(values, ""))
	if joined == "" {
		return ""
	}
	v := strings.TrimSpace(values[0])
	switch f.Type {
	case FieldEmail:
		if addr, err := mail.ParseAddress(v); err != nil || addr.Address != v {
			return "must be a valid email address"
		}
	case FieldNumber:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return "must be a number"
		}
	case FieldURL:
		if u, err := url.ParseRequestURI(v); err != nil || u.Host == "" {
			return "must be a valid URL"
		}
	case FieldDate:
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return "must be a date (YYYY-MM-DD)"
		}
	case FieldSelect, FieldRadio, FieldCheckbox:
		if len(f.Options) == 0 {
			return ""
		}
		for _, val := range values {
			if !containsFold(f.Options, strings.TrimSpace(val)) {
				return "must be one of the listed options"
			}
		}
	}
	return ""
}

func containsFold(options []string, v string) bool {
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return true
		}
	}
	return false
}

func isNameLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "name")
}
