package rules

import (
	"regexp"
	"strings"
	"time"

	"github.com/codesentry/codesentry/pkg/shared/errors"
)

// Severity is the canonical impact ranking used throughout the system,
// regardless of the vocabulary of the source that produced a finding.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// IsValid checks if the severity is one of the canonical values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Rank orders severities for sorting: HIGH > MEDIUM > LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ParseSeverity converts a string to a Severity, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(s))
	if !sev.IsValid() {
		return "", errors.NewValidationError("severity", "must be one of HIGH, MEDIUM, LOW")
	}
	return sev, nil
}

// Rule is a named pattern-plus-metadata definition used to detect an issue class.
type Rule struct {
	ID             string    `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Description    string    `json:"description" yaml:"description"`
	Pattern        string    `json:"pattern" yaml:"pattern"`
	Severity       Severity  `json:"severity" yaml:"severity"`
	Category       string    `json:"category" yaml:"category"`
	Language       string    `json:"language,omitempty" yaml:"language,omitempty"`
	FileExtensions []string  `json:"file_extensions,omitempty" yaml:"file_extensions,omitempty"`
	FixSuggestion  string    `json:"fix_suggestion,omitempty" yaml:"fix_suggestion,omitempty"`
	Active         bool      `json:"is_active" yaml:"is_active"`
	Custom         bool      `json:"is_custom" yaml:"is_custom"`
	UsageCount     int       `json:"usage_count" yaml:"usage_count"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

// Compile builds the case-insensitive matcher for the rule's pattern.
func (r *Rule) Compile() (*regexp.Regexp, error) {
	return CompilePattern(r.Pattern)
}

// AppliesTo reports whether the rule should be evaluated against the file at
// the given path. An empty extension filter means the rule applies everywhere.
func (r *Rule) AppliesTo(path string) bool {
	if len(r.FileExtensions) == 0 {
		return true
	}
	lower := strings.ToLower(path)
	for _, ext := range r.FileExtensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// CompilePattern compiles a rule pattern as a case-insensitive regular expression.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// validate checks the required fields of a rule and that its pattern compiles.
func validate(r *Rule) error {
	switch {
	case r.ID == "":
		return errors.NewValidationError("id", "is required")
	case r.Name == "":
		return errors.NewValidationError("name", "is required")
	case r.Description == "":
		return errors.NewValidationError("description", "is required")
	case r.Pattern == "":
		return errors.NewValidationError("pattern", "is required")
	case r.Category == "":
		return errors.NewValidationError("category", "is required")
	}
	if !r.Severity.IsValid() {
		return errors.NewValidationError("severity", "must be one of HIGH, MEDIUM, LOW")
	}
	if _, err := CompilePattern(r.Pattern); err != nil {
		return errors.NewValidationError("pattern", "is not a valid regular expression: "+err.Error())
	}
	return nil
}
