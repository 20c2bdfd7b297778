package scan

import (
	"time"

	"github.com/codesentry/codesentry/internal/rules"
)

// Status is the lifecycle state of a scan run. Transitions are monotonic:
// PENDING -> RUNNING -> {COMPLETED, FAILED}, and the terminal states admit
// no further transition.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// IsValid checks if the status is one of the lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Mode selects the evaluation path for a run.
type Mode string

const (
	// ModeBasic evaluates via the in-process pattern matcher.
	ModeBasic Mode = "BASIC"
	// ModeDeep delegates to the external static-analysis service.
	ModeDeep Mode = "DEEP"
)

// ReviewStatus is the triage state of a finding.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewReviewed ReviewStatus = "REVIEWED"
	ReviewFixed    ReviewStatus = "FIXED"
	ReviewIgnored  ReviewStatus = "IGNORED"
)

// IsValid checks if the review status is one of the triage states.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewPending, ReviewReviewed, ReviewFixed, ReviewIgnored:
		return true
	}
	return false
}

// Run is one execution of the evaluation pipeline against a repository.
type Run struct {
	ID              string     `json:"id"`
	RepositoryURL   string     `json:"repository_url"`
	RepositoryOwner string     `json:"repository_owner"`
	RepositoryName  string     `json:"repository_name"`
	Mode            Mode       `json:"scan_type"`
	Status          Status     `json:"scan_status"`
	StartedAt       time.Time  `json:"scan_started_at"`
	CompletedAt     *time.Time `json:"scan_completed_at,omitempty"`
	// Duration is derived at completion time, in whole seconds.
	Duration          int      `json:"scan_duration"`
	TotalFilesScanned int      `json:"total_files_scanned"`
	TotalIssuesFound  int      `json:"total_issues_found"`
	HighCount         int      `json:"high_severity_count"`
	MediumCount       int      `json:"medium_severity_count"`
	LowCount          int      `json:"low_severity_count"`
	RulesUsed         []string `json:"rules_used"`
	// Deep carries the external-service payload for DEEP runs.
	Deep *DeepPayload `json:"deep,omitempty"`
}

// DeepPayload is the opaque external-service result attached to a DEEP run.
type DeepPayload struct {
	ProjectKey string      `json:"project_key"`
	Summary    Summary     `json:"summary"`
	Measures   interface{} `json:"measures,omitempty"`
	Issues     interface{} `json:"issues,omitempty"`
}

// Summary is the metric roll-up derived from the external service's measures.
// Absent metrics default to zero.
type Summary struct {
	Bugs             int     `json:"bugs"`
	Vulnerabilities  int     `json:"vulnerabilities"`
	CodeSmells       int     `json:"code_smells"`
	SecurityHotspots int     `json:"security_hotspots"`
	Coverage         float64 `json:"coverage"`
	DuplicatedLines  float64 `json:"duplicated_lines"`
	LinesOfCode      int     `json:"lines_of_code"`
	Complexity       int     `json:"complexity"`
	TotalIssues      int     `json:"total_issues"`
}

// Finding is a single reported issue produced by matching a rule or by the
// external analysis service. It carries a denormalized snapshot of the rule
// so it stays interpretable after the rule is changed or deleted.
type Finding struct {
	ID            string         `json:"id"`
	RunID         string         `json:"scan_id"`
	RuleID        string         `json:"rule_id"`
	RuleName      string         `json:"rule_name"`
	IssueType     string         `json:"issue_type"`
	Severity      rules.Severity `json:"severity"`
	Category      string         `json:"category"`
	FilePath      string         `json:"file_path"`
	LineNumber    int            `json:"line_number,omitempty"`
	ColumnNumber  int            `json:"column_number,omitempty"`
	Description   string         `json:"description"`
	FixSuggestion string         `json:"fix_suggestion,omitempty"`
	CodeSnippet   string         `json:"code_snippet,omitempty"`
	ReviewStatus  ReviewStatus   `json:"status"`
	Confidence    int            `json:"confidence_level"`
	CreatedAt     time.Time      `json:"created_at"`
}

// SeverityCounts is a total map from the closed severity set to counters, so
// an unrecognized severity can never produce an undefined bucket.
type SeverityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Add increments the counter for the given severity.
func (c *SeverityCounts) Add(severity rules.Severity) {
	switch severity {
	case rules.SeverityHigh:
		c.High++
	case rules.SeverityMedium:
		c.Medium++
	case rules.SeverityLow:
		c.Low++
	}
}

// Total returns the sum of all counters.
func (c SeverityCounts) Total() int {
	return c.High + c.Medium + c.Low
}

// CountSeverities folds the findings into a severity count roll-up.
func CountSeverities(findings []Finding) SeverityCounts {
	var counts SeverityCounts
	for _, finding := range findings {
		counts.Add(finding.Severity)
	}
	return counts
}
