package sonar

import (
	"fmt"
	"strings"

	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/internal/scan"
)

// CategoryTag marks findings sourced from the external analysis service.
const CategoryTag = "SonarQube"

// severityMap is the fixed, total mapping from the service's severity
// vocabulary to the canonical one.
var severityMap = map[string]rules.Severity{
	"BLOCKER":  rules.SeverityHigh,
	"CRITICAL": rules.SeverityHigh,
	"MAJOR":    rules.SeverityMedium,
	"MINOR":    rules.SeverityLow,
	"INFO":     rules.SeverityLow,
}

// MapSeverity maps an external severity value to the canonical set. Unknown
// or missing values map to MEDIUM; the mapping never fails.
func MapSeverity(external string) rules.Severity {
	if severity, ok := severityMap[strings.ToUpper(external)]; ok {
		return severity
	}
	return rules.SeverityMedium
}

// ConvertIssues maps the service's issues into findings. Identity fields
// (finding id, run id, creation time) are left for the caller to assign.
func ConvertIssues(issues *IssueSearchResponse) []scan.Finding {
	if issues == nil {
		return nil
	}

	findings := make([]scan.Finding, 0, len(issues.Issues))
	for _, issue := range issues.Issues {
		ruleID := issue.Rule
		if ruleID == "" {
			ruleID = "SONAR_RULE"
		}
		ruleName := issue.Message
		if ruleName == "" {
			ruleName = "SonarQube Issue"
		}
		issueType := issue.Type
		if issueType == "" {
			issueType = "CODE_SMELL"
		}
		description := issue.Message
		if description == "" {
			description = "Issue detected by SonarQube"
		}

		findings = append(findings, scan.Finding{
			RuleID:        ruleID,
			RuleName:      ruleName,
			IssueType:     issueType,
			Severity:      MapSeverity(issue.Severity),
			Category:      CategoryTag,
			FilePath:      componentPath(issue.Component),
			LineNumber:    issue.Line,
			Description:   description,
			FixSuggestion: fmt.Sprintf("Fix this %s issue. Rule: %s", issueType, ruleID),
			ReviewStatus:  scan.ReviewPending,
		})
	}
	return findings
}

// componentPath strips the project-key prefix from an external component
// identifier, leaving the repository-relative file path.
func componentPath(component string) string {
	if component == "" {
		return "Unknown"
	}
	if idx := strings.LastIndex(component, ":"); idx >= 0 {
		return component[idx+1:]
	}
	return component
}
