package sarifreport

import (
	"fmt"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/internal/scan"
)

const toolName = "codesentry"
const toolURI = "https://github.com/codesentry/codesentry"

// Build renders a run's findings as a SARIF report, one SARIF result per
// finding, with the rule snapshots captured at evaluation time as reporting
// descriptors.
func Build(run *scan.Run, findings []scan.Finding) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	sarifRun := sarif.NewRunWithInformationURI(toolName, toolURI)
	sarifRun.Properties = sarif.Properties{
		"repository_url": run.RepositoryURL,
		"scan_id":        run.ID,
		"scan_type":      string(run.Mode),
	}

	seenRules := make(map[string]bool)
	for _, finding := range findings {
		if !seenRules[finding.RuleID] {
			descriptor := sarifRun.AddRule(finding.RuleID).
				WithName(finding.RuleName).
				WithDescription(finding.Description)
			if finding.FixSuggestion != "" {
				descriptor.WithHelp(sarif.NewMultiformatMessageString(finding.FixSuggestion))
			}
			seenRules[finding.RuleID] = true
		}

		result := sarifRun.CreateResultForRule(finding.RuleID).
			WithLevel(severityLevel(finding.Severity)).
			WithMessage(sarif.NewTextMessage(finding.Description))

		location := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewSimpleArtifactLocation(finding.FilePath))
		if finding.LineNumber > 0 {
			location.WithRegion(sarif.NewSimpleRegion(finding.LineNumber, finding.LineNumber))
		}
		result.AddLocation(sarif.NewLocationWithPhysicalLocation(location))
	}

	report.AddRun(sarifRun)
	return report, nil
}

// WriteFile renders the run's findings and writes the SARIF report to path.
func WriteFile(run *scan.Run, findings []scan.Finding, path string) error {
	report, err := Build(run, findings)
	if err != nil {
		return err
	}
	if err := report.WriteFile(path); err != nil {
		return fmt.Errorf("failed to write SARIF report to %q: %w", path, err)
	}
	return nil
}

func severityLevel(severity rules.Severity) string {
	switch severity {
	case rules.SeverityHigh:
		return "error"
	case rules.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
