package sonar

import (
	"strconv"

	"github.com/codesentry/codesentry/internal/scan"
)

// Summarize derives the metric roll-up from a raw analysis result. Every
// absent metric defaults to zero.
func Summarize(result *Result) scan.Summary {
	var summary scan.Summary
	if result == nil {
		return summary
	}

	metrics := indexMeasures(result.Measures)
	summary.Bugs = intMetric(metrics, "bugs")
	summary.Vulnerabilities = intMetric(metrics, "vulnerabilities")
	summary.CodeSmells = intMetric(metrics, "code_smells")
	summary.SecurityHotspots = intMetric(metrics, "security_hotspots")
	summary.Coverage = floatMetric(metrics, "coverage")
	summary.DuplicatedLines = floatMetric(metrics, "duplicated_lines_density")
	summary.LinesOfCode = intMetric(metrics, "ncloc")
	summary.Complexity = intMetric(metrics, "complexity")
	if result.Issues != nil {
		summary.TotalIssues = result.Issues.Total
	}
	return summary
}

func indexMeasures(measures *MeasuresResponse) map[string]string {
	indexed := make(map[string]string)
	if measures == nil {
		return indexed
	}
	for _, measure := range measures.Component.Measures {
		indexed[measure.Metric] = measure.Value
	}
	return indexed
}

func intMetric(metrics map[string]string, key string) int {
	value, err := strconv.Atoi(metrics[key])
	if err != nil {
		return 0
	}
	return value
}

func floatMetric(metrics map[string]string, key string) float64 {
	value, err := strconv.ParseFloat(metrics[key], 64)
	if err != nil {
		return 0
	}
	return value
}
