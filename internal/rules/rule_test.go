package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected Severity
		wantErr  bool
	}{
		{name: "upper case", input: "HIGH", expected: SeverityHigh},
		{name: "lower case", input: "medium", expected: SeverityMedium},
		{name: "mixed case", input: "Low", expected: SeverityLow},
		{name: "unknown value", input: "CRITICAL", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseSeverity(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 0, Severity("BOGUS").Rank())
}

func TestCompilePatternIsCaseInsensitive(t *testing.T) {
	re, err := CompilePattern(`eval\s*\(`)
	require.NoError(t, err)

	assert.True(t, re.MatchString("EVAL ("))
	assert.True(t, re.MatchString("eval("))
	assert.False(t, re.MatchString("evaluate"))
}

func TestRuleAppliesTo(t *testing.T) {
	testCases := []struct {
		name       string
		extensions []string
		path       string
		expected   bool
	}{
		{name: "no filter applies everywhere", extensions: nil, path: "src/main.go", expected: true},
		{name: "matching extension", extensions: []string{".js", ".ts"}, path: "src/app.js", expected: true},
		{name: "case insensitive extension", extensions: []string{".js"}, path: "src/App.JS", expected: true},
		{name: "non matching extension", extensions: []string{".js"}, path: "src/main.py", expected: false},
		{name: "full file name filter", extensions: []string{"package.json"}, path: "service/package.json", expected: true},
		{name: "full file name mismatch", extensions: []string{"package.json"}, path: "service/package-lock.json", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rule := Rule{FileExtensions: tc.extensions}
			assert.Equal(t, tc.expected, rule.AppliesTo(tc.path))
		})
	}
}
