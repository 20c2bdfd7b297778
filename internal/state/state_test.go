package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/internal/scan"
)

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	stateFile := New(path, hclog.NewNullLogger())

	ruleStore := rules.NewMemoryStore()
	_, err := ruleStore.Create(rules.CreateInput{
		ID:          "R1",
		Name:        "Eval Usage",
		Description: "d",
		Pattern:     `eval\s*\(`,
		Severity:    rules.SeverityHigh,
		Category:    "Security",
	})
	require.NoError(t, err)

	runStore := scan.NewMemoryStore()
	startedAt := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	_, err = runStore.CreateRun(&scan.Run{
		ID:            "run-1",
		RepositoryURL: "https://github.com/juice-shop/juice-shop",
		Mode:          scan.ModeBasic,
		Status:        scan.StatusRunning,
		StartedAt:     startedAt,
	})
	require.NoError(t, err)
	findings := []scan.Finding{{
		ID:           "f-1",
		RunID:        "run-1",
		RuleID:       "R1",
		Severity:     rules.SeverityHigh,
		ReviewStatus: scan.ReviewPending,
		CreatedAt:    startedAt,
	}}
	_, err = runStore.CompleteRun("run-1", scan.Completion{
		CompletedAt: startedAt.Add(time.Second),
		Findings:    findings,
		Counts:      scan.CountSeverities(findings),
	})
	require.NoError(t, err)

	require.NoError(t, stateFile.Save(ruleStore, runStore))

	restoredRules := rules.NewMemoryStore()
	restoredRuns := scan.NewMemoryStore()
	require.NoError(t, stateFile.Load(restoredRules, restoredRuns))

	rule, err := restoredRules.Get("R1")
	require.NoError(t, err)
	assert.Equal(t, "Eval Usage", rule.Name)

	run, err := restoredRuns.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, scan.StatusCompleted, run.Status)

	stored, err := restoredRuns.FindingsForRun("run-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "f-1", stored[0].ID)
}

func TestFileLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	stateFile := New(path, hclog.NewNullLogger())

	ruleStore := rules.NewMemoryStore()
	runStore := scan.NewMemoryStore()
	require.NoError(t, stateFile.Load(ruleStore, runStore), "a missing state file is not an error")

	_, total, err := ruleStore.List(rules.Filter{}, rules.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestFileLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	stateFile := New(path, hclog.NewNullLogger())
	err := stateFile.Load(rules.NewMemoryStore(), scan.NewMemoryStore())
	assert.Error(t, err)
}
