package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/pkg/shared/errors"
)

var testStart = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestRun(id string, startedAt time.Time) *Run {
	return &Run{
		ID:              id,
		RepositoryURL:   "https://github.com/juice-shop/juice-shop",
		RepositoryOwner: "juice-shop",
		RepositoryName:  "juice-shop",
		Mode:            ModeBasic,
		Status:          StatusRunning,
		StartedAt:       startedAt,
	}
}

func newTestFinding(id, runID string, severity rules.Severity, createdAt time.Time) Finding {
	return Finding{
		ID:           id,
		RunID:        runID,
		RuleID:       "SEC001",
		RuleName:     "Hardcoded Secrets",
		Severity:     severity,
		Category:     "Security",
		FilePath:     "src/app.js",
		LineNumber:   3,
		Description:  "Detects hardcoded API keys, passwords, and tokens in source code",
		ReviewStatus: ReviewPending,
		Confidence:   80,
		CreatedAt:    createdAt,
	}
}

func TestMemoryStoreCreateRun(t *testing.T) {
	store := NewMemoryStore()

	created, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, created.Status)

	_, err = store.CreateRun(newTestRun("run-1", testStart))
	assert.True(t, errors.IsConflict(err))
}

func TestMemoryStoreCreateRunRejectsUnknownStatus(t *testing.T) {
	store := NewMemoryStore()
	run := newTestRun("run-1", testStart)
	run.Status = "BOGUS"

	_, err := store.CreateRun(run)
	assert.True(t, errors.IsValidation(err))
}

func TestMemoryStoreCompleteRun(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)

	findings := []Finding{
		newTestFinding("f-1", "run-1", rules.SeverityHigh, testStart),
		newTestFinding("f-2", "run-1", rules.SeverityLow, testStart),
	}
	completed, err := store.CompleteRun("run-1", Completion{
		CompletedAt:  testStart.Add(42 * time.Second),
		FilesScanned: 7,
		Findings:     findings,
		Counts:       CountSeverities(findings),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, 42, completed.Duration)
	assert.Equal(t, 7, completed.TotalFilesScanned)
	assert.Equal(t, 2, completed.TotalIssuesFound)
	assert.Equal(t, 1, completed.HighCount)
	assert.Equal(t, 0, completed.MediumCount)
	assert.Equal(t, 1, completed.LowCount)
	assert.Equal(t, completed.HighCount+completed.MediumCount+completed.LowCount, completed.TotalIssuesFound)

	stored, err := store.FindingsForRun("run-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestMemoryStoreTerminalStatesAreFinal(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)
	_, err = store.CompleteRun("run-1", Completion{CompletedAt: testStart.Add(time.Second)})
	require.NoError(t, err)

	_, err = store.CompleteRun("run-1", Completion{CompletedAt: testStart.Add(2 * time.Second)})
	assert.ErrorIs(t, err, ErrTerminalState)
	_, err = store.FailRun("run-1", testStart.Add(2*time.Second))
	assert.ErrorIs(t, err, ErrTerminalState)

	run, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, 1, run.Duration, "rejected updates leave the run untouched")
}

func TestMemoryStoreFailRun(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)

	failed, err := store.FailRun("run-1", testStart.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, 5, failed.Duration)
	assert.Equal(t, 0, failed.TotalIssuesFound)
	assert.Equal(t, 0, failed.HighCount)

	findings, err := store.FindingsForRun("run-1")
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestMemoryStoreDeleteRunCascades(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)
	_, err = store.CompleteRun("run-1", Completion{
		CompletedAt: testStart.Add(time.Second),
		Findings:    []Finding{newTestFinding("f-1", "run-1", rules.SeverityHigh, testStart)},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteRun("run-1"))

	_, err = store.GetRun("run-1")
	assert.True(t, errors.IsNotFound(err))
	_, err = store.FindingsForRun("run-1")
	assert.True(t, errors.IsNotFound(err))
	_, err = store.UpdateFindingStatus("f-1", ReviewFixed)
	assert.True(t, errors.IsNotFound(err))

	err = store.DeleteRun("run-1")
	assert.True(t, errors.IsNotFound(err))
}

func TestMemoryStoreListRunsOrderAndFilter(t *testing.T) {
	store := NewMemoryStore()

	oldest := newTestRun("run-1", testStart)
	middle := newTestRun("run-2", testStart.Add(time.Minute))
	middle.RepositoryOwner = "acme"
	middle.RepositoryName = "billing-service"
	newest := newTestRun("run-3", testStart.Add(2*time.Minute))

	for _, run := range []*Run{oldest, middle, newest} {
		_, err := store.CreateRun(run)
		require.NoError(t, err)
	}
	_, err := store.FailRun("run-2", testStart.Add(2*time.Minute))
	require.NoError(t, err)

	listed, total, err := store.ListRuns(RunFilter{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, listed, 3)
	assert.Equal(t, "run-3", listed[0].ID, "newest first")
	assert.Equal(t, "run-2", listed[1].ID)
	assert.Equal(t, "run-1", listed[2].ID)

	listed, total, err = store.ListRuns(RunFilter{Status: StatusFailed}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "run-2", listed[0].ID)

	// Repository filter matches name or owner, case-insensitively.
	listed, total, err = store.ListRuns(RunFilter{Repository: "BILLING"}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "run-2", listed[0].ID)

	listed, total, err = store.ListRuns(RunFilter{Repository: "acme"}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = store.ListRuns(RunFilter{Repository: "no-such-repo"}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestMemoryStoreListRunsPagination(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < 15; i++ {
		run := newTestRun(string(rune('a'+i)), testStart.Add(time.Duration(i)*time.Minute))
		_, err := store.CreateRun(run)
		require.NoError(t, err)
	}

	listed, total, err := store.ListRuns(RunFilter{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.Len(t, listed, 10, "default page size")

	listed, _, err = store.ListRuns(RunFilter{}, Pagination{Page: 2})
	require.NoError(t, err)
	assert.Len(t, listed, 5)

	listed, _, err = store.ListRuns(RunFilter{}, Pagination{Page: 4})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestMemoryStoreFindingsForRunOrdering(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)

	findings := []Finding{
		newTestFinding("f-low", "run-1", rules.SeverityLow, testStart.Add(3*time.Second)),
		newTestFinding("f-high-old", "run-1", rules.SeverityHigh, testStart.Add(time.Second)),
		newTestFinding("f-medium", "run-1", rules.SeverityMedium, testStart.Add(2*time.Second)),
		newTestFinding("f-high-new", "run-1", rules.SeverityHigh, testStart.Add(4*time.Second)),
	}
	_, err = store.CompleteRun("run-1", Completion{
		CompletedAt: testStart.Add(5 * time.Second),
		Findings:    findings,
		Counts:      CountSeverities(findings),
	})
	require.NoError(t, err)

	ordered, err := store.FindingsForRun("run-1")
	require.NoError(t, err)

	ids := make([]string, 0, len(ordered))
	for _, finding := range ordered {
		ids = append(ids, finding.ID)
	}
	assert.Equal(t, []string{"f-high-new", "f-high-old", "f-medium", "f-low"}, ids)
}

func TestMemoryStoreUpdateFindingStatus(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)
	_, err = store.CompleteRun("run-1", Completion{
		CompletedAt: testStart.Add(time.Second),
		Findings:    []Finding{newTestFinding("f-1", "run-1", rules.SeverityHigh, testStart)},
	})
	require.NoError(t, err)

	updated, err := store.UpdateFindingStatus("f-1", ReviewFixed)
	require.NoError(t, err)
	assert.Equal(t, ReviewFixed, updated.ReviewStatus)

	_, err = store.UpdateFindingStatus("f-1", "BOGUS")
	assert.True(t, errors.IsValidation(err))

	_, err = store.UpdateFindingStatus("missing", ReviewIgnored)
	assert.True(t, errors.IsNotFound(err))
}

func TestMemoryStoreStatistics(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)
	findings := []Finding{
		newTestFinding("f-1", "run-1", rules.SeverityHigh, testStart),
		newTestFinding("f-2", "run-1", rules.SeverityMedium, testStart),
		newTestFinding("f-3", "run-1", rules.SeverityLow, testStart),
	}
	_, err = store.CompleteRun("run-1", Completion{CompletedAt: testStart.Add(time.Second), Findings: findings, Counts: CountSeverities(findings)})
	require.NoError(t, err)

	_, err = store.CreateRun(newTestRun("run-2", testStart))
	require.NoError(t, err)
	_, err = store.FailRun("run-2", testStart.Add(time.Second))
	require.NoError(t, err)

	_, err = store.CreateRun(newTestRun("run-3", testStart))
	require.NoError(t, err)

	stats, err := store.Statistics()
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Runs.Total)
	assert.Equal(t, 1, stats.Runs.Completed)
	assert.Equal(t, 1, stats.Runs.Failed)
	assert.Equal(t, 1, stats.Runs.Running)

	assert.Equal(t, 3, stats.Issues.Total)
	assert.Equal(t, 1, stats.Issues.High)
	assert.Equal(t, 1, stats.Issues.Medium)
	assert.Equal(t, 1, stats.Issues.Low)
}

func TestSeverityCounts(t *testing.T) {
	findings := []Finding{
		{Severity: rules.SeverityHigh},
		{Severity: rules.SeverityHigh},
		{Severity: rules.SeverityLow},
		{Severity: "BOGUS"},
	}

	counts := CountSeverities(findings)
	assert.Equal(t, 2, counts.High)
	assert.Equal(t, 0, counts.Medium)
	assert.Equal(t, 1, counts.Low)
	assert.Equal(t, 3, counts.Total(), "unrecognized severities land in no bucket")
}

func TestMemoryStoreSnapshotRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)
	findings := []Finding{newTestFinding("f-1", "run-1", rules.SeverityHigh, testStart)}
	_, err = store.CompleteRun("run-1", Completion{CompletedAt: testStart.Add(time.Second), Findings: findings, Counts: CountSeverities(findings)})
	require.NoError(t, err)

	restored := NewMemoryStore()
	restored.Restore(store.Snapshot())

	run, err := restored.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)

	stored, err := restored.FindingsForRun("run-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "f-1", stored[0].ID)
}
