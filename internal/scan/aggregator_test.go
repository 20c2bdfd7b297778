package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/pkg/shared/errors"
)

func TestAggregatorGetRun(t *testing.T) {
	store := NewMemoryStore()
	agg := NewAggregator(store)

	_, err := store.CreateRun(newTestRun("run-1", testStart))
	require.NoError(t, err)
	findings := []Finding{
		newTestFinding("f-low", "run-1", rules.SeverityLow, testStart),
		newTestFinding("f-high", "run-1", rules.SeverityHigh, testStart),
	}
	_, err = store.CompleteRun("run-1", Completion{CompletedAt: testStart.Add(time.Second), Findings: findings, Counts: CountSeverities(findings)})
	require.NoError(t, err)

	details, err := agg.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, details.Status)
	require.Len(t, details.Findings, 2)
	assert.Equal(t, "f-high", details.Findings[0].ID, "findings arrive ordered by severity")

	_, err = agg.GetRun("missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestAggregatorListRunsRejectsUnknownStatus(t *testing.T) {
	agg := NewAggregator(NewMemoryStore())

	_, _, err := agg.ListRuns(RunFilter{Status: "BOGUS"}, Pagination{})
	assert.True(t, errors.IsValidation(err))
}

func TestAggregatorDeepDetails(t *testing.T) {
	store := NewMemoryStore()
	agg := NewAggregator(store)

	basic := newTestRun("basic-run", testStart)
	_, err := store.CreateRun(basic)
	require.NoError(t, err)

	deep := newTestRun("deep-run", testStart)
	deep.Mode = ModeDeep
	_, err = store.CreateRun(deep)
	require.NoError(t, err)
	_, err = store.CompleteRun("deep-run", Completion{
		CompletedAt: testStart.Add(time.Second),
		Deep: &DeepPayload{
			ProjectKey: "juice-shop-juice-shop-deadbeef",
			Summary:    Summary{Bugs: 3, Vulnerabilities: 1},
		},
	})
	require.NoError(t, err)

	payload, err := agg.DeepDetails("deep-run")
	require.NoError(t, err)
	assert.Equal(t, "juice-shop-juice-shop-deadbeef", payload.ProjectKey)
	assert.Equal(t, 3, payload.Summary.Bugs)

	_, err = agg.DeepDetails("basic-run")
	assert.True(t, errors.IsValidation(err), "deep details of a BASIC run is a validation error")

	_, err = agg.DeepDetails("missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestAggregatorDeepDetailsWithoutPayload(t *testing.T) {
	store := NewMemoryStore()
	agg := NewAggregator(store)

	deep := newTestRun("deep-run", testStart)
	deep.Mode = ModeDeep
	_, err := store.CreateRun(deep)
	require.NoError(t, err)

	payload, err := agg.DeepDetails("deep-run")
	require.NoError(t, err)
	assert.Equal(t, &DeepPayload{}, payload, "a run without a payload yields an empty one")
}
