package orchestrator

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesentry/codesentry/internal/matcher"
	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/internal/scan"
	"github.com/codesentry/codesentry/internal/sonar"
	"github.com/codesentry/codesentry/pkg/shared/errors"
)

type stubLoader struct {
	files []matcher.File
	count int
	err   error
	panic bool
}

func (l *stubLoader) Load(ctx context.Context, repoURL string) ([]matcher.File, int, error) {
	if l.panic {
		panic("loader blew up")
	}
	return l.files, l.count, l.err
}

type stubDeepScanner struct {
	result *sonar.Result
	err    error
}

func (d *stubDeepScanner) Run(ctx context.Context, repoURL, runID string) (*sonar.Result, error) {
	return d.result, d.err
}

func newTestOrchestrator(t *testing.T, loader FileLoader, deep DeepScanner) (*Orchestrator, *scan.MemoryStore, *rules.MemoryStore) {
	t.Helper()

	ruleStore := rules.NewMemoryStore()
	require.NoError(t, rules.SeedDefaults(ruleStore, hclog.NewNullLogger()))
	runStore := scan.NewMemoryStore()

	return New(hclog.NewNullLogger(), runStore, ruleStore, loader, deep), runStore, ruleStore
}

func TestStartScanCompletesInBackground(t *testing.T) {
	loader := &stubLoader{
		files: []matcher.File{
			{Path: "src/app.js", Content: `var secret = eval(userInput);`},
			{Path: "src/util.js", Content: "var x = Math.random();\n"},
		},
		count: 2,
	}
	orch, runStore, _ := newTestOrchestrator(t, loader, &stubDeepScanner{})

	run, err := orch.StartScan(context.Background(), StartRequest{
		RepositoryURL: "https://github.com/juice-shop/juice-shop",
	})
	require.NoError(t, err)
	assert.Equal(t, scan.StatusRunning, run.Status)
	assert.Equal(t, scan.ModeBasic, run.Mode, "mode defaults to BASIC")
	assert.Equal(t, "juice-shop", run.RepositoryOwner)
	assert.Equal(t, "juice-shop", run.RepositoryName)

	orch.Wait()

	terminal, err := runStore.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, scan.StatusCompleted, terminal.Status)
	assert.Equal(t, 2, terminal.TotalFilesScanned)
	assert.NotZero(t, terminal.TotalIssuesFound)
	assert.Equal(t, terminal.HighCount+terminal.MediumCount+terminal.LowCount, terminal.TotalIssuesFound)

	findings, err := runStore.FindingsForRun(run.ID)
	require.NoError(t, err)
	require.NotEmpty(t, findings)
	for _, finding := range findings {
		assert.Equal(t, run.ID, finding.RunID)
		assert.NotEmpty(t, finding.ID)
		assert.Equal(t, scan.ReviewPending, finding.ReviewStatus)
		assert.Equal(t, defaultConfidence, finding.Confidence)
		assert.NotEmpty(t, finding.FixSuggestion)
	}
}

func TestStartScanRejectsBadInput(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, &stubLoader{}, &stubDeepScanner{})

	_, err := orch.StartScan(context.Background(), StartRequest{RepositoryURL: ""})
	assert.True(t, errors.IsValidation(err))

	_, err = orch.StartScan(context.Background(), StartRequest{
		RepositoryURL: "https://github.com/juice-shop/juice-shop",
		Mode:          "FULL",
	})
	assert.True(t, errors.IsValidation(err))
}

func TestStartScanLoaderFailureMarksRunFailed(t *testing.T) {
	loader := &stubLoader{err: stderrors.New("clone failed")}
	orch, runStore, _ := newTestOrchestrator(t, loader, &stubDeepScanner{})

	run, err := orch.StartScan(context.Background(), StartRequest{
		RepositoryURL: "https://github.com/juice-shop/juice-shop",
	})
	require.NoError(t, err)

	orch.Wait()

	terminal, err := runStore.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, scan.StatusFailed, terminal.Status)
	assert.NotNil(t, terminal.CompletedAt)
	assert.Equal(t, 0, terminal.TotalIssuesFound)
	assert.Equal(t, 0, terminal.HighCount)

	findings, err := runStore.FindingsForRun(run.ID)
	require.NoError(t, err)
	assert.Empty(t, findings, "a failed run exposes no partial findings")
}

func TestStartScanPanicMarksRunFailed(t *testing.T) {
	loader := &stubLoader{panic: true}
	orch, runStore, _ := newTestOrchestrator(t, loader, &stubDeepScanner{})

	run, err := orch.StartScan(context.Background(), StartRequest{
		RepositoryURL: "https://github.com/juice-shop/juice-shop",
	})
	require.NoError(t, err)

	orch.Wait()

	terminal, err := runStore.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, scan.StatusFailed, terminal.Status)
}

func TestStartScanWithRuleSubset(t *testing.T) {
	loader := &stubLoader{
		files: []matcher.File{
			{Path: "src/app.js", Content: "eval(x); var y = Math.random();"},
		},
		count: 1,
	}
	orch, runStore, ruleStore := newTestOrchestrator(t, loader, &stubDeepScanner{})

	run, err := orch.StartScan(context.Background(), StartRequest{
		RepositoryURL: "https://github.com/juice-shop/juice-shop",
		RuleIDs:       []string{"SEC009", "no-such-rule"},
	})
	require.NoError(t, err)

	orch.Wait()

	findings, err := runStore.FindingsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, findings, 1, "only the requested rule is evaluated")
	assert.Equal(t, "SEC009", findings[0].RuleID)

	used, err := ruleStore.Get("SEC009")
	require.NoError(t, err)
	assert.Equal(t, 1, used.UsageCount)

	unused, err := ruleStore.Get("SEC004")
	require.NoError(t, err)
	assert.Equal(t, 0, unused.UsageCount)
}

func TestStartScanConcurrentRunsAreIndependent(t *testing.T) {
	loader := &stubLoader{
		files: []matcher.File{{Path: "src/app.js", Content: "eval(x)"}},
		count: 1,
	}
	orch, runStore, _ := newTestOrchestrator(t, loader, &stubDeepScanner{})

	first, err := orch.StartScan(context.Background(), StartRequest{
		RepositoryURL: "https://github.com/juice-shop/juice-shop",
	})
	require.NoError(t, err)
	second, err := orch.StartScan(context.Background(), StartRequest{
		RepositoryURL: "https://github.com/juice-shop/juice-shop",
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "identical requests are not deduplicated")

	orch.Wait()

	for _, id := range []string{first.ID, second.ID} {
		terminal, err := runStore.GetRun(id)
		require.NoError(t, err)
		assert.Equal(t, scan.StatusCompleted, terminal.Status)
	}
}

func TestRunDeepScan(t *testing.T) {
	deep := &stubDeepScanner{
		result: &sonar.Result{
			ProjectKey: "juice-shop-juice-shop-deadbeef",
			Measures: &sonar.MeasuresResponse{
				Component: sonar.Component{
					Key: "juice-shop-juice-shop-deadbeef",
					Measures: []sonar.Measure{
						{Metric: "bugs", Value: "3"},
						{Metric: "ncloc", Value: "1200"},
					},
				},
			},
			Issues: &sonar.IssueSearchResponse{
				Total: 2,
				Issues: []sonar.Issue{
					{Key: "issue-1", Rule: "typescript:S1234", Severity: "BLOCKER", Component: "proj:src/app.ts", Line: 10, Message: "boom"},
					{Key: "issue-2", Rule: "typescript:S5678", Severity: "MINOR", Component: "proj:src/util.ts", Message: "meh"},
				},
			},
		},
	}
	orch, runStore, _ := newTestOrchestrator(t, &stubLoader{}, deep)

	run, err := orch.RunDeepScan(context.Background(), "https://github.com/juice-shop/juice-shop")
	require.NoError(t, err)
	assert.Equal(t, scan.ModeDeep, run.Mode)
	assert.Equal(t, scan.StatusCompleted, run.Status)
	assert.Equal(t, 2, run.TotalIssuesFound)
	assert.Equal(t, 1, run.HighCount)
	assert.Equal(t, 1, run.LowCount)
	require.NotNil(t, run.Deep)
	assert.Equal(t, "juice-shop-juice-shop-deadbeef", run.Deep.ProjectKey)
	assert.Equal(t, 3, run.Deep.Summary.Bugs)
	assert.Equal(t, 1200, run.Deep.Summary.LinesOfCode)

	findings, err := runStore.FindingsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, findings, 2)
	for _, finding := range findings {
		assert.Equal(t, run.ID, finding.RunID)
		assert.NotEmpty(t, finding.ID)
		assert.Equal(t, defaultConfidence, finding.Confidence)
	}
}

func TestRunDeepScanFailure(t *testing.T) {
	deep := &stubDeepScanner{err: stderrors.New("sonar unreachable")}
	orch, runStore, _ := newTestOrchestrator(t, &stubLoader{}, deep)

	run, err := orch.RunDeepScan(context.Background(), "https://github.com/juice-shop/juice-shop")
	require.Error(t, err)
	require.NotNil(t, run, "the terminal run record is still returned")
	assert.Equal(t, scan.StatusFailed, run.Status)

	terminal, getErr := runStore.GetRun(run.ID)
	require.NoError(t, getErr)
	assert.Equal(t, scan.StatusFailed, terminal.Status)
}
