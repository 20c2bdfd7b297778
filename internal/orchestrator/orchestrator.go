package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/internal/matcher"
	"github.com/codesentry/codesentry/internal/repos"
	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/internal/scan"
	"github.com/codesentry/codesentry/internal/sonar"
	"github.com/codesentry/codesentry/pkg/shared/errors"
)

// defaultFixSuggestion is used when a rule carries no fix text of its own.
const defaultFixSuggestion = "Please review and fix this issue"

// defaultConfidence is the confidence score assigned to new findings.
const defaultConfidence = 80

// FileLoader produces the (path, content) pairs evaluated in BASIC mode,
// along with the number of files scanned.
type FileLoader interface {
	Load(ctx context.Context, repoURL string) ([]matcher.File, int, error)
}

// DeepScanner runs one deep analysis via the external service.
type DeepScanner interface {
	Run(ctx context.Context, repoURL, runID string) (*sonar.Result, error)
}

// StartRequest is a scan submission.
type StartRequest struct {
	RepositoryURL string
	Mode          scan.Mode
	RuleIDs       []string
}

// Orchestrator owns the scan lifecycle: it creates the run record, dispatches
// evaluation as a background unit of work, and applies the single terminal
// update. Each invocation creates a new independent run; concurrent identical
// requests are not deduplicated.
type Orchestrator struct {
	runs      scan.Store
	ruleStore rules.Store
	loader    FileLoader
	deep      DeepScanner
	logger    hclog.Logger

	wg    sync.WaitGroup
	now   func() time.Time
	newID func() string
}

// New creates an orchestrator over the given stores and evaluation paths.
func New(logger hclog.Logger, runs scan.Store, ruleStore rules.Store, loader FileLoader, deep DeepScanner) *Orchestrator {
	return &Orchestrator{
		runs:      runs,
		ruleStore: ruleStore,
		loader:    loader,
		deep:      deep,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// StartScan validates the request, creates the run record in RUNNING state,
// and returns it immediately. Evaluation proceeds in the background; callers
// observe completion by polling.
func (o *Orchestrator) StartScan(ctx context.Context, req StartRequest) (*scan.Run, error) {
	run, err := o.createRun(req)
	if err != nil {
		return nil, err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		// The evaluation outlives the submitting request, so it runs on
		// its own context.
		o.evaluate(context.Background(), run)
	}()

	return run, nil
}

// RunDeepScan creates a DEEP run and awaits its evaluation on the calling
// goroutine, returning the terminal run record. The returned error reports
// why a run ended FAILED.
func (o *Orchestrator) RunDeepScan(ctx context.Context, repositoryURL string) (*scan.Run, error) {
	run, err := o.createRun(StartRequest{RepositoryURL: repositoryURL, Mode: scan.ModeDeep})
	if err != nil {
		return nil, err
	}

	evalErr := o.evaluateGuarded(ctx, run)

	terminal, err := o.runs.GetRun(run.ID)
	if err != nil {
		return nil, err
	}
	return terminal, evalErr
}

// Wait blocks until all background evaluations have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) createRun(req StartRequest) (*scan.Run, error) {
	mode := req.Mode
	if mode == "" {
		mode = scan.ModeBasic
	}
	if mode != scan.ModeBasic && mode != scan.ModeDeep {
		return nil, errors.NewValidationError("scan_type", "must be one of BASIC, DEEP")
	}

	ref, err := repos.Parse(req.RepositoryURL)
	if err != nil {
		return nil, err
	}

	run := &scan.Run{
		ID:              o.newID(),
		RepositoryURL:   req.RepositoryURL,
		RepositoryOwner: ref.Owner,
		RepositoryName:  ref.Name,
		Mode:            mode,
		Status:          scan.StatusRunning,
		StartedAt:       o.now().UTC(),
		RulesUsed:       append([]string(nil), req.RuleIDs...),
	}
	created, err := o.runs.CreateRun(run)
	if err != nil {
		return nil, err
	}

	o.logger.Info("scan run created", "run", created.ID, "repository", ref.FullName(), "mode", mode)
	return created, nil
}

// evaluate is the top-level error boundary of the background unit of work:
// any failure, including a panic, translates into a terminal FAILED update
// instead of crashing the process or leaving the run stuck in RUNNING.
func (o *Orchestrator) evaluate(ctx context.Context, run *scan.Run) {
	if err := o.evaluateGuarded(ctx, run); err != nil {
		o.logger.Error("scan evaluation failed", "run", run.ID, "error", err)
	}
}

func (o *Orchestrator) evaluateGuarded(ctx context.Context, run *scan.Run) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewExternalServiceError("evaluation", "panic", panicError(r))
		}
		if err != nil {
			if _, failErr := o.runs.FailRun(run.ID, o.now().UTC()); failErr != nil {
				o.logger.Error("failed to mark run as FAILED", "run", run.ID, "error", failErr)
			}
		}
	}()

	switch run.Mode {
	case scan.ModeDeep:
		err = o.evaluateDeep(ctx, run)
	default:
		err = o.evaluateBasic(ctx, run)
	}
	return err
}

func (o *Orchestrator) evaluateBasic(ctx context.Context, run *scan.Run) error {
	ruleSet, err := o.selectRules(run.RulesUsed)
	if err != nil {
		return err
	}

	files, filesScanned, err := o.loader.Load(ctx, run.RepositoryURL)
	if err != nil {
		return err
	}

	matches := matcher.Evaluate(o.logger, ruleSet, files)
	findings := o.findingsFromMatches(run.ID, matches)
	counts := scan.CountSeverities(findings)

	if _, err := o.runs.CompleteRun(run.ID, scan.Completion{
		CompletedAt:  o.now().UTC(),
		FilesScanned: filesScanned,
		Findings:     findings,
		Counts:       counts,
	}); err != nil {
		return err
	}

	o.bumpRuleUsage(ruleSet)
	o.logger.Info("scan run completed", "run", run.ID, "files", filesScanned, "issues", len(findings))
	return nil
}

func (o *Orchestrator) evaluateDeep(ctx context.Context, run *scan.Run) error {
	result, err := o.deep.Run(ctx, run.RepositoryURL, run.ID)
	if err != nil {
		return err
	}

	findings := sonar.ConvertIssues(result.Issues)
	createdAt := o.now().UTC()
	for i := range findings {
		findings[i].ID = o.newID()
		findings[i].RunID = run.ID
		findings[i].Confidence = defaultConfidence
		findings[i].CreatedAt = createdAt
	}
	counts := scan.CountSeverities(findings)
	summary := sonar.Summarize(result)

	if _, err := o.runs.CompleteRun(run.ID, scan.Completion{
		CompletedAt:  o.now().UTC(),
		FilesScanned: summary.LinesOfCode,
		Findings:     findings,
		Counts:       counts,
		Deep: &scan.DeepPayload{
			ProjectKey: result.ProjectKey,
			Summary:    summary,
			Measures:   result.Measures,
			Issues:     result.Issues,
		},
	}); err != nil {
		return err
	}

	o.logger.Info("deep scan run completed", "run", run.ID, "projectKey", result.ProjectKey, "issues", len(findings))
	return nil
}

// selectRules resolves the rule subset for a run: the explicitly requested
// ids when given (unknown ids are silently skipped), otherwise every
// currently active rule.
func (o *Orchestrator) selectRules(ruleIDs []string) ([]rules.Rule, error) {
	if len(ruleIDs) > 0 {
		return o.ruleStore.ListByIDs(ruleIDs)
	}
	return o.ruleStore.ListActive()
}

// findingsFromMatches materializes matcher output as findings, capturing a
// denormalized snapshot of each rule at evaluation time.
func (o *Orchestrator) findingsFromMatches(runID string, matches []matcher.Match) []scan.Finding {
	createdAt := o.now().UTC()
	findings := make([]scan.Finding, 0, len(matches))
	for _, match := range matches {
		fix := match.Rule.FixSuggestion
		if fix == "" {
			fix = defaultFixSuggestion
		}
		findings = append(findings, scan.Finding{
			ID:            o.newID(),
			RunID:         runID,
			RuleID:        match.Rule.ID,
			RuleName:      match.Rule.Name,
			IssueType:     match.Rule.Name,
			Severity:      match.Rule.Severity,
			Category:      match.Rule.Category,
			FilePath:      match.FilePath,
			LineNumber:    match.Line,
			Description:   match.Rule.Description,
			FixSuggestion: fix,
			CodeSnippet:   match.Snippet,
			ReviewStatus:  scan.ReviewPending,
			Confidence:    defaultConfidence,
			CreatedAt:     createdAt,
		})
	}
	return findings
}

func (o *Orchestrator) bumpRuleUsage(ruleSet []rules.Rule) {
	ids := make([]string, 0, len(ruleSet))
	for _, rule := range ruleSet {
		ids = append(ids, rule.ID)
	}
	if err := o.ruleStore.IncrementUsage(ids); err != nil {
		o.logger.Warn("failed to update rule usage counters", "error", err)
	}
}

type recoveredPanic struct {
	value interface{}
}

func (p recoveredPanic) Error() string {
	return fmt.Sprintf("panic during evaluation: %v", p.value)
}

func panicError(value interface{}) error {
	return recoveredPanic{value: value}
}
