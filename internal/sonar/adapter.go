package sonar

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/internal/repos"
	"github.com/codesentry/codesentry/internal/snapshot"
	"github.com/codesentry/codesentry/pkg/shared/config"
	"github.com/codesentry/codesentry/pkg/shared/errors"
)

const serviceName = "sonar"

// Result is the raw outcome of one deep analysis: the service's measures and
// issues for the derived project key. Either part may be empty when the
// ceiling wait elapsed before the service produced it.
type Result struct {
	ProjectKey  string
	ProjectName string
	Measures    *MeasuresResponse
	Issues      *IssueSearchResponse
	Timestamp   time.Time
}

// Adapter delegates deep analysis to the external static-analysis service:
// it snapshots the repository, triggers the analysis, polls for results
// until they are ready or the ceiling wait elapses, and returns the raw
// service output for normalization.
type Adapter struct {
	client    *Client
	analyzer  Analyzer
	snapshots *snapshot.Client
	logger    hclog.Logger

	pollInterval time.Duration
	maxWait      time.Duration
}

// NewAdapter wires an adapter from the configured client, analyzer, and
// snapshot source.
func NewAdapter(logger hclog.Logger, cfg *config.Config, client *Client, analyzer Analyzer, snapshots *snapshot.Client) *Adapter {
	defaults := config.DefaultSonarConfig()
	return &Adapter{
		client:       client,
		analyzer:     analyzer,
		snapshots:    snapshots,
		logger:       logger,
		pollInterval: config.SetThen(cfg.Sonar.PollInterval, defaults.PollInterval),
		maxWait:      config.SetThen(cfg.Sonar.MaxWait, defaults.MaxWait),
	}
}

var projectKeyInvalidChars = regexp.MustCompile(`[^a-z0-9\-_.]`)

// DeriveProjectKey produces the stable project key for a repository name:
// lower-cased, with every character outside [a-z0-9-_.] replaced by a dash.
func DeriveProjectKey(repoName string) string {
	return projectKeyInvalidChars.ReplaceAllString(strings.ToLower(repoName), "-")
}

// Run performs one deep analysis of the repository. runID disambiguates the
// project key so concurrent analyses of the same repository do not collide
// at the service. Failures in snapshotting or analysis invocation are hard
// failures; a polling ceiling is not.
func (a *Adapter) Run(ctx context.Context, repoURL, runID string) (*Result, error) {
	ref, err := repos.Parse(repoURL)
	if err != nil {
		return nil, err
	}

	projectKey := DeriveProjectKey(ref.Name)
	if runID != "" {
		projectKey = fmt.Sprintf("%s-%s", projectKey, shortID(runID))
	}

	snap, err := a.snapshots.Acquire(ctx, repoURL)
	if err != nil {
		return nil, errors.NewExternalServiceError(serviceName, "acquire snapshot", err)
	}
	defer snap.Remove()

	a.logger.Info("starting deep analysis", "repository", ref.FullName(), "projectKey", projectKey)
	if err := a.analyzer.Run(ctx, AnalysisRequest{
		SourceDir:    snap.Dir,
		ProjectKey:   projectKey,
		ProjectName:  ref.Name,
		TSConfigPath: snap.TSConfigPath(),
	}); err != nil {
		return nil, errors.NewExternalServiceError(serviceName, "run analysis", err)
	}

	measures, issues := a.awaitResults(ctx, projectKey)
	return &Result{
		ProjectKey:  projectKey,
		ProjectName: ref.Name,
		Measures:    measures,
		Issues:      issues,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// awaitResults polls for measures and issues with a fixed interval until
// both are available or the ceiling wait elapses. On ceiling it performs one
// final fetch attempt and accepts whatever is returned, possibly partial or
// empty, rather than failing outright.
func (a *Adapter) awaitResults(ctx context.Context, projectKey string) (*MeasuresResponse, *IssueSearchResponse) {
	deadline := time.Now().Add(a.maxWait)

	for time.Now().Before(deadline) {
		measures, issues := a.tryFetch(ctx, projectKey)
		if measures != nil && issues != nil {
			return measures, issues
		}

		select {
		case <-ctx.Done():
			a.logger.Warn("deep analysis polling cancelled", "projectKey", projectKey)
			return a.tryFetch(ctx, projectKey)
		case <-time.After(a.pollInterval):
		}
	}

	a.logger.Warn("deep analysis polling ceiling reached, attempting final fetch", "projectKey", projectKey)
	return a.tryFetch(ctx, projectKey)
}

func (a *Adapter) tryFetch(ctx context.Context, projectKey string) (*MeasuresResponse, *IssueSearchResponse) {
	measures, err := a.client.Measures(ctx, projectKey)
	if err != nil {
		a.logger.Debug("measures not yet available", "projectKey", projectKey, "error", err)
		measures = nil
	}
	issues, err := a.client.SearchIssues(ctx, projectKey)
	if err != nil {
		a.logger.Debug("issues not yet available", "projectKey", projectKey, "error", err)
		issues = nil
	}
	return measures, issues
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
