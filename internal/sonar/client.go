package sonar

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/pkg/shared/config"
	"github.com/codesentry/codesentry/pkg/shared/httpclient"
)

// metricKeys are the measures requested from the analysis service.
const metricKeys = "bugs,vulnerabilities,code_smells,security_hotspots,coverage,duplicated_lines_density,ncloc,complexity"

// issuesPageSize is the number of issues fetched per search request.
const issuesPageSize = 500

// Measure is a single metric value reported for a component.
type Measure struct {
	Metric    string `json:"metric"`
	Value     string `json:"value"`
	BestValue bool   `json:"bestValue,omitempty"`
}

// Component groups the measures of one analyzed project.
type Component struct {
	Key      string    `json:"key"`
	Name     string    `json:"name,omitempty"`
	Measures []Measure `json:"measures"`
}

// MeasuresResponse is the component measures payload.
type MeasuresResponse struct {
	Component Component `json:"component"`
}

// Issue is one issue reported by the analysis service, in its native
// severity vocabulary (BLOCKER, CRITICAL, MAJOR, MINOR, INFO).
type Issue struct {
	Key       string `json:"key"`
	Rule      string `json:"rule"`
	Severity  string `json:"severity"`
	Component string `json:"component"`
	Project   string `json:"project"`
	Line      int    `json:"line,omitempty"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

// IssueSearchResponse is the issue search payload.
type IssueSearchResponse struct {
	Total  int     `json:"total"`
	Issues []Issue `json:"issues"`
}

// Client talks to the external static-analysis service's read API.
type Client struct {
	httpc  *resty.Client
	logger hclog.Logger
}

// NewClient initializes a client against the configured service host,
// authenticating with the configured bearer-style token.
func NewClient(logger hclog.Logger, cfg *config.Config) *Client {
	httpc := httpclient.InitializeRestyClient(logger, cfg)

	sonarCfg := cfg.Sonar
	hostURL := config.SetThen(sonarCfg.HostURL, config.DefaultSonarConfig().HostURL)
	httpc.SetBaseURL(hostURL)
	if sonarCfg.Token != "" {
		// The service accepts the token as a basic auth username with an
		// empty password.
		httpc.SetBasicAuth(sonarCfg.Token, "")
	}

	return &Client{
		httpc:  httpc,
		logger: logger,
	}
}

// Measures fetches the component measures for a project key.
func (c *Client) Measures(ctx context.Context, projectKey string) (*MeasuresResponse, error) {
	var result MeasuresResponse
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"component":  projectKey,
			"metricKeys": metricKeys,
		}).
		SetResult(&result).
		Get("/api/measures/component")
	if err != nil {
		return nil, fmt.Errorf("fetching measures for %q: %w", projectKey, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%d on fetching measures for %q", resp.StatusCode(), projectKey)
	}
	return &result, nil
}

// SearchIssues fetches the issues for a project key, sorted by severity descending.
func (c *Client) SearchIssues(ctx context.Context, projectKey string) (*IssueSearchResponse, error) {
	var result IssueSearchResponse
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"componentKeys": projectKey,
			"ps":            fmt.Sprintf("%d", issuesPageSize),
			"s":             "SEVERITY",
			"asc":           "false",
			"facets":        "severities,types,rules",
		}).
		SetResult(&result).
		Get("/api/issues/search")
	if err != nil {
		return nil, fmt.Errorf("searching issues for %q: %w", projectKey, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%d on searching issues for %q", resp.StatusCode(), projectKey)
	}
	return &result, nil
}
