package repos

import (
	"context"
	"strings"

	"github.com/google/go-github/v47/github"
	"github.com/hashicorp/go-hclog"
)

// Info describes a repository as reported by its hosting service.
type Info struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Private     bool   `json:"private"`
}

// InfoFetcher looks up repository metadata for GitHub-hosted references.
// Lookups for other hosts, and failed lookups, degrade to the parsed
// owner/name with no enrichment.
type InfoFetcher struct {
	client *github.Client
	logger hclog.Logger
}

// NewInfoFetcher creates a fetcher using the unauthenticated GitHub API.
func NewInfoFetcher(logger hclog.Logger) *InfoFetcher {
	return &InfoFetcher{
		client: github.NewClient(nil),
		logger: logger,
	}
}

// Describe returns metadata for the referenced repository.
func (f *InfoFetcher) Describe(ctx context.Context, ref *Ref) *Info {
	info := &Info{
		Owner:    ref.Owner,
		Name:     ref.Name,
		FullName: ref.FullName(),
	}

	if !strings.Contains(ref.URL, "github.com") {
		return info
	}

	repo, _, err := f.client.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		f.logger.Debug("repository metadata lookup failed", "repository", ref.FullName(), "error", err)
		return info
	}

	info.Description = repo.GetDescription()
	info.Language = repo.GetLanguage()
	info.Stars = repo.GetStargazersCount()
	info.Forks = repo.GetForksCount()
	info.Private = repo.GetPrivate()
	return info
}
