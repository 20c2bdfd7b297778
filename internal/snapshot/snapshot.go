package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/pkg/shared/config"
	"github.com/codesentry/codesentry/pkg/shared/files"
	"github.com/codesentry/codesentry/pkg/shared/logger"
)

// Snapshot is a local, read-only, single-revision checkout of a repository
// in a scratch location. Each snapshot owns its scratch directory; Remove
// must run on every exit path.
type Snapshot struct {
	Dir     string
	scratch string
	logger  hclog.Logger
}

// Client acquires repository snapshots.
type Client struct {
	logger       hclog.Logger
	globalConfig *config.Config
}

// NewClient creates a snapshot client.
func NewClient(logger hclog.Logger, globalConfig *config.Config) *Client {
	return &Client{
		logger:       logger,
		globalConfig: globalConfig,
	}
}

// Acquire clones the repository at cloneURL shallowly into a fresh scratch
// directory. The caller must call Remove on the returned snapshot.
func (c *Client) Acquire(ctx context.Context, cloneURL string) (*Snapshot, error) {
	scratch, err := files.MakeScratchDir("codesentry-snapshot-")
	if err != nil {
		return nil, err
	}
	repoDir := filepath.Join(scratch, "repo")

	gitCfg := c.globalConfig.GitClient
	timeout := config.SetThen(gitCfg.Timeout, config.DefaultGitConfig().Timeout)
	cloneCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.logger.Debug("acquiring repository snapshot", "cloneURL", cloneURL, "targetFolder", repoDir)
	_, err = git.PlainCloneContext(cloneCtx, repoDir, false, &git.CloneOptions{
		Auth:            setupAuth(cloneURL, c.logger),
		URL:             cloneURL,
		Progress:        logger.GetLoggerOutput(c.logger),
		Depth:           config.SetThen(gitCfg.Depth, config.DefaultGitConfig().Depth),
		SingleBranch:    true,
		InsecureSkipTLS: config.GetBoolValue(gitCfg, "InsecureTLS", false),
	})
	if err != nil {
		if removeErr := os.RemoveAll(scratch); removeErr != nil {
			c.logger.Warn("failed to clean up scratch directory", "path", scratch, "error", removeErr)
		}
		c.logger.Error("error occurred during snapshot clone", "error", err, "cloneURL", cloneURL)
		return nil, fmt.Errorf("error occurred during snapshot clone: %w", err)
	}

	c.logger.Info("repository snapshot acquired", "cloneURL", cloneURL, "targetFolder", repoDir)
	return &Snapshot{
		Dir:     repoDir,
		scratch: scratch,
		logger:  c.logger,
	}, nil
}

// Remove disposes of the snapshot's scratch directory.
func (s *Snapshot) Remove() {
	if err := os.RemoveAll(s.scratch); err != nil {
		s.logger.Warn("failed to remove snapshot scratch directory", "path", s.scratch, "error", err)
		return
	}
	s.logger.Debug("snapshot scratch directory removed", "path", s.scratch)
}

// TSConfigPath returns the path of a TypeScript configuration file in the
// snapshot root, or an empty string when the snapshot has none.
func (s *Snapshot) TSConfigPath() string {
	path := filepath.Join(s.Dir, "tsconfig.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
