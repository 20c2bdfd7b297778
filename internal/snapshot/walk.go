package snapshot

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/internal/matcher"
	"github.com/codesentry/codesentry/pkg/shared/config"
)

// SourceExtensions are the file extensions considered source code for
// pattern evaluation.
var SourceExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".py", ".java", ".cpp", ".c", ".cs",
	".go", ".rb", ".php", ".json", ".config",
}

// ExcludedDirs are directory names skipped during source collection:
// dependency trees, build output, and VCS metadata.
var ExcludedDirs = []string{
	"node_modules", "dist", "build", "coverage", "vendor", ".git",
}

// maxFileSize caps the content read per file to keep pattern evaluation
// bounded on repositories with large generated files.
const maxFileSize = 1 << 20

// Loader produces (path, content) pairs for pattern evaluation by cloning a
// snapshot of the repository and walking its source files.
type Loader struct {
	client *Client
	logger hclog.Logger
}

// NewLoader creates a snapshot-backed file loader.
func NewLoader(logger hclog.Logger, globalConfig *config.Config) *Loader {
	return &Loader{
		client: NewClient(logger, globalConfig),
		logger: logger,
	}
}

// Load acquires a snapshot of the repository, collects its source files in
// deterministic path order, and disposes of the snapshot. The second return
// value is the number of files collected.
func (l *Loader) Load(ctx context.Context, repoURL string) ([]matcher.File, int, error) {
	snap, err := l.client.Acquire(ctx, repoURL)
	if err != nil {
		return nil, 0, err
	}
	defer snap.Remove()

	collected, err := CollectSourceFiles(snap.Dir)
	if err != nil {
		return nil, 0, err
	}
	l.logger.Debug("collected source files from snapshot", "count", len(collected))
	return collected, len(collected), nil
}

// CollectSourceFiles walks root and returns the source files beneath it,
// with paths relative to root, in lexical walk order.
func CollectSourceFiles(root string) ([]matcher.File, error) {
	var collected []matcher.File

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if isExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isSourceFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxFileSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		collected = append(collected, matcher.File{
			Path:    filepath.ToSlash(rel),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return collected, nil
}

func isExcludedDir(name string) bool {
	for _, excluded := range ExcludedDirs {
		if name == excluded {
			return true
		}
	}
	return false
}

func isSourceFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range SourceExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
