// Package state persists the rule and scan stores between CLI invocations
// as a JSON snapshot under the user's home directory.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/internal/scan"
	"github.com/codesentry/codesentry/pkg/shared/files"
)

type fileState struct {
	Rules []rules.Rule `json:"rules"`
	Scans scan.State   `json:"scans"`
}

// File loads and saves store snapshots at a fixed path.
type File struct {
	path   string
	logger hclog.Logger
}

// DefaultPath returns the state file location under the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codesentry", "state.json"), nil
}

// New creates a state file handle for the given path.
func New(path string, logger hclog.Logger) *File {
	return &File{path: path, logger: logger}
}

// Load restores the stores from the state file. A missing file is not an
// error: the stores stay empty.
func (f *File) Load(ruleStore *rules.MemoryStore, runStore *scan.MemoryStore) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read state file %q: %w", f.path, err)
	}

	var stored fileState
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to decode state file %q: %w", f.path, err)
	}

	ruleStore.Restore(stored.Rules)
	runStore.Restore(stored.Scans)
	f.logger.Debug("state restored", "path", f.path, "rules", len(stored.Rules), "runs", len(stored.Scans.Runs))
	return nil
}

// Save writes the current store snapshots to the state file.
func (f *File) Save(ruleStore *rules.MemoryStore, runStore *scan.MemoryStore) error {
	stored := fileState{
		Rules: ruleStore.Snapshot(),
		Scans: runStore.Snapshot(),
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := files.CreateFolderIfNotExists(filepath.Dir(f.path)); err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file %q: %w", f.path, err)
	}
	f.logger.Debug("state saved", "path", f.path)
	return nil
}
