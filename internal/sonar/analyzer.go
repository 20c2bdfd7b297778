package sonar

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/pkg/shared/config"
)

// Include and exclude globs passed to the analysis over a snapshot.
const (
	sourceInclusions = "**/*.js,**/*.jsx,**/*.ts,**/*.tsx,**/*.py,**/*.java,**/*.cpp,**/*.c,**/*.cs"
	sourceExclusions = "node_modules/**,**/*.test.*,tests/**,**/*.spec.*,dist/**,build/**,coverage/**"
)

// AnalysisRequest describes one analysis of a local source snapshot.
type AnalysisRequest struct {
	SourceDir    string
	ProjectKey   string
	ProjectName  string
	TSConfigPath string
}

// Analyzer triggers the external service's analysis over a local source
// directory. It isolates all process and transport concerns, so the adapter
// never depends on how the analysis tool is actually invoked.
type Analyzer interface {
	Run(ctx context.Context, req AnalysisRequest) error
}

// ScannerCLI runs the service's scanner binary against a source directory.
type ScannerCLI struct {
	hostURL string
	token   string
	logger  hclog.Logger
}

// NewScannerCLI creates an analyzer backed by the sonar-scanner binary.
func NewScannerCLI(logger hclog.Logger, cfg *config.Config) *ScannerCLI {
	return &ScannerCLI{
		hostURL: config.SetThen(cfg.Sonar.HostURL, config.DefaultSonarConfig().HostURL),
		token:   cfg.Sonar.Token,
		logger:  logger,
	}
}

// Run invokes the scanner binary over the snapshot and waits for it to finish.
func (s *ScannerCLI) Run(ctx context.Context, req AnalysisRequest) error {
	args := []string{
		fmt.Sprintf("-Dsonar.projectKey=%s", req.ProjectKey),
		fmt.Sprintf("-Dsonar.projectName=%s", req.ProjectName),
		fmt.Sprintf("-Dsonar.projectBaseDir=%s", req.SourceDir),
		"-Dsonar.sources=.",
		fmt.Sprintf("-Dsonar.inclusions=%s", sourceInclusions),
		fmt.Sprintf("-Dsonar.exclusions=%s", sourceExclusions),
		fmt.Sprintf("-Dsonar.host.url=%s", s.hostURL),
	}
	if s.token != "" {
		args = append(args, fmt.Sprintf("-Dsonar.login=%s", s.token))
	}
	if req.TSConfigPath != "" {
		args = append(args, fmt.Sprintf("-Dsonar.typescript.tsconfigPath=%s", req.TSConfigPath))
	}

	cmd := exec.CommandContext(ctx, "sonar-scanner", args...)
	cmd.Dir = req.SourceDir

	s.logger.Debug("running analysis scanner", "projectKey", req.ProjectKey, "sourceDir", req.SourceDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		s.logger.Error("analysis scanner failed", "projectKey", req.ProjectKey, "output", string(output), "error", err)
		return fmt.Errorf("analysis scanner failed for %q: %w", req.ProjectKey, err)
	}

	s.logger.Debug("analysis scanner completed", "projectKey", req.ProjectKey)
	return nil
}
