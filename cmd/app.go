package cmd

import (
	"github.com/hashicorp/go-hclog"

	"github.com/codesentry/codesentry/internal/orchestrator"
	"github.com/codesentry/codesentry/internal/rules"
	"github.com/codesentry/codesentry/internal/scan"
	"github.com/codesentry/codesentry/internal/snapshot"
	"github.com/codesentry/codesentry/internal/sonar"
	"github.com/codesentry/codesentry/internal/state"
	"github.com/codesentry/codesentry/pkg/shared/logger"
)

// app wires the stores and services a command needs. Commands build it
// through withApp, which restores the state file first and saves it back
// after the command body succeeds.
type app struct {
	logger    hclog.Logger
	ruleStore *rules.MemoryStore
	runStore  *scan.MemoryStore
	orch      *orchestrator.Orchestrator
	agg       *scan.Aggregator
	stateFile *state.File
}

func newApp() (*app, error) {
	log := logger.NewLogger(AppConfig, "core")

	ruleStore := rules.NewMemoryStore()
	runStore := scan.NewMemoryStore()

	path := statePath
	if path == "" {
		var err error
		path, err = state.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	stateFile := state.New(path, log)
	if err := stateFile.Load(ruleStore, runStore); err != nil {
		return nil, err
	}
	if err := rules.SeedDefaults(ruleStore, log); err != nil {
		return nil, err
	}

	snapshots := snapshot.NewClient(log, AppConfig)
	adapter := sonar.NewAdapter(log, AppConfig, sonar.NewClient(log, AppConfig), sonar.NewScannerCLI(log, AppConfig), snapshots)
	orch := orchestrator.New(log, runStore, ruleStore, snapshot.NewLoader(log, AppConfig), adapter)

	return &app{
		logger:    log,
		ruleStore: ruleStore,
		runStore:  runStore,
		orch:      orch,
		agg:       scan.NewAggregator(runStore),
		stateFile: stateFile,
	}, nil
}

func withApp(fn func(*app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := fn(a); err != nil {
		return err
	}
	// Background evaluations must reach a terminal state before the
	// snapshot is written, otherwise the run would be lost as RUNNING.
	a.orch.Wait()
	return a.stateFile.Save(a.ruleStore, a.runStore)
}
