package scan

// State is a point-in-time copy of all stored runs and findings, for state
// persistence.
type State struct {
	Runs     []Run                `json:"runs"`
	Findings map[string][]Finding `json:"findings"`
}

// Snapshot returns a copy of the store contents.
func (s *MemoryStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Runs:     make([]Run, 0, len(s.runs)),
		Findings: make(map[string][]Finding, len(s.findings)),
	}
	for _, run := range s.runs {
		state.Runs = append(state.Runs, *cloneRun(run))
	}
	for runID, findings := range s.findings {
		state.Findings[runID] = append([]Finding(nil), findings...)
	}
	return state
}

// Restore replaces the store contents with the given state.
func (s *MemoryStore) Restore(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]*Run, len(state.Runs))
	for i := range state.Runs {
		run := state.Runs[i]
		s.runs[run.ID] = cloneRun(&run)
	}
	s.findings = make(map[string][]Finding, len(state.Findings))
	for runID, findings := range state.Findings {
		s.findings[runID] = append([]Finding(nil), findings...)
	}
}
