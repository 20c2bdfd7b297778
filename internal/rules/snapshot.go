package rules

// Snapshot returns a copy of every stored rule, for state persistence.
func (s *MemoryStore) Snapshot() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		snapshot = append(snapshot, *rule)
	}
	sortByID(snapshot)
	return snapshot
}

// Restore replaces the store contents with the given rules, bypassing
// validation: the rules were validated when first created.
func (s *MemoryStore) Restore(stored []Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = make(map[string]*Rule, len(stored))
	for i := range stored {
		rule := stored[i]
		s.rules[rule.ID] = &rule
	}
}
