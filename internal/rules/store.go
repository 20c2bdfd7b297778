package rules

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codesentry/codesentry/pkg/shared/errors"
)

// CreateInput carries the fields for a new rule. Active defaults to true and
// Custom defaults to true when left nil; the seeder passes Custom explicitly.
type CreateInput struct {
	ID             string
	Name           string
	Description    string
	Pattern        string
	Severity       Severity
	Category       string
	Language       string
	FileExtensions []string
	FixSuggestion  string
	Active         *bool
	Custom         *bool
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name           *string
	Description    *string
	Pattern        *string
	Severity       *Severity
	Category       *string
	Language       *string
	FileExtensions *[]string
	FixSuggestion  *string
	Active         *bool
}

// Filter narrows a rule listing.
type Filter struct {
	Category string
	Severity Severity
	Active   *bool
}

// Pagination selects a page of a listing. Zero values fall back to
// page 1 with a limit of 50.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalize() (page, limit int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return page, limit
}

// Store is the persistence contract for rule definitions.
type Store interface {
	Create(input CreateInput) (*Rule, error)
	Get(id string) (*Rule, error)
	Update(id string, input UpdateInput) (*Rule, error)
	ToggleActive(id string) (*Rule, error)
	Delete(id string) error
	List(filter Filter, page Pagination) ([]Rule, int, error)
	Categories() ([]string, error)
	ListActive() ([]Rule, error)
	ListByIDs(ids []string) ([]Rule, error)
	IncrementUsage(ids []string) error
}

// MemoryStore is an in-memory Store implementation guarded by a RWMutex.
// Writers hold the lock for the whole mutation, so readers never observe a
// partially applied change.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]*Rule
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules: make(map[string]*Rule),
		now:   time.Now,
	}
}

// Create validates and persists a new rule.
func (s *MemoryStore) Create(input CreateInput) (*Rule, error) {
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	custom := true
	if input.Custom != nil {
		custom = *input.Custom
	}

	rule := &Rule{
		ID:             input.ID,
		Name:           input.Name,
		Description:    input.Description,
		Pattern:        input.Pattern,
		Severity:       input.Severity,
		Category:       input.Category,
		Language:       input.Language,
		FileExtensions: append([]string(nil), input.FileExtensions...),
		FixSuggestion:  input.FixSuggestion,
		Active:         active,
		Custom:         custom,
	}
	if err := validate(rule); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return nil, errors.NewConflictError("rule", rule.ID)
	}

	now := s.now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = rule

	copied := *rule
	return &copied, nil
}

// Get returns the rule with the given id.
func (s *MemoryStore) Get(id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, errors.NewNotFoundError("rule", id)
	}
	copied := *rule
	return &copied, nil
}

// Update merges the non-nil fields of input into the stored rule. A pattern
// update must still compile.
func (s *MemoryStore) Update(id string, input UpdateInput) (*Rule, error) {
	if input.Pattern != nil {
		if _, err := CompilePattern(*input.Pattern); err != nil {
			return nil, errors.NewValidationError("pattern", "is not a valid regular expression: "+err.Error())
		}
	}
	if input.Severity != nil && !input.Severity.IsValid() {
		return nil, errors.NewValidationError("severity", "must be one of HIGH, MEDIUM, LOW")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, errors.NewNotFoundError("rule", id)
	}

	if input.Name != nil {
		rule.Name = *input.Name
	}
	if input.Description != nil {
		rule.Description = *input.Description
	}
	if input.Pattern != nil {
		rule.Pattern = *input.Pattern
	}
	if input.Severity != nil {
		rule.Severity = *input.Severity
	}
	if input.Category != nil {
		rule.Category = *input.Category
	}
	if input.Language != nil {
		rule.Language = *input.Language
	}
	if input.FileExtensions != nil {
		rule.FileExtensions = append([]string(nil), (*input.FileExtensions)...)
	}
	if input.FixSuggestion != nil {
		rule.FixSuggestion = *input.FixSuggestion
	}
	if input.Active != nil {
		rule.Active = *input.Active
	}
	rule.UpdatedAt = s.now()

	copied := *rule
	return &copied, nil
}

// ToggleActive flips the active flag of the rule with the given id.
func (s *MemoryStore) ToggleActive(id string) (*Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, errors.NewNotFoundError("rule", id)
	}
	rule.Active = !rule.Active
	rule.UpdatedAt = s.now()

	copied := *rule
	return &copied, nil
}

// Delete removes the rule with the given id. Findings that captured the rule
// keep their denormalized snapshot and are unaffected.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return errors.NewNotFoundError("rule", id)
	}
	delete(s.rules, id)
	return nil
}

// List returns a page of rules matching the filter, in deterministic order:
// category ascending, severity descending, name ascending. The second return
// value is the total number of matches before pagination.
func (s *MemoryStore) List(filter Filter, page Pagination) ([]Rule, int, error) {
	s.mu.RLock()
	matched := make([]Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if filter.Category != "" && rule.Category != filter.Category {
			continue
		}
		if filter.Severity != "" && rule.Severity != filter.Severity {
			continue
		}
		if filter.Active != nil && rule.Active != *filter.Active {
			continue
		}
		matched = append(matched, *rule)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Category != matched[j].Category {
			return matched[i].Category < matched[j].Category
		}
		if matched[i].Severity != matched[j].Severity {
			return matched[i].Severity.Rank() > matched[j].Severity.Rank()
		}
		return matched[i].Name < matched[j].Name
	})

	total := len(matched)
	pageNum, limit := page.normalize()
	start := (pageNum - 1) * limit
	if start >= total {
		return []Rule{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Categories returns the sorted set of categories currently in use.
func (s *MemoryStore) Categories() ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, rule := range s.rules {
		seen[rule.Category] = struct{}{}
	}
	s.mu.RUnlock()

	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories, nil
}

// ListActive returns all active rules ordered by id.
func (s *MemoryStore) ListActive() ([]Rule, error) {
	s.mu.RLock()
	active := make([]Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if rule.Active {
			active = append(active, *rule)
		}
	}
	s.mu.RUnlock()

	sortByID(active)
	return active, nil
}

// ListByIDs returns the rules for the given ids, ordered by id. Unknown ids
// are silently skipped.
func (s *MemoryStore) ListByIDs(ids []string) ([]Rule, error) {
	s.mu.RLock()
	selected := make([]Rule, 0, len(ids))
	for _, id := range ids {
		if rule, ok := s.rules[id]; ok {
			selected = append(selected, *rule)
		}
	}
	s.mu.RUnlock()

	sortByID(selected)
	return selected, nil
}

// IncrementUsage bumps the usage counter of each given rule. Unknown ids are ignored.
func (s *MemoryStore) IncrementUsage(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if rule, ok := s.rules[id]; ok {
			rule.UsageCount++
		}
	}
	return nil
}

func sortByID(rules []Rule) {
	sort.Slice(rules, func(i, j int) bool {
		return strings.Compare(rules[i].ID, rules[j].ID) < 0
	})
}
