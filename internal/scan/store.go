package scan

import (
	stderrors "errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codesentry/codesentry/pkg/shared/errors"
)

// ErrTerminalState is returned when a terminal update is applied to a run
// that already reached COMPLETED or FAILED.
var ErrTerminalState = stderrors.New("scan run is already in a terminal state")

// Completion carries everything a run needs to reach COMPLETED: the findings
// become visible in the same store operation as the terminal status, so a
// reader can never observe COMPLETED with missing findings.
type Completion struct {
	CompletedAt  time.Time
	FilesScanned int
	Findings     []Finding
	Counts       SeverityCounts
	Deep         *DeepPayload
}

// RunFilter narrows a run listing.
type RunFilter struct {
	Status Status
	// Repository is matched case-insensitively as a substring of the
	// repository name or owner.
	Repository string
}

// Pagination selects a page of a listing. Zero values fall back to
// page 1 with a limit of 10.
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
		limit = 10
	}
	return page, limit
}

// Statistics aggregates runs by status and findings by severity over the
// whole stored set.
type Statistics struct {
	Runs struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Failed    int `json:"failed"`
		Running   int `json:"running"`
	} `json:"scans"`
	Issues struct {
		Total  int `json:"total"`
		High   int `json:"high"`
		Medium int `json:"medium"`
		Low    int `json:"low"`
	} `json:"issues"`
}

// Store is the persistence contract for runs and their findings. A run
// exclusively owns its findings: deleting the run cascades to them.
type Store interface {
	CreateRun(run *Run) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, completion Completion) (*Run, error)
	FailRun(id string, completedAt time.Time) (*Run, error)
	DeleteRun(id string) error
	ListRuns(filter RunFilter, page Pagination) ([]Run, int, error)
	FindingsForRun(runID string) ([]Finding, error)
	UpdateFindingStatus(findingID string, status ReviewStatus) (*Finding, error)
	Statistics() (*Statistics, error)
}

// MemoryStore is an in-memory Store guarded by a RWMutex. CompleteRun inserts
// the findings and flips the status under one lock acquisition, which gives
// external readers all-or-nothing visibility of a run's result.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]*Run
	findings map[string][]Finding // keyed by run id
}

// NewMemoryStore creates an empty in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:     make(map[string]*Run),
		findings: make(map[string][]Finding),
	}
}

// CreateRun persists a new run record.
func (s *MemoryStore) CreateRun(run *Run) (*Run, error) {
	if !run.Status.IsValid() {
		return nil, errors.NewValidationError("scan_status", "unknown status "+string(run.Status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return nil, errors.NewConflictError("scan", run.ID)
	}

	stored := cloneRun(run)
	s.runs[run.ID] = stored
	return cloneRun(stored), nil
}

// GetRun returns the run with the given id, without its findings.
func (s *MemoryStore) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, errors.NewNotFoundError("scan", id)
	}
	return cloneRun(run), nil
}

// CompleteRun applies the single terminal COMPLETED update: findings, counts
// and totals become visible together with the status flip.
func (s *MemoryStore) CompleteRun(id string, completion Completion) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, errors.NewNotFoundError("scan", id)
	}
	if run.Status.IsTerminal() {
		return nil, ErrTerminalState
	}

	completedAt := completion.CompletedAt
	run.Status = StatusCompleted
	run.CompletedAt = &completedAt
	run.Duration = int(completedAt.Sub(run.StartedAt).Seconds())
	run.TotalFilesScanned = completion.FilesScanned
	run.TotalIssuesFound = len(completion.Findings)
	run.HighCount = completion.Counts.High
	run.MediumCount = completion.Counts.Medium
	run.LowCount = completion.Counts.Low
	run.Deep = completion.Deep

	s.findings[id] = append([]Finding(nil), completion.Findings...)

	return cloneRun(run), nil
}

// FailRun applies the single terminal FAILED update. Counts stay at their
// defaults and no findings from the failed attempt are persisted.
func (s *MemoryStore) FailRun(id string, completedAt time.Time) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, errors.NewNotFoundError("scan", id)
	}
	if run.Status.IsTerminal() {
		return nil, ErrTerminalState
	}

	run.Status = StatusFailed
	run.CompletedAt = &completedAt
	run.Duration = int(completedAt.Sub(run.StartedAt).Seconds())

	return cloneRun(run), nil
}

// DeleteRun removes the run and cascades to its findings.
func (s *MemoryStore) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return errors.NewNotFoundError("scan", id)
	}
	delete(s.runs, id)
	delete(s.findings, id)
	return nil
}

// ListRuns returns a page of runs matching the filter, ordered by start time
// descending. The second return value is the total count before pagination.
func (s *MemoryStore) ListRuns(filter RunFilter, page Pagination) ([]Run, int, error) {
	repository := strings.ToLower(filter.Repository)

	s.mu.RLock()
	matched := make([]Run, 0, len(s.runs))
	for _, run := range s.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if repository != "" &&
			!strings.Contains(strings.ToLower(run.RepositoryName), repository) &&
			!strings.Contains(strings.ToLower(run.RepositoryOwner), repository) {
			continue
		}
		matched = append(matched, *cloneRun(run))
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartedAt.Equal(matched[j].StartedAt) {
			return matched[i].StartedAt.After(matched[j].StartedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	pageNum, limit := page.normalize()
	start := (pageNum - 1) * limit
	if start >= total {
		return []Run{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// FindingsForRun returns the findings of a run ordered by severity descending
// then creation time descending.
func (s *MemoryStore) FindingsForRun(runID string) ([]Finding, error) {
	s.mu.RLock()
	if _, ok := s.runs[runID]; !ok {
		s.mu.RUnlock()
		return nil, errors.NewNotFoundError("scan", runID)
	}
	findings := append([]Finding(nil), s.findings[runID]...)
	s.mu.RUnlock()

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity.Rank() > findings[j].Severity.Rank()
		}
		return findings[i].CreatedAt.After(findings[j].CreatedAt)
	})
	return findings, nil
}

// UpdateFindingStatus sets the review status of a single finding.
func (s *MemoryStore) UpdateFindingStatus(findingID string, status ReviewStatus) (*Finding, error) {
	if !status.IsValid() {
		return nil, errors.NewValidationError("status", "unknown review status "+string(status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for runID, findings := range s.findings {
		for i := range findings {
			if findings[i].ID == findingID {
				findings[i].ReviewStatus = status
				s.findings[runID] = findings
				copied := findings[i]
				return &copied, nil
			}
		}
	}
	return nil, errors.NewNotFoundError("finding", findingID)
}

// Statistics computes run and finding counts over the full stored set,
// reflecting the latest committed state at call time.
func (s *MemoryStore) Statistics() (*Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Statistics{}
	for _, run := range s.runs {
		stats.Runs.Total++
		switch run.Status {
		case StatusCompleted:
			stats.Runs.Completed++
		case StatusFailed:
			stats.Runs.Failed++
		case StatusPending, StatusRunning:
			stats.Runs.Running++
		}
	}
	for _, findings := range s.findings {
		for _, finding := range findings {
			stats.Issues.Total++
			var counts SeverityCounts
			counts.Add(finding.Severity)
			stats.Issues.High += counts.High
			stats.Issues.Medium += counts.Medium
			stats.Issues.Low += counts.Low
		}
	}
	return stats, nil
}

func cloneRun(run *Run) *Run {
	copied := *run
	copied.RulesUsed = append([]string(nil), run.RulesUsed...)
	if run.CompletedAt != nil {
		completedAt := *run.CompletedAt
		copied.CompletedAt = &completedAt
	}
	if run.Deep != nil {
		deep := *run.Deep
		copied.Deep = &deep
	}
	return &copied
}
