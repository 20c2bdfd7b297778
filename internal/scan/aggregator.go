package scan

import (
	"github.com/codesentry/codesentry/pkg/shared/errors"
)

// RunWithFindings is a run together with its ordered findings.
type RunWithFindings struct {
	Run
	Findings []Finding `json:"results"`
}

// Aggregator serves queryable views over stored runs and findings.
type Aggregator struct {
	store Store
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// ListRuns returns a page of runs matching the filter, ordered by start time
// descending, plus the total match count.
func (a *Aggregator) ListRuns(filter RunFilter, page Pagination) ([]Run, int, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, errors.NewValidationError("status", "unknown status "+string(filter.Status))
	}
	return a.store.ListRuns(filter, page)
}

// GetRun returns the run with its findings ordered by severity descending
// then creation time descending.
func (a *Aggregator) GetRun(id string) (*RunWithFindings, error) {
	run, err := a.store.GetRun(id)
	if err != nil {
		return nil, err
	}
	findings, err := a.store.FindingsForRun(id)
	if err != nil {
		return nil, err
	}
	return &RunWithFindings{Run: *run, Findings: findings}, nil
}

// DeleteRun removes a run and cascades to its findings.
func (a *Aggregator) DeleteRun(id string) error {
	return a.store.DeleteRun(id)
}

// Statistics computes run-status and finding-severity counts over the full
// stored set, reflecting the latest committed state.
func (a *Aggregator) Statistics() (*Statistics, error) {
	return a.store.Statistics()
}

// DeepDetails returns the external-service payload of a DEEP run. Requesting
// it for a run of any other mode is a validation error.
func (a *Aggregator) DeepDetails(id string) (*DeepPayload, error) {
	run, err := a.store.GetRun(id)
	if err != nil {
		return nil, err
	}
	if run.Mode != ModeDeep {
		return nil, errors.NewValidationError("scan_type", "scan "+id+" is not a deep scan")
	}
	if run.Deep == nil {
		return &DeepPayload{}, nil
	}
	return run.Deep, nil
}

// UpdateFindingStatus sets the review status of a finding.
func (a *Aggregator) UpdateFindingStatus(findingID string, status ReviewStatus) (*Finding, error) {
	return a.store.UpdateFindingStatus(findingID, status)
}
