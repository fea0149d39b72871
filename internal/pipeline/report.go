package pipeline

import (
	"sync"

	"github.com/google/uuid"

	"github.com/freightdata/tariff-extractor/constants"
)

// SoftFailure identifies one artifact that contributed nothing to a run.
type SoftFailure struct {
	Source string          `json:"source"`
	Page   int             `json:"page,omitempty"`
	Region int             `json:"region,omitempty"`
	Stage  constants.Stage `json:"stage"`
	Err    string          `json:"error"`
}

// Report aggregates the outcome of one pipeline run. Counters are guarded by
// a mutex because the extraction fan-out updates them from worker goroutines.
type Report struct {
	mu sync.Mutex

	RunID   uuid.UUID `json:"run_id"`
	Country string    `json:"country"`

	Documents         int `json:"documents"`
	CandidateRegions  int `json:"candidate_regions"`
	RecordsNormalized int `json:"records_normalized"`
	// RecordsUpserted counts successful upsert operations; RecordsInserted
	// counts the subset that created new rows. The two differ when dedup
	// collapses repeat extractions.
	RecordsUpserted int `json:"records_upserted"`
	RecordsInserted int `json:"records_inserted"`
	RecordsDropped  int `json:"records_dropped"`

	SoftFailures []SoftFailure   `json:"soft_failures"`
	FailedStage  constants.Stage `json:"failed_stage,omitempty"`
}

func newReport(country string) *Report {
	return &Report{RunID: uuid.New(), Country: country}
}

func (r *Report) addCandidates(n int) {
	r.mu.Lock()
	r.CandidateRegions += n
	r.mu.Unlock()
}

func (r *Report) addNormalized(valid, dropped int) {
	r.mu.Lock()
	r.RecordsNormalized += valid
	r.RecordsDropped += dropped
	r.mu.Unlock()
}

func (r *Report) addUpserted(inserted bool) {
	r.mu.Lock()
	r.RecordsUpserted++
	if inserted {
		r.RecordsInserted++
	}
	r.mu.Unlock()
}

func (r *Report) addSoftFailure(f SoftFailure) {
	r.mu.Lock()
	r.SoftFailures = append(r.SoftFailures, f)
	r.mu.Unlock()
}

// SoftFailureCount returns the number of artifacts that contributed nothing.
func (r *Report) SoftFailureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.SoftFailures)
}
