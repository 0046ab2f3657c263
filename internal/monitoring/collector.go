package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retail-sim/internal/model"
)

// JobSnapshot holds a point-in-time view of job health.
type JobSnapshot struct {
	Counts    map[model.JobStatus]int `json:"counts"`
	Total     int                     `json:"total"`
	Simulated int                     `json:"simulated"`
	Enriched  int                     `json:"enriched"`
	Failed    int                     `json:"failed"`
	Pending   int                     `json:"pending"`
	// FailRate is failed / (simulated + enriched + failed).
	FailRate    float64   `json:"fail_rate"`
	CollectedAt time.Time `json:"collected_at"`
}

// Finished counts jobs that got past creation.
func (s *JobSnapshot) Finished() int {
	return s.Simulated + s.Enriched + s.Failed
}

// StatusCounter is the store capability the collector needs.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[model.JobStatus]int, error)
}

// Collector gathers job metrics from the store.
type Collector struct {
	store StatusCounter
}

// NewCollector creates a new metrics collector.
func NewCollector(st StatusCounter) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of job counts by status.
func (c *Collector) Collect(ctx context.Context) (*JobSnapshot, error) {
	counts, err := c.store.CountByStatus(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count jobs")
	}

	snap := &JobSnapshot{
		Counts:      make(map[model.JobStatus]int, len(model.JobStatuses)),
		CollectedAt: time.Now().UTC(),
	}
	for _, status := range model.JobStatuses {
		snap.Counts[status] = 0
	}
	for status, n := range counts {
		snap.Counts[status] = n
		snap.Total += n
		switch status {
		case model.JobStatusSimulated:
			snap.Simulated = n
		case model.JobStatusEnriched:
			snap.Enriched = n
		case model.JobStatusFailed:
			snap.Failed = n
		case model.JobStatusCreated:
			snap.Pending = n
		}
	}

	if finished := snap.Finished(); finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	return snap, nil
}
