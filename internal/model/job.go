package model

import "time"

// JobStatus represents the current state of a simulation job.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "created"
	JobStatusSimulated JobStatus = "simulated"
	JobStatusEnriched  JobStatus = "enriched"
	JobStatusFailed    JobStatus = "failed"
)

// JobStatuses lists every status in lifecycle order.
var JobStatuses = []JobStatus{
	JobStatusCreated,
	JobStatusSimulated,
	JobStatusEnriched,
	JobStatusFailed,
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	for _, v := range JobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Job is one simulation run: its generation config, the treatments applied to it
// and the artifacts it produced live under the job's storage directory.
type Job struct {
	ID        string         `json:"id"`
	Status    JobStatus      `json:"status"`
	Config    map[string]any `json:"config"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Terminal reports whether the job can no longer change status.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusFailed
}
