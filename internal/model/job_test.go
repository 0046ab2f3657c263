package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status JobStatus
		want   string
	}{
		{JobStatusCreated, "created"},
		{JobStatusSimulated, "simulated"},
		{JobStatusEnriched, "enriched"},
		{JobStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
			assert.True(t, tt.status.Valid())
		})
	}
}

func TestJobStatus_Invalid(t *testing.T) {
	t.Parallel()
	assert.False(t, JobStatus("queued").Valid())
	assert.False(t, JobStatus("").Valid())
}

func TestJob_Terminal(t *testing.T) {
	t.Parallel()
	assert.True(t, (&Job{Status: JobStatusFailed}).Terminal())
	assert.False(t, (&Job{Status: JobStatusEnriched}).Terminal())
}

func TestJob_JSON(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 11, 15, 10, 0, 0, 0, time.UTC)
	j := Job{
		ID:        "job-1",
		Status:    JobStatusSimulated,
		Config:    map[string]any{"num_products": float64(10)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(j)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "metadata")
	assert.NotContains(t, string(data), `"error"`)
	assert.Contains(t, string(data), `"status":"simulated"`)
}
