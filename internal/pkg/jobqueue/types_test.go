package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileJobPayloadRoundTrip(t *testing.T) {
	payload := ReconcileJobPayload{OrganizationID: 42, Trigger: "manual"}

	restored, err := ReconcileJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(42), restored.OrganizationID)
	assert.Equal(t, "manual", restored.Trigger)
}

func TestDetailRefreshJobPayloadRoundTrip(t *testing.T) {
	payload := DetailRefreshJobPayload{OrganizationID: 7}

	restored, err := DetailRefreshJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(7), restored.OrganizationID)
}

func TestReconcileJobPayloadFromMapRejectsWrongTypes(t *testing.T) {
	_, err := ReconcileJobPayloadFromMap(map[string]interface{}{
		"organization_id": "not-a-number",
	})
	assert.Error(t, err)
}

func TestJobIsRetryable(t *testing.T) {
	job := &Job{Status: JobStatusFailed, RetryCount: 1, MaxRetries: 3}
	assert.True(t, job.IsRetryable())

	job.RetryCount = 3
	assert.False(t, job.IsRetryable(), "retry budget exhausted")

	job = &Job{Status: JobStatusProcessing, RetryCount: 0, MaxRetries: 3}
	assert.False(t, job.IsRetryable(), "only failed jobs retry")
}

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		Type:       JobTypeConnectionReconcile,
		Status:     JobStatusPending,
		CreatedAt:  time.Now().Add(-time.Minute),
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("upstream 503")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "upstream 503", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsProcessing()
	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg, "completion clears the previous failure")
	assert.Equal(t, 1, job.RetryCount, "retry count records history, completion keeps it")
}
