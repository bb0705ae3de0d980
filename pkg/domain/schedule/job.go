// Package schedule models durable deferred work. The transfer
// completion step is persisted as a scheduled job and executed by a
// background worker, so the pending transition survives restarts
// instead of living in an in-process timer.
package schedule

import (
	"time"

	"github.com/google/uuid"
)

// JobType names the work a scheduled job carries.
type JobType string

const (
	// JobTransferComplete flips a fully-validated transfer to completed
	// after the configured delay.
	JobTransferComplete JobType = "transfer_complete"
)

// Job is one unit of deferred work keyed to an entity.
type Job struct {
	ID        uuid.UUID
	Type      JobType
	EntityID  uuid.UUID
	DueAt     time.Time
	Attempts  int
	RanAt     *time.Time
	FailedAt  *time.Time
	LastError string
	CreatedAt time.Time
}

// NewTransferCompletion schedules the deferred completion of a transfer.
func NewTransferCompletion(transferID uuid.UUID, dueAt time.Time) *Job {
	return &Job{
		ID:       uuid.New(),
		Type:     JobTransferComplete,
		EntityID: transferID,
		DueAt:    dueAt,
	}
}

// Pending reports whether the job still awaits a successful run.
func (j *Job) Pending() bool {
	return j.RanAt == nil && j.FailedAt == nil
}

// MarkRan records a successful execution.
func (j *Job) MarkRan(now time.Time) {
	at := now
	j.RanAt = &at
}

// Reschedule pushes the job forward after a transient refusal, e.g.
// a paused transfer.
func (j *Job) Reschedule(now time.Time, delay time.Duration, reason string) {
	j.Attempts++
	j.DueAt = now.Add(delay)
	j.LastError = reason
}

// MarkFailed abandons the job after exhausting retries.
func (j *Job) MarkFailed(now time.Time, reason string) {
	j.Attempts++
	at := now
	j.FailedAt = &at
	j.LastError = reason
}
