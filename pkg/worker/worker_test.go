package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abensaid/lendify/internal/fixtures"
	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/schedule"
	"github.com/abensaid/lendify/pkg/worker"
)

type completerStub struct {
	mu    sync.Mutex
	err   error
	calls []uuid.UUID
}

func (c *completerStub) Complete(ctx context.Context, transferID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, transferID)
	return c.err
}

func newWorker(t *testing.T, stub *completerStub) (*worker.Worker, *fixtures.UoW) {
	t.Helper()
	uow := fixtures.NewUoW()
	cfg := &config.Worker{
		PollInterval: time.Millisecond,
		BatchSize:    10,
		MaxAttempts:  3,
		RetryDelay:   time.Minute,
	}
	return worker.New(uow, stub, cfg, slog.New(slog.DiscardHandler)), uow
}

func enqueue(t *testing.T, uow *fixtures.UoW, dueAt time.Time) *schedule.Job {
	t.Helper()
	jobs, err := uow.JobRepository()
	require.NoError(t, err)
	j := schedule.NewTransferCompletion(uuid.New(), dueAt)
	require.NoError(t, jobs.Enqueue(context.Background(), j))
	return j
}

func TestRunOnce_ExecutesDueJobs(t *testing.T) {
	stub := &completerStub{}
	w, uow := newWorker(t, stub)

	due := enqueue(t, uow, time.Now().Add(-time.Second))
	future := enqueue(t, uow, time.Now().Add(time.Hour))

	require.NoError(t, w.RunOnce(context.Background()))

	require.Len(t, stub.calls, 1)
	assert.Equal(t, due.EntityID, stub.calls[0])
	assert.NotNil(t, due.RanAt)
	assert.True(t, future.Pending())
	assert.Nil(t, future.RanAt)
}

func TestRunOnce_ReschedulesPausedTransfer(t *testing.T) {
	stub := &completerStub{err: domain.ErrTransferPaused}
	w, uow := newWorker(t, stub)

	j := enqueue(t, uow, time.Now().Add(-time.Second))
	require.NoError(t, w.RunOnce(context.Background()))

	assert.True(t, j.Pending())
	assert.Equal(t, 1, j.Attempts)
	assert.WithinDuration(t, time.Now().Add(time.Minute), j.DueAt, time.Second)
	assert.Equal(t, domain.ErrTransferPaused.Error(), j.LastError)
}

func TestRunOnce_AbandonsAfterMaxAttempts(t *testing.T) {
	stub := &completerStub{err: errors.New("db unavailable")}
	w, uow := newWorker(t, stub)

	j := enqueue(t, uow, time.Now().Add(-time.Second))

	// Two transient failures, then the third attempt abandons the job.
	for i := 0; i < 3; i++ {
		j.DueAt = time.Now().Add(-time.Second)
		require.NoError(t, w.RunOnce(context.Background()))
	}

	assert.NotNil(t, j.FailedAt)
	assert.False(t, j.Pending())
	assert.Equal(t, 3, j.Attempts)
	assert.Equal(t, "db unavailable", j.LastError)

	// Abandoned jobs are not retried.
	require.NoError(t, w.RunOnce(context.Background()))
	assert.Len(t, stub.calls, 3)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	stub := &completerStub{}
	w, uow := newWorker(t, stub)
	enqueue(t, uow, time.Now().Add(-time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.NotEmpty(t, stub.calls)
}
