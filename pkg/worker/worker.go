// Package worker runs the durable deferred-job loop. Scheduled jobs
// are polled from the store and executed in-process; a job survives
// restarts because nothing but the poll loop lives in memory.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/schedule"
	"github.com/abensaid/lendify/pkg/repository"
)

// TransferCompleter is the slice of the transfer service the worker
// needs.
type TransferCompleter interface {
	Complete(ctx context.Context, transferID uuid.UUID) error
}

// Worker polls due jobs and dispatches them.
type Worker struct {
	uow      repository.UnitOfWork
	transfer TransferCompleter
	cfg      *config.Worker
	logger   *slog.Logger
}

// New creates a worker.
func New(uow repository.UnitOfWork, transfer TransferCompleter, cfg *config.Worker, logger *slog.Logger) *Worker {
	return &Worker{
		uow:      uow,
		transfer: transfer,
		cfg:      cfg,
		logger:   logger.With("service", "worker"),
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	w.logger.Info("worker started", "pollInterval", w.cfg.PollInterval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("job batch failed", "error", err)
			}
		}
	}
}

// RunOnce processes one batch of due jobs.
func (w *Worker) RunOnce(ctx context.Context) error {
	now := time.Now()
	var due []*schedule.Job
	err := w.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		jobs, err := uow.JobRepository()
		if err != nil {
			return err
		}
		due, err = jobs.Due(ctx, now, w.cfg.BatchSize)
		return err
	})
	if err != nil {
		return err
	}
	for _, j := range due {
		w.handle(ctx, j, now)
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, j *schedule.Job, now time.Time) {
	log := w.logger.With("jobID", j.ID, "type", j.Type, "entityID", j.EntityID)

	var execErr error
	switch j.Type {
	case schedule.JobTransferComplete:
		execErr = w.transfer.Complete(ctx, j.EntityID)
	default:
		execErr = fmt.Errorf("unknown job type %q", j.Type)
	}

	switch {
	case execErr == nil:
		j.MarkRan(now)
		log.Info("job completed")
	case errors.Is(execErr, domain.ErrTransferPaused):
		// Paused transfers are not failures: push the job forward and
		// let the hold be lifted out of band.
		j.Reschedule(now, w.cfg.RetryDelay, execErr.Error())
		log.Info("job deferred, transfer paused", "dueAt", j.DueAt)
	case j.Attempts+1 >= w.cfg.MaxAttempts:
		j.MarkFailed(now, execErr.Error())
		log.Error("job abandoned", "attempts", j.Attempts, "error", execErr)
	default:
		j.Reschedule(now, w.cfg.RetryDelay, execErr.Error())
		log.Warn("job rescheduled", "attempts", j.Attempts, "error", execErr)
	}

	err := w.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		jobs, err := uow.JobRepository()
		if err != nil {
			return err
		}
		return jobs.Update(ctx, j)
	})
	if err != nil {
		log.Error("job state update failed", "error", err)
	}
}
