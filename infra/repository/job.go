package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abensaid/lendify/pkg/domain/schedule"
)

func forUpdateSkipLocked() clause.Locking {
	return clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}
}

type jobRepo struct {
	db *gorm.DB
}

func (r *jobRepo) Enqueue(ctx context.Context, j *schedule.Job) error {
	m := jobToModel(j)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	j.CreatedAt = m.CreatedAt
	return nil
}

// Due claims up to limit pending jobs whose due time has passed, oldest
// first. Rows are locked for update so concurrent workers do not pick
// the same batch.
func (r *jobRepo) Due(ctx context.Context, now time.Time, limit int) ([]*schedule.Job, error) {
	var rows []ScheduledJob
	err := r.db.WithContext(ctx).
		Clauses(forUpdateSkipLocked()).
		Where("due_at <= ? AND ran_at IS NULL AND failed_at IS NULL", now).
		Order("due_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*schedule.Job, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *jobRepo) Update(ctx context.Context, j *schedule.Job) error {
	m := jobToModel(j)
	return r.db.WithContext(ctx).
		Model(&ScheduledJob{}).
		Where("id = ?", m.ID).
		Select("due_at", "attempts", "ran_at", "failed_at", "last_error").
		Updates(m).Error
}
