package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abensaid/lendify/pkg/domain/transfer"
)

type eventRepo struct {
	db *gorm.DB
}

func (r *eventRepo) Append(ctx context.Context, e *transfer.Event) error {
	m, err := eventToModel(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	e.CreatedAt = m.CreatedAt
	return nil
}

func (r *eventRepo) ListForTransfer(ctx context.Context, transferID uuid.UUID) ([]*transfer.Event, error) {
	var rows []TransferEvent
	err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*transfer.Event, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
