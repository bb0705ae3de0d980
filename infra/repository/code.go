package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abensaid/lendify/pkg/domain/transfer"
)

type codeRepo struct {
	db *gorm.DB
}

func (r *codeRepo) Create(ctx context.Context, c *transfer.ValidationCode) error {
	m := codeToModel(c)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	c.CreatedAt = m.CreatedAt
	return nil
}

// ActiveForSequence resolves the newest unconsumed, non-superseded step
// code for the sequence position. Expired entries still resolve; the
// orchestrator checks expiry so expired and wrong codes fail alike.
func (r *codeRepo) ActiveForSequence(ctx context.Context, transferID uuid.UUID, sequence int) (*transfer.ValidationCode, error) {
	var m ValidationCode
	err := r.db.WithContext(ctx).
		Where("transfer_id = ? AND sequence = ? AND kind = ? AND consumed_at IS NULL AND superseded_at IS NULL",
			transferID, sequence, transfer.CodeKindStep).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *codeRepo) ActivePause(ctx context.Context, transferID uuid.UUID) (*transfer.ValidationCode, error) {
	var m ValidationCode
	err := r.db.WithContext(ctx).
		Where("transfer_id = ? AND kind = ? AND consumed_at IS NULL AND superseded_at IS NULL",
			transferID, transfer.CodeKindPause).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *codeRepo) SupersedeSequence(ctx context.Context, transferID uuid.UUID, sequence int, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&ValidationCode{}).
		Where("transfer_id = ? AND sequence = ? AND kind = ? AND consumed_at IS NULL AND superseded_at IS NULL",
			transferID, sequence, transfer.CodeKindStep).
		Update("superseded_at", at).Error
}

func (r *codeRepo) Update(ctx context.Context, c *transfer.ValidationCode) error {
	m := codeToModel(c)
	return r.db.WithContext(ctx).
		Model(&ValidationCode{}).
		Where("id = ?", m.ID).
		Select("consumed_at", "superseded_at", "attempts").
		Updates(m).Error
}

func (r *codeRepo) ListForTransfer(ctx context.Context, transferID uuid.UUID) ([]*transfer.ValidationCode, error) {
	var rows []ValidationCode
	err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*transfer.ValidationCode, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
