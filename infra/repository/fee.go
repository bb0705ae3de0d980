package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abensaid/lendify/pkg/domain/fee"
)

type feeRepo struct {
	db *gorm.DB
}

func (r *feeRepo) Create(ctx context.Context, f *fee.Fee) error {
	m, err := feeToModel(f)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	f.CreatedAt = m.CreatedAt
	return nil
}

func (r *feeRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*fee.Fee, error) {
	var rows []Fee
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*fee.Fee, 0, len(rows))
	for i := range rows {
		f, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
