package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/transfer"
)

type transferRepo struct {
	db *gorm.DB
}

func (r *transferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	m := transferToModel(t)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	t.CreatedAt = m.CreatedAt
	t.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *transferRepo) Get(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	var m Transfer
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *transferRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*transfer.Transfer, error) {
	var m Transfer
	err := r.db.WithContext(ctx).First(&m, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

// Update writes the transfer guarded by an optimistic version check.
// The WHERE clause carries the version the caller read; zero affected
// rows means a concurrent writer won the race.
func (r *transferRepo) Update(ctx context.Context, t *transfer.Transfer) error {
	m := transferToModel(t)
	readVersion := m.Version
	m.Version = readVersion + 1
	m.UpdatedAt = time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&Transfer{}).
		Where("id = ? AND version = ?", m.ID, readVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleTransfer
	}
	t.Version = m.Version
	t.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *transferRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*transfer.Transfer, error) {
	var rows []Transfer
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*transfer.Transfer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
