package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/loan"
)

type loanRepo struct {
	db *gorm.DB
}

func (r *loanRepo) Create(ctx context.Context, l *loan.Loan) error {
	m := loanToModel(l)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	l.CreatedAt = m.CreatedAt
	return nil
}

// GetForUser scopes the lookup to the owner. An absent loan surfaces as
// not-eligible so callers cannot probe other users' loan ids.
func (r *loanRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*loan.Loan, error) {
	var m Loan
	err := r.db.WithContext(ctx).First(&m, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLoanNotEligible
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}
