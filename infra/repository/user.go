package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/user"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	m := userToModel(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	u.CreatedAt = m.CreatedAt
	u.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getBy(ctx, "email = ?", email)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getBy(ctx, "username = ?", username)
}

func (r *userRepo) getBy(ctx context.Context, query string, arg any) (*user.User, error) {
	var m User
	err := r.db.WithContext(ctx).First(&m, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}
