package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/abensaid/lendify/pkg/repository"
)

// UoW provides the transaction boundary and repository access in one
// abstraction. Every repository obtained from the UoW handed to Do
// shares the same database transaction, so multi-write operations such
// as code issuance commit atomically.
type UoW struct {
	db *gorm.DB
	tx *gorm.DB
}

var _ repository.UnitOfWork = (*UoW)(nil)

// NewUoW creates a UoW over the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// session returns the active transaction, or the root connection when
// a repository is used outside Do.
func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

// Do runs fn inside a database transaction, providing a UoW whose
// repositories all use that transaction. A non-nil error from fn rolls
// the transaction back.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx})
	})
}

func (u *UoW) TransferRepository() (repository.TransferRepository, error) {
	return &transferRepo{db: u.session()}, nil
}

func (u *UoW) CodeRepository() (repository.CodeRepository, error) {
	return &codeRepo{db: u.session()}, nil
}

func (u *UoW) EventRepository() (repository.EventRepository, error) {
	return &eventRepo{db: u.session()}, nil
}

func (u *UoW) FeeRepository() (repository.FeeRepository, error) {
	return &feeRepo{db: u.session()}, nil
}

func (u *UoW) NotificationRepository() (repository.NotificationRepository, error) {
	return &notificationRepo{db: u.session()}, nil
}

func (u *UoW) SettingsRepository() (repository.SettingsRepository, error) {
	return &settingsRepo{db: u.session()}, nil
}

func (u *UoW) JobRepository() (repository.JobRepository, error) {
	return &jobRepo{db: u.session()}, nil
}

func (u *UoW) UserRepository() (repository.UserRepository, error) {
	return &userRepo{db: u.session()}, nil
}

func (u *UoW) LoanRepository() (repository.LoanRepository, error) {
	return &loanRepo{db: u.session()}, nil
}
