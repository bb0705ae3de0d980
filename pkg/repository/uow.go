package repository

import (
	"context"
)

// UnitOfWork is the transaction boundary for multi-write operations.
// Every repository obtained from the UnitOfWork passed to Do shares one
// database transaction, so code issuance (code + fee + notification +
// audit event) appears together or not at all.
type UnitOfWork interface {
	// Do executes fn within a transaction boundary. If fn returns an
	// error the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	TransferRepository() (TransferRepository, error)
	CodeRepository() (CodeRepository, error)
	EventRepository() (EventRepository, error)
	FeeRepository() (FeeRepository, error)
	NotificationRepository() (NotificationRepository, error)
	SettingsRepository() (SettingsRepository, error)
	JobRepository() (JobRepository, error)
	UserRepository() (UserRepository, error)
	LoanRepository() (LoanRepository, error)
}
