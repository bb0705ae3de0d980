// Package repository defines the data-access interfaces consumed by the
// services, together with the UnitOfWork transaction boundary. The GORM
// implementations live under infra/repository; in-memory fixtures for
// tests live under internal/fixtures.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/abensaid/lendify/pkg/domain/fee"
	"github.com/abensaid/lendify/pkg/domain/loan"
	"github.com/abensaid/lendify/pkg/domain/notification"
	"github.com/abensaid/lendify/pkg/domain/schedule"
	"github.com/abensaid/lendify/pkg/domain/transfer"
	"github.com/abensaid/lendify/pkg/domain/user"
)

// TransferRepository persists Transfer entities.
type TransferRepository interface {
	Create(ctx context.Context, t *transfer.Transfer) error

	// Get returns the transfer regardless of owner (worker/admin scope).
	// Returns domain.ErrTransferNotFound when absent.
	Get(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error)

	// GetForUser returns the transfer only when owned by userID.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*transfer.Transfer, error)

	// Update persists the transfer with an optimistic version check and
	// bumps Version. Returns domain.ErrStaleTransfer when the stored
	// version no longer matches.
	Update(ctx context.Context, t *transfer.Transfer) error

	ListForUser(ctx context.Context, userID uuid.UUID) ([]*transfer.Transfer, error)
}

// CodeRepository persists one-time validation codes.
type CodeRepository interface {
	Create(ctx context.Context, c *transfer.ValidationCode) error

	// ActiveForSequence returns the newest unconsumed, non-superseded step
	// code for (transferID, sequence), or nil when none exists. Expiry is
	// checked by the caller so an expired entry still resolves here.
	ActiveForSequence(ctx context.Context, transferID uuid.UUID, sequence int) (*transfer.ValidationCode, error)

	// ActivePause returns the newest consumable pause code for the
	// transfer, or nil.
	ActivePause(ctx context.Context, transferID uuid.UUID) (*transfer.ValidationCode, error)

	// SupersedeSequence invalidates every active step code for
	// (transferID, sequence); last issued wins.
	SupersedeSequence(ctx context.Context, transferID uuid.UUID, sequence int, at time.Time) error

	Update(ctx context.Context, c *transfer.ValidationCode) error

	ListForTransfer(ctx context.Context, transferID uuid.UUID) ([]*transfer.ValidationCode, error)
}

// EventRepository persists the append-only transfer audit trail.
type EventRepository interface {
	Append(ctx context.Context, e *transfer.Event) error
	ListForTransfer(ctx context.Context, transferID uuid.UUID) ([]*transfer.Event, error)
}

// FeeRepository persists user fees.
type FeeRepository interface {
	Create(ctx context.Context, f *fee.Fee) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*fee.Fee, error)
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*notification.Notification, error)
}

// SettingsRepository is the admin settings key/value store.
type SettingsRepository interface {
	// Get returns domain.ErrSettingNotFound for absent keys.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// JobRepository persists durable deferred work.
type JobRepository interface {
	Enqueue(ctx context.Context, j *schedule.Job) error

	// Due returns up to limit pending jobs with DueAt <= now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]*schedule.Job, error)

	Update(ctx context.Context, j *schedule.Job) error
}

// UserRepository persists platform accounts.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

// LoanRepository reads loans for eligibility checks.
type LoanRepository interface {
	Create(ctx context.Context, l *loan.Loan) error

	// GetForUser returns the loan only when owned by userID. Returns
	// domain.ErrLoanNotEligible when absent.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*loan.Loan, error)
}
