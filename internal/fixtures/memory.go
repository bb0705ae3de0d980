// Package fixtures provides in-memory implementations of the
// repository interfaces for tests. Codes, events, fees, notifications
// and jobs are stored as shared pointers so tests can reach into stored
// state (for example to force a code past its expiry); transfers are
// stored by value to keep the optimistic version check honest.
package fixtures

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/fee"
	"github.com/abensaid/lendify/pkg/domain/loan"
	"github.com/abensaid/lendify/pkg/domain/notification"
	"github.com/abensaid/lendify/pkg/domain/schedule"
	"github.com/abensaid/lendify/pkg/domain/transfer"
	"github.com/abensaid/lendify/pkg/domain/user"
	"github.com/abensaid/lendify/pkg/repository"
)

// UoW is an in-memory repository.UnitOfWork. Do has no rollback: each
// write lands immediately, which is sufficient for the service tests,
// all of which exercise behavior rather than transaction isolation.
type UoW struct {
	mu            sync.Mutex
	transfers     map[uuid.UUID]transfer.Transfer
	codes         []*transfer.ValidationCode
	events        []*transfer.Event
	fees          []*fee.Fee
	notifications []*notification.Notification
	settings      map[string]string
	jobs          []*schedule.Job
	users         map[uuid.UUID]*user.User
	loans         map[uuid.UUID]*loan.Loan
}

// NewUoW returns an empty in-memory unit of work.
func NewUoW() *UoW {
	return &UoW{
		transfers: make(map[uuid.UUID]transfer.Transfer),
		settings:  make(map[string]string),
		users:     make(map[uuid.UUID]*user.User),
		loans:     make(map[uuid.UUID]*loan.Loan),
	}
}

// Do executes fn against the shared store. No transaction semantics.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return fn(u)
}

func (u *UoW) TransferRepository() (repository.TransferRepository, error) {
	return transferRepo{u}, nil
}

func (u *UoW) CodeRepository() (repository.CodeRepository, error) {
	return codeRepo{u}, nil
}

func (u *UoW) EventRepository() (repository.EventRepository, error) {
	return eventRepo{u}, nil
}

func (u *UoW) FeeRepository() (repository.FeeRepository, error) {
	return feeRepo{u}, nil
}

func (u *UoW) NotificationRepository() (repository.NotificationRepository, error) {
	return notificationRepo{u}, nil
}

func (u *UoW) SettingsRepository() (repository.SettingsRepository, error) {
	return settingsRepo{u}, nil
}

func (u *UoW) JobRepository() (repository.JobRepository, error) {
	return jobRepo{u}, nil
}

func (u *UoW) UserRepository() (repository.UserRepository, error) {
	return userRepo{u}, nil
}

func (u *UoW) LoanRepository() (repository.LoanRepository, error) {
	return loanRepo{u}, nil
}

// SeedUser stores a user for lookup by ID, email or username.
func (u *UoW) SeedUser(usr *user.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[usr.ID] = usr
}

// SeedLoan stores a loan for eligibility lookups.
func (u *UoW) SeedLoan(l *loan.Loan) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.loans[l.ID] = l
}

// Fees returns every stored fee.
func (u *UoW) Fees() []*fee.Fee {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*fee.Fee(nil), u.fees...)
}

// Notifications returns every stored notification.
func (u *UoW) Notifications() []*notification.Notification {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*notification.Notification(nil), u.notifications...)
}

// Codes returns every stored validation code.
func (u *UoW) Codes() []*transfer.ValidationCode {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*transfer.ValidationCode(nil), u.codes...)
}

// Jobs returns every stored scheduled job.
func (u *UoW) Jobs() []*schedule.Job {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]*schedule.Job(nil), u.jobs...)
}

type transferRepo struct{ u *UoW }

func (r transferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.u.transfers[t.ID] = *t
	return nil
}

func (r transferRepo) Get(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	stored, ok := r.u.transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	t := stored
	return &t, nil
}

func (r transferRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*transfer.Transfer, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, domain.ErrTransferNotFound
	}
	return t, nil
}

func (r transferRepo) Update(ctx context.Context, t *transfer.Transfer) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	stored, ok := r.u.transfers[t.ID]
	if !ok {
		return domain.ErrTransferNotFound
	}
	if stored.Version != t.Version {
		return domain.ErrStaleTransfer
	}
	t.Version++
	t.UpdatedAt = time.Now()
	r.u.transfers[t.ID] = *t
	return nil
}

func (r transferRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*transfer.Transfer, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*transfer.Transfer
	for _, stored := range r.u.transfers {
		if stored.UserID == userID {
			t := stored
			out = append(out, &t)
		}
	}
	return out, nil
}

type codeRepo struct{ u *UoW }

func (r codeRepo) Create(ctx context.Context, c *transfer.ValidationCode) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	c.CreatedAt = time.Now()
	r.u.codes = append(r.u.codes, c)
	return nil
}

func (r codeRepo) ActiveForSequence(ctx context.Context, transferID uuid.UUID, sequence int) (*transfer.ValidationCode, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for i := len(r.u.codes) - 1; i >= 0; i-- {
		c := r.u.codes[i]
		if c.TransferID == transferID && c.Kind == transfer.CodeKindStep &&
			c.Sequence == sequence && c.ConsumedAt == nil && c.SupersededAt == nil {
			return c, nil
		}
	}
	return nil, nil
}

func (r codeRepo) ActivePause(ctx context.Context, transferID uuid.UUID) (*transfer.ValidationCode, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for i := len(r.u.codes) - 1; i >= 0; i-- {
		c := r.u.codes[i]
		if c.TransferID == transferID && c.Kind == transfer.CodeKindPause &&
			c.ConsumedAt == nil && c.SupersededAt == nil {
			return c, nil
		}
	}
	return nil, nil
}

func (r codeRepo) SupersedeSequence(ctx context.Context, transferID uuid.UUID, sequence int, at time.Time) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for _, c := range r.u.codes {
		if c.TransferID == transferID && c.Kind == transfer.CodeKindStep &&
			c.Sequence == sequence && c.ConsumedAt == nil && c.SupersededAt == nil {
			c.Supersede(at)
		}
	}
	return nil
}

func (r codeRepo) Update(ctx context.Context, c *transfer.ValidationCode) error {
	// Codes are shared pointers; mutations are already visible.
	return nil
}

func (r codeRepo) ListForTransfer(ctx context.Context, transferID uuid.UUID) ([]*transfer.ValidationCode, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*transfer.ValidationCode
	for _, c := range r.u.codes {
		if c.TransferID == transferID {
			out = append(out, c)
		}
	}
	return out, nil
}

type eventRepo struct{ u *UoW }

func (r eventRepo) Append(ctx context.Context, e *transfer.Event) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	e.CreatedAt = time.Now()
	r.u.events = append(r.u.events, e)
	return nil
}

func (r eventRepo) ListForTransfer(ctx context.Context, transferID uuid.UUID) ([]*transfer.Event, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*transfer.Event
	for _, e := range r.u.events {
		if e.TransferID == transferID {
			out = append(out, e)
		}
	}
	return out, nil
}

type feeRepo struct{ u *UoW }

func (r feeRepo) Create(ctx context.Context, f *fee.Fee) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	f.CreatedAt = time.Now()
	r.u.fees = append(r.u.fees, f)
	return nil
}

func (r feeRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*fee.Fee, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*fee.Fee
	for _, f := range r.u.fees {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

type notificationRepo struct{ u *UoW }

func (r notificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	n.CreatedAt = time.Now()
	r.u.notifications = append(r.u.notifications, n)
	return nil
}

func (r notificationRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*notification.Notification, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.u.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type settingsRepo struct{ u *UoW }

func (r settingsRepo) Get(ctx context.Context, key string) (string, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	v, ok := r.u.settings[key]
	if !ok {
		return "", domain.ErrSettingNotFound
	}
	return v, nil
}

func (r settingsRepo) Set(ctx context.Context, key, value string) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.settings[key] = value
	return nil
}

type jobRepo struct{ u *UoW }

func (r jobRepo) Enqueue(ctx context.Context, j *schedule.Job) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	j.CreatedAt = time.Now()
	r.u.jobs = append(r.u.jobs, j)
	return nil
}

func (r jobRepo) Due(ctx context.Context, now time.Time, limit int) ([]*schedule.Job, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	var out []*schedule.Job
	for _, j := range r.u.jobs {
		if j.Pending() && !j.DueAt.After(now) {
			out = append(out, j)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r jobRepo) Update(ctx context.Context, j *schedule.Job) error {
	// Jobs are shared pointers; mutations are already visible.
	return nil
}

type userRepo struct{ u *UoW }

func (r userRepo) Create(ctx context.Context, usr *user.User) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	usr.CreatedAt = time.Now()
	r.u.users[usr.ID] = usr
	return nil
}

func (r userRepo) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	usr, ok := r.u.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return usr, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for _, usr := range r.u.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	for _, usr := range r.u.users {
		if usr.Username == username {
			return usr, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type loanRepo struct{ u *UoW }

func (r loanRepo) Create(ctx context.Context, l *loan.Loan) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	l.CreatedAt = time.Now()
	r.u.loans[l.ID] = l
	return nil
}

func (r loanRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*loan.Loan, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	l, ok := r.u.loans[id]
	if !ok || l.UserID != userID {
		return nil, domain.ErrLoanNotEligible
	}
	return l, nil
}
