// Package transfer contains the domain model for the outbound transfer
// validation workflow: the Transfer entity, its one-time validation
// codes and its append-only audit events.
//
// A transfer is created pending with progress seeded to 10%. Each
// successfully validated code advances progress in equal increments
// toward a 90% ceiling; the final 10% is reserved for the deferred
// completion step executed by the worker.
package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abensaid/lendify/pkg/domain"
)

// Status is the lifecycle state of a transfer. It only moves forward;
// the sole regressions are the administrator-triggered suspended and
// rejected states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusSuspended  Status = "suspended"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

// Terminal reports whether no further progress is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

const (
	// ProgressFloor is the progress a transfer is seeded with on initiation.
	ProgressFloor = 10
	// ProgressCeiling is the maximum progress reachable through code
	// validation; completion lifts it to 100.
	ProgressCeiling = 90
)

// Transfer is a single outbound funds-movement request progressing
// through the code-gated validation protocol.
type Transfer struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	LoanID            uuid.UUID
	Amount            decimal.Decimal
	Recipient         string
	ExternalAccountID *string
	Status            Status
	CurrentStep       int
	ProgressPercent   int
	FeeAmount         decimal.Decimal
	RequiredCodes     int
	CodesValidated    int
	IsPaused          bool
	PausePercent      *int
	ApprovedAt        *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Version is the optimistic concurrency counter; the repository
	// rejects updates carrying a stale version.
	Version int
}

// New builds a pending transfer seeded at the progress floor.
func New(
	userID, loanID uuid.UUID,
	amount decimal.Decimal,
	recipient string,
	externalAccountID *string,
	requiredCodes int,
	feeAmount decimal.Decimal,
) (*Transfer, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, domain.ErrInvalidState
	}
	if requiredCodes < 1 {
		requiredCodes = 1
	}
	return &Transfer{
		ID:                uuid.New(),
		UserID:            userID,
		LoanID:            loanID,
		Amount:            amount,
		Recipient:         recipient,
		ExternalAccountID: externalAccountID,
		Status:            StatusPending,
		CurrentStep:       1,
		ProgressPercent:   ProgressFloor,
		FeeAmount:         feeAmount,
		RequiredCodes:     requiredCodes,
		CodesValidated:    0,
	}, nil
}

// ProgressFor computes the progress value after validated codes out of
// required have been accepted: min(10 + validated*floor(80/required), 90).
func ProgressFor(validated, required int) int {
	if required < 1 {
		required = 1
	}
	step := (ProgressCeiling - ProgressFloor) / required
	p := ProgressFloor + validated*step
	if p > ProgressCeiling {
		p = ProgressCeiling
	}
	return p
}

// NextSequence is the sequence position the next code must carry.
func (t *Transfer) NextSequence() int {
	return t.CodesValidated + 1
}

// CodesExhausted reports whether every required code has been validated.
func (t *Transfer) CodesExhausted() bool {
	return t.CodesValidated >= t.RequiredCodes
}

// RegisterValidation records one successful code validation, advancing
// codesValidated, progress and, when the required sequence is complete,
// flipping the transfer into in-progress. Returns true when the
// validation sequence is now complete.
func (t *Transfer) RegisterValidation(now time.Time) (complete bool, err error) {
	if t.Status != StatusPending && t.Status != StatusInProgress {
		return false, domain.ErrInvalidState
	}
	if t.CodesExhausted() {
		return false, domain.ErrInvalidState
	}
	t.CodesValidated++
	t.ProgressPercent = ProgressFor(t.CodesValidated, t.RequiredCodes)
	if t.CodesExhausted() {
		t.Status = StatusInProgress
		t.CurrentStep = t.CodesValidated + 1
		at := now
		t.ApprovedAt = &at
		return true, nil
	}
	return false, nil
}

// Complete finalizes the transfer after the deferred completion delay.
// Completing an already-completed transfer is a no-op; completing a
// paused or suspended transfer is refused so the worker can reschedule.
func (t *Transfer) Complete(now time.Time) error {
	if t.Status == StatusCompleted {
		return nil
	}
	if t.IsPaused || t.Status == StatusSuspended {
		return domain.ErrTransferPaused
	}
	if t.Status != StatusInProgress {
		return domain.ErrInvalidState
	}
	t.Status = StatusCompleted
	t.ProgressPercent = 100
	at := now
	t.CompletedAt = &at
	return nil
}

// Suspend places an administrative hold at the current progress value.
func (t *Transfer) Suspend() error {
	if t.Status != StatusInProgress {
		return domain.ErrInvalidState
	}
	if t.IsPaused {
		return nil
	}
	t.IsPaused = true
	p := t.ProgressPercent
	t.PausePercent = &p
	t.Status = StatusSuspended
	return nil
}

// Resume lifts an administrative hold after a valid pause code.
func (t *Transfer) Resume() error {
	if !t.IsPaused {
		return domain.ErrInvalidState
	}
	t.IsPaused = false
	t.PausePercent = nil
	t.Status = StatusInProgress
	return nil
}
