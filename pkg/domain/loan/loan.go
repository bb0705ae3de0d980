// Package loan carries the minimal loan view the transfer workflow
// needs for eligibility checks. Loan origination and approval live in
// the back-office, outside this service's scope.
package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a loan.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusRejected Status = "rejected"
)

// Loan is the slice of the loan entity relevant to transfers.
type Loan struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Amount           decimal.Decimal
	Status           Status
	ContractSignedAt *time.Time
	CreatedAt        time.Time
}

// EligibleForTransfer reports whether funds can be moved out of this
// loan: it must be active with a signed contract.
func (l *Loan) EligibleForTransfer() bool {
	return l.Status == StatusActive && l.ContractSignedAt != nil
}
