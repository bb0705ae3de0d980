package transfer

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abensaid/lendify/pkg/domain/transfer"
)

// InitiateInput carries a transfer request.
type InitiateInput struct {
	Amount            decimal.Decimal
	Recipient         string
	LoanID            uuid.UUID
	ExternalAccountID *string
}

// InitiateResult is the outcome of a successful initiation. DemoCode is
// populated only when code exposure is enabled (sandbox mode).
type InitiateResult struct {
	Transfer *transfer.Transfer
	DemoCode string
}

// SendCodeResult is the outcome of a code issuance.
type SendCodeResult struct {
	Sequence int
	DemoCode string
}

// ValidationResult is the outcome of a successful code validation.
type ValidationResult struct {
	Success    bool
	IsComplete bool
	Progress   int
}

// Detail is the full client view of a transfer: entity, audit trail and
// issued codes (values masked unless code exposure is enabled).
type Detail struct {
	Transfer *transfer.Transfer
	Events   []*transfer.Event
	Codes    []*transfer.ValidationCode
}
