// Package fee models charges applied to a user. In the transfer
// workflow one validation fee is created per code issuance, whether or
// not the code is ever validated.
package fee

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the category of a fee.
type Type string

const (
	// TypeValidation is the charge attached to each validation-code
	// issuance of a transfer.
	TypeValidation Type = "validation"
)

// Fee is a charge owned by a user, causally linked to the originating
// transfer and sequence through Metadata rather than a hard foreign key.
type Fee struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      Type
	Reason    string
	Amount    decimal.Decimal
	IsPaid    bool
	PaidAt    *time.Time
	Metadata  map[string]string
	CreatedAt time.Time
}

// NewValidationFee builds the fee charged for one code issuance.
func NewValidationFee(userID, transferID uuid.UUID, sequence int, amount decimal.Decimal, reason string) *Fee {
	return &Fee{
		ID:     uuid.New(),
		UserID: userID,
		Type:   TypeValidation,
		Reason: reason,
		Amount: amount,
		Metadata: map[string]string{
			"transfer_id": transferID.String(),
			"sequence":    strconv.Itoa(sequence),
		},
	}
}
