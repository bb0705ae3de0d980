package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/abensaid/lendify/pkg/domain/transfer"
	svc "github.com/abensaid/lendify/pkg/service/transfer"
)

// InitiateRequest is the transfer form payload.
type InitiateRequest struct {
	Amount            string `json:"amount" validate:"required"`
	Recipient         string `json:"recipient" validate:"required,min=3,max=128"`
	LoanID            string `json:"loan_id" validate:"required,uuid4"`
	ExternalAccountID string `json:"external_account_id" validate:"omitempty,max=64"`
}

// SendCodeRequest optionally overrides the delivery method.
type SendCodeRequest struct {
	Method string `json:"method" validate:"omitempty,oneof=email sms manual"`
}

// ValidateCodeRequest carries one code entry attempt.
type ValidateCodeRequest struct {
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Sequence int    `json:"sequence" validate:"required,min=1"`
}

// ValidatePauseCodeRequest carries the administrator-relayed unblock code.
type ValidatePauseCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TransferResponse is the client view of a transfer.
type TransferResponse struct {
	ID              uuid.UUID  `json:"id"`
	Status          string     `json:"status"`
	Amount          string     `json:"amount"`
	Recipient       string     `json:"recipient"`
	FeeAmount       string     `json:"fee_amount"`
	ProgressPercent int        `json:"progress_percent"`
	RequiredCodes   int        `json:"required_codes"`
	CodesValidated  int        `json:"codes_validated"`
	IsPaused        bool       `json:"is_paused"`
	PausePercent    *int       `json:"pause_percent,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`

	// DemoCode is present only when code exposure is enabled.
	DemoCode string `json:"demo_code,omitempty"`
}

// EventResponse is one audit trail entry.
type EventResponse struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// CodeResponse is one issued code; the value is masked unless code
// exposure is enabled.
type CodeResponse struct {
	Sequence  int       `json:"sequence"`
	Kind      string    `json:"kind"`
	Code      string    `json:"code,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
}

// DetailResponse is the transfer with its audit trail and codes,
// everything a reconnecting client needs to resume the flow.
type DetailResponse struct {
	Transfer TransferResponse `json:"transfer"`
	Events   []EventResponse  `json:"events"`
	Codes    []CodeResponse   `json:"codes"`
}

// SendCodeResponse is the outcome of a code issuance.
type SendCodeResponse struct {
	Sequence int    `json:"sequence"`
	DemoCode string `json:"demo_code,omitempty"`
}

// ValidationResponse is the outcome of a code validation.
type ValidationResponse struct {
	Success    bool `json:"success"`
	IsComplete bool `json:"is_complete"`
	Progress   int  `json:"progress"`
}

func toTransferResponse(t *transfer.Transfer, demoCode string) TransferResponse {
	return TransferResponse{
		ID:              t.ID,
		Status:          string(t.Status),
		Amount:          t.Amount.StringFixed(2),
		Recipient:       t.Recipient,
		FeeAmount:       t.FeeAmount.StringFixed(2),
		ProgressPercent: t.ProgressPercent,
		RequiredCodes:   t.RequiredCodes,
		CodesValidated:  t.CodesValidated,
		IsPaused:        t.IsPaused,
		PausePercent:    t.PausePercent,
		ApprovedAt:      t.ApprovedAt,
		CompletedAt:     t.CompletedAt,
		CreatedAt:       t.CreatedAt,
		DemoCode:        demoCode,
	}
}

func toDetailResponse(d *svc.Detail) DetailResponse {
	out := DetailResponse{Transfer: toTransferResponse(d.Transfer, "")}
	for _, e := range d.Events {
		out.Events = append(out.Events, EventResponse{
			Type:      string(e.Type),
			Message:   e.Message,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	for _, c := range d.Codes {
		out.Codes = append(out.Codes, CodeResponse{
			Sequence:  c.Sequence,
			Kind:      string(c.Kind),
			Code:      c.Code,
			ExpiresAt: c.ExpiresAt,
			Consumed:  c.ConsumedAt != nil,
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}
