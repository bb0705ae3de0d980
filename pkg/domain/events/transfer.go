package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTransferInitiated  = "transfer.initiated"
	EventTransferCodeSent   = "transfer.code_sent"
	EventCodeValidated      = "transfer.code_validated"
	EventValidationFailed   = "transfer.validation_failed"
	EventTransferProcessing = "transfer.processing"
	EventTransferPaused     = "transfer.paused"
	EventTransferResumed    = "transfer.resumed"
	EventTransferCompleted  = "transfer.completed"
	EventNotificationQueued = "notification.queued"
)

// TransferInitiated is published after a transfer and its first code
// have been committed.
type TransferInitiated struct {
	TransferID uuid.UUID       `json:"transfer_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Recipient  string          `json:"recipient"`
}

func (TransferInitiated) Type() string { return EventTransferInitiated }

// TransferCodeSent is published after a new validation code issuance.
type TransferCodeSent struct {
	TransferID uuid.UUID `json:"transfer_id"`
	UserID     uuid.UUID `json:"user_id"`
	Sequence   int       `json:"sequence"`
	Method     string    `json:"method"`
}

func (TransferCodeSent) Type() string { return EventTransferCodeSent }

// CodeValidated is published after a successful code validation.
type CodeValidated struct {
	TransferID uuid.UUID `json:"transfer_id"`
	Sequence   int       `json:"sequence"`
	Progress   int       `json:"progress"`
	IsComplete bool      `json:"is_complete"`
}

func (CodeValidated) Type() string { return EventCodeValidated }

// ValidationFailed is published after a rejected validation attempt.
type ValidationFailed struct {
	TransferID uuid.UUID `json:"transfer_id"`
	Sequence   int       `json:"sequence"`
	Reason     string    `json:"reason"`
}

func (ValidationFailed) Type() string { return EventValidationFailed }

// TransferProcessing is published when the validation sequence finishes
// and deferred completion has been scheduled.
type TransferProcessing struct {
	TransferID uuid.UUID `json:"transfer_id"`
}

func (TransferProcessing) Type() string { return EventTransferProcessing }

// TransferPaused is published when an administrative hold is placed.
type TransferPaused struct {
	TransferID   uuid.UUID `json:"transfer_id"`
	PausePercent int       `json:"pause_percent"`
}

func (TransferPaused) Type() string { return EventTransferPaused }

// TransferResumed is published when a pause code lifts the hold.
type TransferResumed struct {
	TransferID uuid.UUID `json:"transfer_id"`
}

func (TransferResumed) Type() string { return EventTransferResumed }

// TransferCompleted is published by the worker once the transfer is
// terminally completed.
type TransferCompleted struct {
	TransferID uuid.UUID `json:"transfer_id"`
}

func (TransferCompleted) Type() string { return EventTransferCompleted }

// NotificationQueued asks the email path to deliver a stored
// notification fire-and-forget.
type NotificationQueued struct {
	NotificationID uuid.UUID `json:"notification_id"`
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
}

func (NotificationQueued) Type() string { return EventNotificationQueued }
