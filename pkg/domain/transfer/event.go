package transfer

import (
	"time"

	"github.com/google/uuid"
)

// EventType names one entry kind in a transfer's audit trail.
type EventType string

const (
	EventInitiated        EventType = "initiated"
	EventCodeSent         EventType = "code_sent"
	EventCodeValidated    EventType = "code_validated"
	EventValidationFailed EventType = "validation_failed"
	EventProcessing       EventType = "processing"
	EventPaused           EventType = "paused"
	EventResumed          EventType = "resumed"
	EventCompleted        EventType = "completed"
)

// Event is an immutable audit entry recording one state change or
// notable action on a transfer. Entries are strictly ordered by
// creation time and never updated.
type Event struct {
	ID         uuid.UUID
	TransferID uuid.UUID
	Type       EventType
	Message    string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// NewEvent builds an audit entry for the given transfer.
func NewEvent(transferID uuid.UUID, eventType EventType, message string, metadata map[string]string) *Event {
	return &Event{
		ID:         uuid.New(),
		TransferID: transferID,
		Type:       eventType,
		Message:    message,
		Metadata:   metadata,
	}
}
