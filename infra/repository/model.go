// Package repository contains the GORM-backed implementations of the
// data-access interfaces and the transactional UnitOfWork.
package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/abensaid/lendify/pkg/domain/fee"
	"github.com/abensaid/lendify/pkg/domain/loan"
	"github.com/abensaid/lendify/pkg/domain/notification"
	"github.com/abensaid/lendify/pkg/domain/schedule"
	"github.com/abensaid/lendify/pkg/domain/transfer"
	"github.com/abensaid/lendify/pkg/domain/user"
)

// Transfer is the transfers table row.
type Transfer struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID `gorm:"type:uuid;index;not null"`
	LoanID            uuid.UUID `gorm:"type:uuid;index;not null"`
	Amount            decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Recipient         string          `gorm:"size:128;not null"`
	ExternalAccountID *string         `gorm:"size:64"`
	Status            string          `gorm:"size:16;index;not null"`
	CurrentStep       int             `gorm:"not null;default:1"`
	ProgressPercent   int             `gorm:"not null"`
	FeeAmount         decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	RequiredCodes     int             `gorm:"not null"`
	CodesValidated    int             `gorm:"not null"`
	IsPaused          bool            `gorm:"not null;default:false"`
	PausePercent      *int
	ApprovedAt        *time.Time
	CompletedAt       *time.Time
	Version           int `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Transfer) TableName() string { return "transfers" }

func transferToModel(t *transfer.Transfer) *Transfer {
	return &Transfer{
		ID:                t.ID,
		UserID:            t.UserID,
		LoanID:            t.LoanID,
		Amount:            t.Amount,
		Recipient:         t.Recipient,
		ExternalAccountID: t.ExternalAccountID,
		Status:            string(t.Status),
		CurrentStep:       t.CurrentStep,
		ProgressPercent:   t.ProgressPercent,
		FeeAmount:         t.FeeAmount,
		RequiredCodes:     t.RequiredCodes,
		CodesValidated:    t.CodesValidated,
		IsPaused:          t.IsPaused,
		PausePercent:      t.PausePercent,
		ApprovedAt:        t.ApprovedAt,
		CompletedAt:       t.CompletedAt,
		Version:           t.Version,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func (m *Transfer) toDomain() *transfer.Transfer {
	return &transfer.Transfer{
		ID:                m.ID,
		UserID:            m.UserID,
		LoanID:            m.LoanID,
		Amount:            m.Amount,
		Recipient:         m.Recipient,
		ExternalAccountID: m.ExternalAccountID,
		Status:            transfer.Status(m.Status),
		CurrentStep:       m.CurrentStep,
		ProgressPercent:   m.ProgressPercent,
		FeeAmount:         m.FeeAmount,
		RequiredCodes:     m.RequiredCodes,
		CodesValidated:    m.CodesValidated,
		IsPaused:          m.IsPaused,
		PausePercent:      m.PausePercent,
		ApprovedAt:        m.ApprovedAt,
		CompletedAt:       m.CompletedAt,
		Version:           m.Version,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// ValidationCode is the validation_codes table row.
type ValidationCode struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransferID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Sequence       int       `gorm:"not null"`
	Code           string    `gorm:"size:6;not null"`
	Kind           string    `gorm:"size:8;not null"`
	DeliveryMethod string    `gorm:"size:16;not null"`
	ExpiresAt      time.Time `gorm:"not null"`
	ConsumedAt     *time.Time
	SupersededAt   *time.Time
	Attempts       int `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (ValidationCode) TableName() string { return "validation_codes" }

func codeToModel(c *transfer.ValidationCode) *ValidationCode {
	return &ValidationCode{
		ID:             c.ID,
		TransferID:     c.TransferID,
		Sequence:       c.Sequence,
		Code:           c.Code,
		Kind:           string(c.Kind),
		DeliveryMethod: c.DeliveryMethod,
		ExpiresAt:      c.ExpiresAt,
		ConsumedAt:     c.ConsumedAt,
		SupersededAt:   c.SupersededAt,
		Attempts:       c.Attempts,
		CreatedAt:      c.CreatedAt,
	}
}

func (m *ValidationCode) toDomain() *transfer.ValidationCode {
	return &transfer.ValidationCode{
		ID:             m.ID,
		TransferID:     m.TransferID,
		Sequence:       m.Sequence,
		Code:           m.Code,
		Kind:           transfer.CodeKind(m.Kind),
		DeliveryMethod: m.DeliveryMethod,
		ExpiresAt:      m.ExpiresAt,
		ConsumedAt:     m.ConsumedAt,
		SupersededAt:   m.SupersededAt,
		Attempts:       m.Attempts,
		CreatedAt:      m.CreatedAt,
	}
}

// TransferEvent is the transfer_events audit table row. Metadata is a
// JSONB document.
type TransferEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransferID uuid.UUID `gorm:"type:uuid;index;not null"`
	Type       string    `gorm:"size:32;not null"`
	Message    string    `gorm:"size:512;not null"`
	Metadata   []byte    `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

func (TransferEvent) TableName() string { return "transfer_events" }

func eventToModel(e *transfer.Event) (*TransferEvent, error) {
	var metadata []byte
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = raw
	}
	return &TransferEvent{
		ID:         e.ID,
		TransferID: e.TransferID,
		Type:       string(e.Type),
		Message:    e.Message,
		Metadata:   metadata,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func (m *TransferEvent) toDomain() (*transfer.Event, error) {
	var metadata map[string]string
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, err
		}
	}
	return &transfer.Event{
		ID:         m.ID,
		TransferID: m.TransferID,
		Type:       transfer.EventType(m.Type),
		Message:    m.Message,
		Metadata:   metadata,
		CreatedAt:  m.CreatedAt,
	}, nil
}

// Fee is the fees table row.
type Fee struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	Type      string          `gorm:"size:32;not null"`
	Reason    string          `gorm:"size:256"`
	Amount    decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	IsPaid    bool            `gorm:"not null;default:false"`
	PaidAt    *time.Time
	Metadata  []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (Fee) TableName() string { return "fees" }

func feeToModel(f *fee.Fee) (*Fee, error) {
	var metadata []byte
	if len(f.Metadata) > 0 {
		raw, err := json.Marshal(f.Metadata)
		if err != nil {
			return nil, err
		}
		metadata = raw
	}
	return &Fee{
		ID:        f.ID,
		UserID:    f.UserID,
		Type:      string(f.Type),
		Reason:    f.Reason,
		Amount:    f.Amount,
		IsPaid:    f.IsPaid,
		PaidAt:    f.PaidAt,
		Metadata:  metadata,
		CreatedAt: f.CreatedAt,
	}, nil
}

func (m *Fee) toDomain() (*fee.Fee, error) {
	var metadata map[string]string
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, err
		}
	}
	return &fee.Fee{
		ID:        m.ID,
		UserID:    m.UserID,
		Type:      fee.Type(m.Type),
		Reason:    m.Reason,
		Amount:    m.Amount,
		IsPaid:    m.IsPaid,
		PaidAt:    m.PaidAt,
		Metadata:  metadata,
		CreatedAt: m.CreatedAt,
	}, nil
}

// Notification is the notifications table row.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Title     string    `gorm:"size:128;not null"`
	Body      string    `gorm:"size:1024;not null"`
	Channel   string    `gorm:"size:16;not null"`
	ReadAt    *time.Time
	CreatedAt time.Time
}

func (Notification) TableName() string { return "notifications" }

func notificationToModel(n *notification.Notification) *Notification {
	return &Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Body:      n.Body,
		Channel:   string(n.Channel),
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func (m *Notification) toDomain() *notification.Notification {
	return &notification.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Body:      m.Body,
		Channel:   notification.Channel(m.Channel),
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}
}

// Setting is the admin settings key/value row.
type Setting struct {
	Key       string `gorm:"size:64;primaryKey"`
	Value     string `gorm:"size:256;not null"`
	UpdatedAt time.Time
}

func (Setting) TableName() string { return "settings" }

// ScheduledJob is the scheduled_jobs table row.
type ScheduledJob struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type      string    `gorm:"size:32;index;not null"`
	EntityID  uuid.UUID `gorm:"type:uuid;index;not null"`
	DueAt     time.Time `gorm:"index;not null"`
	Attempts  int       `gorm:"not null;default:0"`
	RanAt     *time.Time
	FailedAt  *time.Time
	LastError string `gorm:"size:512"`
	CreatedAt time.Time
}

func (ScheduledJob) TableName() string { return "scheduled_jobs" }

func jobToModel(j *schedule.Job) *ScheduledJob {
	return &ScheduledJob{
		ID:        j.ID,
		Type:      string(j.Type),
		EntityID:  j.EntityID,
		DueAt:     j.DueAt,
		Attempts:  j.Attempts,
		RanAt:     j.RanAt,
		FailedAt:  j.FailedAt,
		LastError: j.LastError,
		CreatedAt: j.CreatedAt,
	}
}

func (m *ScheduledJob) toDomain() *schedule.Job {
	return &schedule.Job{
		ID:        m.ID,
		Type:      schedule.JobType(m.Type),
		EntityID:  m.EntityID,
		DueAt:     m.DueAt,
		Attempts:  m.Attempts,
		RanAt:     m.RanAt,
		FailedAt:  m.FailedAt,
		LastError: m.LastError,
		CreatedAt: m.CreatedAt,
	}
}

// User is the users table row.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"uniqueIndex;size:50;not null"`
	Email     string    `gorm:"uniqueIndex;size:255;not null"`
	Password  string    `gorm:"size:128;not null"`
	Role      string    `gorm:"size:16;not null;default:'customer'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }

func userToModel(u *user.User) *User {
	return &User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.Password,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (m *User) toDomain() *user.User {
	return &user.User{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		Password:  m.Password,
		Role:      user.Role(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// Loan is the loans table row.
type Loan struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	Amount           decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status           string          `gorm:"size:16;not null"`
	ContractSignedAt *time.Time
	CreatedAt        time.Time
}

func (Loan) TableName() string { return "loans" }

func loanToModel(l *loan.Loan) *Loan {
	return &Loan{
		ID:               l.ID,
		UserID:           l.UserID,
		Amount:           l.Amount,
		Status:           string(l.Status),
		ContractSignedAt: l.ContractSignedAt,
		CreatedAt:        l.CreatedAt,
	}
}

func (m *Loan) toDomain() *loan.Loan {
	return &loan.Loan{
		ID:               m.ID,
		UserID:           m.UserID,
		Amount:           m.Amount,
		Status:           m.toStatus(),
		ContractSignedAt: m.ContractSignedAt,
		CreatedAt:        m.CreatedAt,
	}
}

func (m *Loan) toStatus() loan.Status { return loan.Status(m.Status) }

// Migrate creates or updates the schema for every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Loan{},
		&Transfer{},
		&ValidationCode{},
		&TransferEvent{},
		&Fee{},
		&Notification{},
		&Setting{},
		&ScheduledJob{},
	)
}
