package transfer

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// CodeKind distinguishes the sequential step codes from the
// administrator-issued pause unblock codes.
type CodeKind string

const (
	CodeKindStep  CodeKind = "step"
	CodeKindPause CodeKind = "pause"
)

// CodeTTL is the default validity window of a one-time code, used when
// no window is configured.
const CodeTTL = 15 * time.Minute

// ValidationCode is a short-lived, single-use numeric code bound to one
// transfer and, for step codes, one sequence position. At most one
// active (unconsumed, unexpired, non-superseded) code exists per
// (transfer, sequence): re-issuing supersedes the previous one.
type ValidationCode struct {
	ID             uuid.UUID
	TransferID     uuid.UUID
	Sequence       int
	Code           string
	Kind           CodeKind
	DeliveryMethod string
	ExpiresAt      time.Time
	ConsumedAt     *time.Time
	SupersededAt   *time.Time
	// Attempts counts failed entries against this code; the orchestrator
	// invalidates the code once a configured cap is reached.
	Attempts  int
	CreatedAt time.Time
}

// NewCode issues a fresh code for the given sequence position, valid
// for ttl. A non-positive ttl takes CodeTTL.
func NewCode(transferID uuid.UUID, sequence int, kind CodeKind, method string, now time.Time, ttl time.Duration) *ValidationCode {
	if ttl <= 0 {
		ttl = CodeTTL
	}
	return &ValidationCode{
		ID:             uuid.New(),
		TransferID:     transferID,
		Sequence:       sequence,
		Code:           generateCode(),
		Kind:           kind,
		DeliveryMethod: method,
		ExpiresAt:      now.Add(ttl),
	}
}

// Active reports whether the code can still be consumed.
func (c *ValidationCode) Active(now time.Time) bool {
	return c.ConsumedAt == nil && c.SupersededAt == nil && now.Before(c.ExpiresAt)
}

// Matches reports whether the supplied value equals the code.
func (c *ValidationCode) Matches(value string) bool {
	return value != "" && c.Code == value
}

// Consume marks the code as used. A code is consumed exactly once.
func (c *ValidationCode) Consume(now time.Time) {
	at := now
	c.ConsumedAt = &at
}

// Supersede invalidates the code in favor of a newer issuance for the
// same sequence (last issued wins).
func (c *ValidationCode) Supersede(now time.Time) {
	at := now
	c.SupersededAt = &at
}

// generateCode returns a 6-digit numeric code from crypto/rand.
func generateCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64())
}
