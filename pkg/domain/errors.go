// Package domain holds the sentinel errors shared across services and
// the HTTP layer. Handlers map these to status codes in webapi/common.
package domain

import "errors"

var (
	// ErrTransferNotFound is returned when a transfer id does not resolve
	// to a transfer owned by the caller.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrInvalidCode is returned when a validation code does not match the
	// active code for its sequence, has already been consumed, or has
	// expired. Expired and wrong codes are deliberately indistinguishable.
	ErrInvalidCode = errors.New("invalid or expired code")

	// ErrInvalidState is returned when an operation is not valid for the
	// transfer's current status or sequence position, e.g. requesting a
	// code after all required codes have been validated.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrSequenceOutOfOrder is returned when a validation is attempted for
	// any sequence other than codesValidated+1.
	ErrSequenceOutOfOrder = errors.New("validation sequence out of order")

	// ErrTransferPaused is returned when progress is attempted on a
	// transfer under an administrative hold.
	ErrTransferPaused = errors.New("transfer is paused")

	// ErrStaleTransfer is returned by the repository when an optimistic
	// update lost the race against a concurrent writer.
	ErrStaleTransfer = errors.New("transfer was modified concurrently")

	// ErrLoanNotEligible is returned when the referenced loan is not an
	// active loan with a signed contract owned by the caller.
	ErrLoanNotEligible = errors.New("loan not eligible for transfers")

	// ErrSettingNotFound is returned when an admin setting key is absent.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrUserUnauthorized is returned on failed authentication.
	ErrUserUnauthorized = errors.New("user unauthorized")

	// ErrUserNotFound is returned when a user lookup fails.
	ErrUserNotFound = errors.New("user not found")
)
