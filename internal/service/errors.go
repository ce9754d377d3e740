package service

import "errors"

// Sentinel errors for every domain condition a caller can act on. Stores
// and handlers match these with errors.Is; layers add context with
// fmt.Errorf("…: %w", err) without breaking the match.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded is returned when an event (or its volunteer
	// sub-quota) has no remaining seats.
	ErrCapacityExceeded = errors.New("event is at capacity")

	// ErrRegistrationNotYetOpen is returned when registration has not
	// opened for the event.
	ErrRegistrationNotYetOpen = errors.New("registration has not opened")

	// ErrRegistrationClosed is returned when registration has closed.
	ErrRegistrationClosed = errors.New("registration has closed")

	// ErrValidation is returned for malformed requests and pricing or
	// selection mismatches. Wrapped errors carry the detail.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateAttendance is returned when the user already holds an
	// active record for the event.
	ErrDuplicateAttendance = errors.New("already registered for this event")

	// ErrInvalidStateTransition is returned for operations illegal in the
	// record's current state; the attempted operation is a no-op.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrPaymentFailed is returned when the gateway declines or errors on
	// a charge; the reservation has been rolled back.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrRefundDenied marks a refund refused by the cutoff policy. It is
	// reported in the cancellation result, never as a failure of the
	// cancellation itself.
	ErrRefundDenied = errors.New("refund denied by cutoff policy")

	// ErrNotEligible is returned when a volunteer assignment does not
	// qualify for a ticket grant.
	ErrNotEligible = errors.New("assignment not eligible for ticket grant")

	// ErrCodeGenerationExhausted is returned after repeated confirmation
	// code collisions; practically unreachable for the chosen code space.
	ErrCodeGenerationExhausted = errors.New("confirmation code generation exhausted")

	// ErrCodeConflict is the store-level signal that a generated
	// confirmation code is already taken; the engine retries with a
	// fresh code.
	ErrCodeConflict = errors.New("confirmation code already in use")

	// ErrStaleRecord is the store-level signal that a conditional status
	// transition matched zero rows. The engine re-reads the record to
	// decide between idempotent success and ErrInvalidStateTransition.
	ErrStaleRecord = errors.New("record not in expected state")
)
