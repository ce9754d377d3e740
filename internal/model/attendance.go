package model

import "time"

// AttendanceKind distinguishes the two attendance models sharing one
// capacity pool: paid/managed Tickets and free RSVPs.
type AttendanceKind string

const (
	KindTicket AttendanceKind = "ticket"
	KindRSVP   AttendanceKind = "rsvp"
)

// AttendanceStatus is the lifecycle state of an AttendanceRecord.
//
// Legal transitions:
//
//	Reserved → Confirmed → CheckedIn
//	Reserved → Cancelled
//	Confirmed → Cancelled
//
// CheckedIn and Cancelled are terminal.
type AttendanceStatus string

const (
	StatusReserved  AttendanceStatus = "reserved"
	StatusConfirmed AttendanceStatus = "confirmed"
	StatusCheckedIn AttendanceStatus = "checked_in"
	StatusCancelled AttendanceStatus = "cancelled"
)

// Active reports whether the status counts against event capacity.
func (s AttendanceStatus) Active() bool {
	return s == StatusReserved || s == StatusConfirmed || s == StatusCheckedIn
}

// Terminal reports whether no further transitions are legal.
func (s AttendanceStatus) Terminal() bool {
	return s == StatusCheckedIn || s == StatusCancelled
}

// CapacityPool records which counter (if any) a record reserved against, so
// that cancellation releases the right one.
type CapacityPool string

const (
	PoolGeneral   CapacityPool = "general"
	PoolVolunteer CapacityPool = "volunteer"
	// PoolNone marks records exempt from capacity accounting
	// (volunteer grants under the exempt policy).
	PoolNone CapacityPool = "none"
)

// AttendanceRecord is a user's claim on a seat at an event. It covers both
// paid Tickets and free RSVPs; Kind tells them apart and price fields are
// zero-valued for RSVPs.
type AttendanceRecord struct {
	ID      string         `json:"id"`
	EventID string         `json:"event_id"`
	UserID  string         `json:"user_id"`
	Kind    AttendanceKind `json:"kind"`

	Status           AttendanceStatus `json:"status"`
	ConfirmationCode string           `json:"confirmation_code"`
	Pool             CapacityPool     `json:"-"`

	// Ticket-only fields.
	TicketType  TicketType `json:"ticket_type,omitempty"`
	PriceAmount int64      `json:"price_amount,omitempty"`
	Currency    string     `json:"currency,omitempty"`

	// Personal-safety fields, passed through verbatim.
	DietaryNeeds       string `json:"dietary_needs,omitempty"`
	AccessibilityNeeds string `json:"accessibility_needs,omitempty"`
	EmergencyContact   string `json:"emergency_contact,omitempty"`

	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy string     `json:"checked_in_by,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	UserID     string     `json:"user_id"`
	TicketType TicketType `json:"ticket_type,omitempty"`
	// AmountOffered is the caller's chosen amount, required for
	// sliding-scale events and validated against fixed prices otherwise.
	AmountOffered    int64  `json:"amount_offered,omitempty"`
	PaymentMethodRef string `json:"payment_method_ref,omitempty"`

	DietaryNeeds       string `json:"dietary_needs,omitempty"`
	AccessibilityNeeds string `json:"accessibility_needs,omitempty"`
	EmergencyContact   string `json:"emergency_contact,omitempty"`
}

// CancelRequest is the payload for cancelling an attendance record.
type CancelRequest struct {
	ActingUserID string `json:"acting_user_id"`
	Reason       string `json:"reason,omitempty"`
	// AdminOverride bypasses the refund cutoff; recorded in the refund
	// reason for the audit trail.
	AdminOverride bool `json:"admin_override,omitempty"`
	// RefundAmount requests a partial refund in minor units. Nil means
	// refund the full charged amount.
	RefundAmount *int64 `json:"refund_amount,omitempty"`
}

// CancelResult reports the outcome of a cancellation.
type CancelResult struct {
	RecordID string `json:"record_id"`
	// RefundIssued is true when the gateway accepted the refund.
	RefundIssued bool  `json:"refund_issued"`
	RefundAmount int64 `json:"refund_amount,omitempty"`
	// RefundOutstanding is true when a refund was owed but the gateway
	// call failed; the payment is flagged for manual reconciliation.
	RefundOutstanding bool `json:"refund_outstanding,omitempty"`
	// RefundDenied is true when the cancellation fell outside the refund
	// cutoff and no admin override was given.
	RefundDenied bool `json:"refund_denied,omitempty"`
}

// CheckInRequest is the payload for checking in an attendance record.
type CheckInRequest struct {
	CheckerUserID string `json:"checker_user_id"`
}

// CheckInResult reports a check-in. Repeated check-ins of the same record
// return the original timestamp and checker.
type CheckInResult struct {
	RecordID       string    `json:"record_id"`
	CheckedInAt    time.Time `json:"checked_in_at"`
	CheckedInBy    string    `json:"checked_in_by"`
	AlreadyChecked bool      `json:"already_checked_in"`
}
