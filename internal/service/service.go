// Package service implements the attendance engine: pricing resolution,
// capacity reservation, the attendance state machine, payment and refund
// coordination, volunteer ticket grants, and check-in.
//
// The engine holds no authoritative in-process state; every counter and
// status lives in the store, and every mutation that races (capacity,
// status transitions, grant flags) is a single conditional update there.
// That keeps the engine horizontally scalable.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverhall/attendance/internal/model"
)

// EventStore persists events.
type EventStore interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
}

// CapacityLedger enforces "no more reservations than seats". TryReserve
// must be a single atomic conditional update — increment if below the
// limit, else fail with ErrCapacityExceeded. Release decrements
// unconditionally; the engine calls it at most once per cancellation.
type CapacityLedger interface {
	TryReserve(ctx context.Context, eventID string, pool model.CapacityPool) error
	Release(ctx context.Context, eventID string, pool model.CapacityPool) error
}

// AttendanceStore persists attendance records. Status-changing methods are
// conditional on the expected prior status and return ErrStaleRecord when
// the record is not in that status, which serializes racing operations on
// the same record.
type AttendanceStore interface {
	// CreateRecord inserts a record in Reserved (or Confirmed, for free
	// RSVPs and volunteer grants). Returns ErrDuplicateAttendance when an
	// active record exists for the (user, event) pair and ErrCodeConflict
	// when the confirmation code is taken.
	CreateRecord(ctx context.Context, record *model.AttendanceRecord) error
	GetRecord(ctx context.Context, id string) (*model.AttendanceRecord, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.AttendanceRecord, error)
	// HasActive reports whether the user holds a non-cancelled record for
	// the event.
	HasActive(ctx context.Context, eventID, userID string) (bool, error)

	// ConfirmRecord moves Reserved → Confirmed.
	ConfirmRecord(ctx context.Context, id string, at time.Time) error
	// CancelRecord moves Reserved or Confirmed → Cancelled and returns
	// the prior status.
	CancelRecord(ctx context.Context, id string, at time.Time, reason string) (model.AttendanceStatus, error)
	// CheckInRecord moves Confirmed → CheckedIn.
	CheckInRecord(ctx context.Context, id string, at time.Time, checkerID string) error
}

// PaymentStore persists payments.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	GetPaymentByTicket(ctx context.Context, ticketID string) (*model.Payment, error)
	MarkCompleted(ctx context.Context, id, transactionID string, at time.Time) error
	MarkFailed(ctx context.Context, id string, at time.Time) error
	// ApplyRefund records a refund transaction. The store enforces that a
	// refund transaction id is only ever set once.
	ApplyRefund(ctx context.Context, id string, amount int64, refundTransactionID, reason string, status model.PaymentStatus, at time.Time) error
	MarkRefundOutstanding(ctx context.Context, id, reason string, at time.Time) error
}

// VolunteerStore persists volunteer assignments.
type VolunteerStore interface {
	GetAssignment(ctx context.Context, id string) (*model.VolunteerAssignment, error)
	// ClaimTicketGrant atomically flips HasTicket false → true on a
	// fulfilled, background-checked assignment. Returns ErrNotEligible
	// when the assignment no longer qualifies.
	ClaimTicketGrant(ctx context.Context, id string, at time.Time) error
	// ReleaseTicketGrant undoes a claim after a downstream failure.
	ReleaseTicketGrant(ctx context.Context, id string, at time.Time) error
}

// ChargeResult is the gateway's answer to a charge.
type ChargeResult struct {
	TransactionID string
	Succeeded     bool
}

// RefundResult is the gateway's answer to a refund.
type RefundResult struct {
	RefundTransactionID string
	Succeeded           bool
}

// PaymentGateway charges and refunds payment methods. Calls may block for
// a network round trip; the engine never holds a reservation lock across
// them.
type PaymentGateway interface {
	Charge(ctx context.Context, amount int64, currency, methodRef, idempotencyKey string) (ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount int64) (RefundResult, error)
}

// NotificationKind selects an outbound message template.
type NotificationKind string

const (
	NotifyConfirmation NotificationKind = "confirmation"
	NotifyCancellation NotificationKind = "cancellation"
)

// Notifier sends confirmation/cancellation messages. Fire-and-forget:
// implementations log failures and never return them.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind NotificationKind, payload map[string]any)
}

// Service orchestrates the attendance engine over its collaborators.
type Service struct {
	events     EventStore
	attendance AttendanceStore
	payments   PaymentStore
	volunteers VolunteerStore
	ledger     CapacityLedger
	gateway    PaymentGateway
	notifier   Notifier
	clock      Clock
	log        *slog.Logger
}

// New constructs a Service with its dependencies. A nil clock defaults to
// the system clock; a nil logger discards nothing but uses slog's default.
func New(
	events EventStore,
	attendance AttendanceStore,
	payments PaymentStore,
	volunteers VolunteerStore,
	ledger CapacityLedger,
	gateway PaymentGateway,
	notifier Notifier,
	clock Clock,
	log *slog.Logger,
) *Service {
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		events:     events,
		attendance: attendance,
		payments:   payments,
		volunteers: volunteers,
		ledger:     ledger,
		gateway:    gateway,
		notifier:   notifier,
		clock:      clock,
		log:        log,
	}
}

// GetCapacity returns the live seat accounting for an event.
func (s *Service) GetCapacity(ctx context.Context, eventID string) (model.CapacityInfo, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return model.CapacityInfo{}, err
	}
	return model.CapacityInfo{
		Capacity:  event.Capacity,
		Current:   event.CurrentAttendees,
		Available: event.Remaining(),
	}, nil
}

// notify delivers a message without ever surfacing a failure to the caller.
func (s *Service) notify(ctx context.Context, userID string, kind NotificationKind, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, kind, payload)
}
