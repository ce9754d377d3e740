package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverhall/attendance/internal/model"
)

// chargeKeyNamespace seeds idempotency keys so a retried charge for the
// same ticket always derives the same key and never double-charges.
var chargeKeyNamespace = uuid.MustParse("6f8cf1f2-6f04-4b23-9a2b-6f2df0c5b7ba")

func chargeIdempotencyKey(ticketID string) string {
	return uuid.NewSHA1(chargeKeyNamespace, []byte(ticketID)).String()
}

// RegisterForEvent turns an attendance request into a durable reservation:
// pricing and window validation, duplicate check, atomic seat reservation,
// record creation, and (for paid tickets) the gateway charge.
//
// Capacity and duplicate rejections happen before any record exists, so a
// failed registration leaves no partial state. A failed charge rolls the
// reservation back: the record is cancelled and the seat released.
func (s *Service) RegisterForEvent(ctx context.Context, eventID string, req model.RegisterRequest) (*model.AttendanceRecord, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Published {
		return nil, fmt.Errorf("%w: event is not open for registration", ErrValidation)
	}

	price, err := resolvePrice(event, req, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if price.Kind == model.KindTicket && req.PaymentMethodRef == "" {
		return nil, fmt.Errorf("%w: payment method is required for paid events", ErrValidation)
	}

	// Cheap pre-check for the common case; the insert's uniqueness
	// constraint is the authoritative guard under races.
	active, err := s.attendance.HasActive(ctx, eventID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("check existing attendance: %w", err)
	}
	if active {
		return nil, ErrDuplicateAttendance
	}

	if err := s.ledger.TryReserve(ctx, eventID, model.PoolGeneral); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &model.AttendanceRecord{
		ID:                 uuid.New().String(),
		EventID:            eventID,
		UserID:             req.UserID,
		Kind:               price.Kind,
		Status:             model.StatusReserved,
		Pool:               model.PoolGeneral,
		TicketType:         price.TicketType,
		PriceAmount:        price.Amount,
		Currency:           price.Currency,
		DietaryNeeds:       req.DietaryNeeds,
		AccessibilityNeeds: req.AccessibilityNeeds,
		EmergencyContact:   req.EmergencyContact,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.createWithCode(ctx, record); err != nil {
		// The seat was reserved but no record exists; hand it back.
		s.release(ctx, eventID, model.PoolGeneral)
		return nil, err
	}

	if price.Kind == model.KindRSVP {
		// Free path: no payment step, confirm immediately.
		if err := s.attendance.ConfirmRecord(ctx, record.ID, s.clock.Now()); err != nil {
			s.rollbackReservation(ctx, record, "confirmation failed")
			return nil, fmt.Errorf("confirm rsvp: %w", err)
		}
		record.Status = model.StatusConfirmed
		s.notify(ctx, record.UserID, NotifyConfirmation, map[string]any{
			"event_id":          eventID,
			"confirmation_code": record.ConfirmationCode,
		})
		return record, nil
	}

	if err := s.chargeTicket(ctx, event, record, req.PaymentMethodRef); err != nil {
		return nil, err
	}
	record.Status = model.StatusConfirmed
	s.notify(ctx, record.UserID, NotifyConfirmation, map[string]any{
		"event_id":          eventID,
		"confirmation_code": record.ConfirmationCode,
		"amount":            record.PriceAmount,
		"currency":          record.Currency,
	})
	return record, nil
}

// chargeTicket runs the paid path for a freshly reserved ticket. The
// reservation is already durable, so no lock is held across the gateway
// round trip.
func (s *Service) chargeTicket(ctx context.Context, event *model.Event, record *model.AttendanceRecord, methodRef string) error {
	now := s.clock.Now()
	payment := &model.Payment{
		ID:        uuid.New().String(),
		TicketID:  record.ID,
		Amount:    record.PriceAmount,
		Currency:  record.Currency,
		Status:    model.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		s.rollbackReservation(ctx, record, "payment setup failed")
		return fmt.Errorf("create payment: %w", err)
	}

	result, err := s.gateway.Charge(ctx, payment.Amount, payment.Currency, methodRef, chargeIdempotencyKey(record.ID))
	if err != nil || !result.Succeeded {
		if markErr := s.payments.MarkFailed(ctx, payment.ID, s.clock.Now()); markErr != nil {
			s.log.Error("mark payment failed", "payment_id", payment.ID, "error", markErr)
		}
		s.rollbackReservation(ctx, record, "payment failed")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		return ErrPaymentFailed
	}

	if err := s.payments.MarkCompleted(ctx, payment.ID, result.TransactionID, s.clock.Now()); err != nil {
		return fmt.Errorf("record completed payment: %w", err)
	}
	if err := s.attendance.ConfirmRecord(ctx, record.ID, s.clock.Now()); err != nil {
		if errors.Is(err, ErrStaleRecord) {
			// The record was cancelled while the charge was in flight.
			// That cancellation found the payment still Pending and
			// skipped the refund, so the captured money must go back
			// here; a failed refund is flagged for reconciliation.
			s.refundCapturedCharge(ctx, payment, result.TransactionID)
			return fmt.Errorf("%w: registration was cancelled while payment was in flight", ErrInvalidStateTransition)
		}
		return fmt.Errorf("confirm ticket: %w", err)
	}
	return nil
}

// refundCapturedCharge returns money captured for a record that was
// cancelled mid-charge. The charge has already completed, so this never
// changes the registration outcome; it only settles the payment.
func (s *Service) refundCapturedCharge(ctx context.Context, payment *model.Payment, transactionID string) {
	const reason = "cancelled during charge"
	refund, err := s.gateway.Refund(ctx, transactionID, payment.Amount)
	if err != nil || !refund.Succeeded {
		s.log.Warn("refund of mid-cancel charge failed, flagged for reconciliation",
			"payment_id", payment.ID, "amount", payment.Amount, "error", err)
		if markErr := s.payments.MarkRefundOutstanding(ctx, payment.ID, reason, s.clock.Now()); markErr != nil {
			s.log.Error("flag refund outstanding", "payment_id", payment.ID, "error", markErr)
		}
		return
	}
	if err := s.payments.ApplyRefund(ctx, payment.ID, payment.Amount, refund.RefundTransactionID, reason, model.PaymentRefunded, s.clock.Now()); err != nil {
		s.log.Error("record refund", "payment_id", payment.ID, "error", err)
	}
}

// rollbackReservation cancels a Reserved record and releases its seat.
func (s *Service) rollbackReservation(ctx context.Context, record *model.AttendanceRecord, reason string) {
	if _, err := s.attendance.CancelRecord(ctx, record.ID, s.clock.Now(), reason); err != nil {
		s.log.Error("cancel record during rollback", "record_id", record.ID, "error", err)
		return
	}
	record.Status = model.StatusCancelled
	s.release(ctx, record.EventID, record.Pool)
}

// release returns a seat to a pool, logging rather than propagating
// failures: the caller's operation has already been decided.
func (s *Service) release(ctx context.Context, eventID string, pool model.CapacityPool) {
	if pool == model.PoolNone {
		return
	}
	if err := s.ledger.Release(ctx, eventID, pool); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Error("release capacity", "event_id", eventID, "pool", pool, "error", err)
	}
}
