package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/riverhall/attendance/internal/model"
)

// CancelAttendance cancels a Reserved or Confirmed record, releases its
// seat, and — for paid tickets — attempts the refund the cutoff policy
// allows. The cancellation itself never fails because of the refund: a
// gateway failure flags the payment for manual reconciliation and an
// out-of-window request simply reports the refund as denied.
func (s *Service) CancelAttendance(ctx context.Context, recordID string, req model.CancelRequest) (model.CancelResult, error) {
	if recordID == "" {
		return model.CancelResult{}, fmt.Errorf("%w: record id is required", ErrValidation)
	}
	if req.ActingUserID == "" {
		return model.CancelResult{}, fmt.Errorf("%w: acting user id is required", ErrValidation)
	}

	record, err := s.attendance.GetRecord(ctx, recordID)
	if err != nil {
		return model.CancelResult{}, err
	}

	reason := req.Reason
	if reason == "" {
		reason = "cancelled by " + req.ActingUserID
	}

	// The conditional transition is the serialization point: a check-in
	// racing this cancellation loses on whichever side commits second.
	if _, err := s.attendance.CancelRecord(ctx, recordID, s.clock.Now(), reason); err != nil {
		if errors.Is(err, ErrStaleRecord) {
			// Re-read so the error names the status that actually blocked
			// the cancellation, not a stale snapshot.
			if current, readErr := s.attendance.GetRecord(ctx, recordID); readErr == nil {
				record = current
			}
			return model.CancelResult{}, fmt.Errorf("%w: record is %s", ErrInvalidStateTransition, record.Status)
		}
		return model.CancelResult{}, fmt.Errorf("cancel record: %w", err)
	}

	s.release(ctx, record.EventID, record.Pool)

	result := model.CancelResult{RecordID: recordID}
	if record.Kind == model.KindTicket && record.PriceAmount > 0 {
		result = s.refundTicket(ctx, record, req, result)
	}

	s.notify(ctx, record.UserID, NotifyCancellation, map[string]any{
		"event_id":  record.EventID,
		"record_id": recordID,
	})
	return result, nil
}

// refundTicket computes and attempts the refund for a cancelled ticket.
func (s *Service) refundTicket(ctx context.Context, record *model.AttendanceRecord, req model.CancelRequest, result model.CancelResult) model.CancelResult {
	payment, err := s.payments.GetPaymentByTicket(ctx, record.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("load payment for refund", "record_id", record.ID, "error", err)
		}
		return result
	}
	if payment.Status != model.PaymentCompleted && payment.Status != model.PaymentPartiallyRefunded {
		return result
	}
	refundable := payment.Refundable()
	if refundable <= 0 {
		return result
	}

	event, err := s.events.GetEvent(ctx, record.EventID)
	if err != nil {
		s.log.Error("load event for refund cutoff", "event_id", record.EventID, "error", err)
		return result
	}

	now := s.clock.Now()
	reason := "cancellation refund"
	if now.After(event.RefundDeadline()) {
		if !req.AdminOverride {
			s.log.Info("refund denied by cutoff",
				"record_id", record.ID, "deadline", event.RefundDeadline())
			result.RefundDenied = true
			return result
		}
		reason = "admin override past refund cutoff"
	}

	amount := refundable
	if req.RefundAmount != nil {
		amount = *req.RefundAmount
	}
	if amount <= 0 || amount > refundable {
		s.log.Warn("refund amount out of range, skipping refund",
			"record_id", record.ID, "requested", amount, "refundable", refundable)
		result.RefundDenied = true
		return result
	}

	refund, err := s.gateway.Refund(ctx, payment.TransactionID, amount)
	if err != nil || !refund.Succeeded {
		// The cancellation stands; the refund is owed and tracked.
		s.log.Warn("refund failed, flagged for reconciliation",
			"payment_id", payment.ID, "amount", amount, "error", err)
		if markErr := s.payments.MarkRefundOutstanding(ctx, payment.ID, reason, s.clock.Now()); markErr != nil {
			s.log.Error("flag refund outstanding", "payment_id", payment.ID, "error", markErr)
		}
		result.RefundOutstanding = true
		result.RefundAmount = amount
		return result
	}

	status := model.PaymentPartiallyRefunded
	if payment.RefundAmount+amount == payment.Amount {
		status = model.PaymentRefunded
	}
	if err := s.payments.ApplyRefund(ctx, payment.ID, amount, refund.RefundTransactionID, reason, status, s.clock.Now()); err != nil {
		s.log.Error("record refund", "payment_id", payment.ID, "error", err)
	}
	result.RefundIssued = true
	result.RefundAmount = amount
	return result
}
