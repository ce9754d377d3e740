package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverhall/attendance/internal/model"
	"github.com/riverhall/attendance/internal/service"
)

// PaymentRepository persists payments. The refund invariants (refund never
// exceeds the charge, refund transaction id set only once) are encoded in
// the UPDATE predicates.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, ticket_id, amount, currency, status, transaction_id,
	refund_amount, refund_transaction_id, refund_reason, refund_outstanding,
	created_at, updated_at`

// CreatePayment inserts a pending payment for a ticket.
func (r *PaymentRepository) CreatePayment(ctx context.Context, p *model.Payment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.TicketID, p.Amount, p.Currency, p.Status, p.TransactionID,
		p.RefundAmount, p.RefundTransactionID, p.RefundReason, p.RefundOutstanding,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetPaymentByTicket resolves a ticket's payment by lookup; the reference
// is one-way, Payment → Ticket.
func (r *PaymentRepository) GetPaymentByTicket(ctx context.Context, ticketID string) (*model.Payment, error) {
	var p model.Payment
	err := r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE ticket_id = $1`,
		ticketID,
	).Scan(
		&p.ID, &p.TicketID, &p.Amount, &p.Currency, &p.Status, &p.TransactionID,
		&p.RefundAmount, &p.RefundTransactionID, &p.RefundReason, &p.RefundOutstanding,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

// MarkCompleted records the gateway transaction for a pending payment.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, id, transactionID string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments
		 SET status = 'completed', transaction_id = $2, updated_at = $3
		 WHERE id = $1 AND status = 'pending'`,
		id, transactionID, at)
	if err != nil {
		return fmt.Errorf("mark payment completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrStaleRecord
	}
	return nil
}

// MarkFailed records a declined or errored charge.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments
		 SET status = 'failed', updated_at = $2
		 WHERE id = $1 AND status = 'pending'`,
		id, at)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrStaleRecord
	}
	return nil
}

// ApplyRefund records a successful refund. The predicates enforce that a
// refund transaction id is set only once and the refund total never
// exceeds the charge.
func (r *PaymentRepository) ApplyRefund(ctx context.Context, id string, amount int64, refundTransactionID, reason string, status model.PaymentStatus, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments
		 SET refund_amount = refund_amount + $2,
		     refund_transaction_id = $3,
		     refund_reason = $4,
		     refund_outstanding = FALSE,
		     status = $5,
		     updated_at = $6
		 WHERE id = $1
		   AND refund_transaction_id = ''
		   AND refund_amount + $2 <= amount`,
		id, amount, refundTransactionID, reason, status, at)
	if err != nil {
		return fmt.Errorf("apply refund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrStaleRecord
	}
	return nil
}

// MarkRefundOutstanding flags a refund the gateway failed to process for
// manual reconciliation. The payment's status is left untouched.
func (r *PaymentRepository) MarkRefundOutstanding(ctx context.Context, id, reason string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE payments
		 SET refund_outstanding = TRUE, refund_reason = $2, updated_at = $3
		 WHERE id = $1`,
		id, reason, at)
	if err != nil {
		return fmt.Errorf("mark refund outstanding: %w", err)
	}
	return nil
}
