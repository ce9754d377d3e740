package model

import "time"

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentCompleted         PaymentStatus = "completed"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Payment records a charge against a Ticket. The reference is one-way
// (Payment → Ticket); the engine finds a ticket's payment by lookup.
//
// Invariants: RefundAmount never exceeds Amount; RefundTransactionID is set
// at most once.
type Payment struct {
	ID       string `json:"id"`
	TicketID string `json:"ticket_id"`

	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`

	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`

	RefundAmount        int64  `json:"refund_amount,omitempty"`
	RefundTransactionID string `json:"refund_transaction_id,omitempty"`
	RefundReason        string `json:"refund_reason,omitempty"`

	// RefundOutstanding marks a refund the gateway failed to process;
	// picked up by manual reconciliation.
	RefundOutstanding bool `json:"refund_outstanding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Refundable returns how much of the charge has not yet been refunded.
func (p *Payment) Refundable() int64 {
	return p.Amount - p.RefundAmount
}
