// Package memory provides an in-memory implementation of the engine's
// store interfaces. It backs tests and local development; the Postgres
// implementation in internal/repository is the production store.
//
// A single mutex serializes all mutations, which gives the same atomicity
// the Postgres store gets from conditional UPDATEs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riverhall/attendance/internal/model"
	"github.com/riverhall/attendance/internal/service"
)

// Store holds all engine entities in maps guarded by one mutex.
type Store struct {
	mu          sync.Mutex
	events      map[string]*model.Event
	records     map[string]*model.AttendanceRecord
	codes       map[string]string // confirmation code -> record id
	payments    map[string]*model.Payment
	byTicket    map[string]string // ticket id -> payment id
	assignments map[string]*model.VolunteerAssignment
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events:      make(map[string]*model.Event),
		records:     make(map[string]*model.AttendanceRecord),
		codes:       make(map[string]string),
		payments:    make(map[string]*model.Payment),
		byTicket:    make(map[string]string),
		assignments: make(map[string]*model.VolunteerAssignment),
	}
}

// ─── EventStore ──────────────────────────────────────────────────────────────

func (s *Store) CreateEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("event %s already exists", event.ID)
	}
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	cp := *event
	return &cp, nil
}

func (s *Store) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Event, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, *event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SetCapacity adjusts an event's capacity in place, mirroring an organizer
// override. New reservations see the new limit immediately.
func (s *Store) SetCapacity(_ context.Context, id string, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return service.ErrNotFound
	}
	event.Capacity = capacity
	return nil
}

// ─── CapacityLedger ──────────────────────────────────────────────────────────

// TryReserve increments the pool's counter if it is below its limit, in
// one critical section. Never read-then-write across the lock boundary.
func (s *Store) TryReserve(_ context.Context, eventID string, pool model.CapacityPool) error {
	if pool == model.PoolNone {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return service.ErrNotFound
	}
	switch pool {
	case model.PoolGeneral:
		if event.IsFull() {
			return service.ErrCapacityExceeded
		}
		event.CurrentAttendees++
	case model.PoolVolunteer:
		if event.VolunteerAttendees >= event.VolunteerQuota {
			return service.ErrCapacityExceeded
		}
		event.VolunteerAttendees++
	}
	return nil
}

func (s *Store) Release(_ context.Context, eventID string, pool model.CapacityPool) error {
	if pool == model.PoolNone {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return service.ErrNotFound
	}
	switch pool {
	case model.PoolGeneral:
		if event.CurrentAttendees > 0 {
			event.CurrentAttendees--
		}
	case model.PoolVolunteer:
		if event.VolunteerAttendees > 0 {
			event.VolunteerAttendees--
		}
	}
	return nil
}

// ─── AttendanceStore ─────────────────────────────────────────────────────────

func (s *Store) CreateRecord(_ context.Context, record *model.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[record.ConfirmationCode]; ok {
		return service.ErrCodeConflict
	}
	for _, existing := range s.records {
		if existing.EventID == record.EventID && existing.UserID == record.UserID &&
			existing.Status.Active() {
			return service.ErrDuplicateAttendance
		}
	}
	cp := *record
	s.records[record.ID] = &cp
	s.codes[record.ConfirmationCode] = record.ID
	return nil
}

func (s *Store) GetRecord(_ context.Context, id string) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *Store) ListByEvent(_ context.Context, eventID string) ([]model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AttendanceRecord
	for _, record := range s.records {
		if record.EventID == eventID {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) HasActive(_ context.Context, eventID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.EventID == eventID && record.UserID == userID && record.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ConfirmRecord(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return service.ErrNotFound
	}
	if record.Status != model.StatusReserved {
		return service.ErrStaleRecord
	}
	record.Status = model.StatusConfirmed
	record.UpdatedAt = at
	return nil
}

func (s *Store) CancelRecord(_ context.Context, id string, at time.Time, reason string) (model.AttendanceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return "", service.ErrNotFound
	}
	if record.Status != model.StatusReserved && record.Status != model.StatusConfirmed {
		return "", service.ErrStaleRecord
	}
	prior := record.Status
	record.Status = model.StatusCancelled
	cancelled := at
	record.CancelledAt = &cancelled
	record.CancellationReason = reason
	record.UpdatedAt = at
	return prior, nil
}

func (s *Store) CheckInRecord(_ context.Context, id string, at time.Time, checkerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return service.ErrNotFound
	}
	if record.Status != model.StatusConfirmed {
		return service.ErrStaleRecord
	}
	record.Status = model.StatusCheckedIn
	checked := at
	record.CheckedInAt = &checked
	record.CheckedInBy = checkerID
	record.UpdatedAt = at
	return nil
}

// ─── PaymentStore ────────────────────────────────────────────────────────────

func (s *Store) CreatePayment(_ context.Context, payment *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTicket[payment.TicketID]; ok {
		return fmt.Errorf("payment for ticket %s already exists", payment.TicketID)
	}
	cp := *payment
	s.payments[payment.ID] = &cp
	s.byTicket[payment.TicketID] = payment.ID
	return nil
}

func (s *Store) GetPaymentByTicket(_ context.Context, ticketID string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byTicket[ticketID]
	if !ok {
		return nil, service.ErrNotFound
	}
	cp := *s.payments[id]
	return &cp, nil
}

func (s *Store) MarkCompleted(_ context.Context, id, transactionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[id]
	if !ok {
		return service.ErrNotFound
	}
	payment.Status = model.PaymentCompleted
	payment.TransactionID = transactionID
	payment.UpdatedAt = at
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[id]
	if !ok {
		return service.ErrNotFound
	}
	payment.Status = model.PaymentFailed
	payment.UpdatedAt = at
	return nil
}

func (s *Store) ApplyRefund(_ context.Context, id string, amount int64, refundTransactionID, reason string, status model.PaymentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[id]
	if !ok {
		return service.ErrNotFound
	}
	if payment.RefundTransactionID != "" {
		return fmt.Errorf("refund transaction already recorded for payment %s", id)
	}
	if payment.RefundAmount+amount > payment.Amount {
		return fmt.Errorf("refund %d exceeds remaining charge on payment %s", amount, id)
	}
	payment.RefundAmount += amount
	payment.RefundTransactionID = refundTransactionID
	payment.RefundReason = reason
	payment.Status = status
	payment.RefundOutstanding = false
	payment.UpdatedAt = at
	return nil
}

func (s *Store) MarkRefundOutstanding(_ context.Context, id, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[id]
	if !ok {
		return service.ErrNotFound
	}
	payment.RefundOutstanding = true
	payment.RefundReason = reason
	payment.UpdatedAt = at
	return nil
}

// ─── VolunteerStore ──────────────────────────────────────────────────────────

// PutAssignment seeds a volunteer assignment (test and dev setup).
func (s *Store) PutAssignment(_ context.Context, assignment *model.VolunteerAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *assignment
	s.assignments[assignment.ID] = &cp
	return nil
}

func (s *Store) GetAssignment(_ context.Context, id string) (*model.VolunteerAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	cp := *assignment
	return &cp, nil
}

func (s *Store) ClaimTicketGrant(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return service.ErrNotFound
	}
	if !assignment.Eligible() {
		return service.ErrNotEligible
	}
	assignment.HasTicket = true
	assignment.UpdatedAt = at
	return nil
}

func (s *Store) ReleaseTicketGrant(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return service.ErrNotFound
	}
	assignment.HasTicket = false
	assignment.UpdatedAt = at
	return nil
}
