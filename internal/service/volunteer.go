package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverhall/attendance/internal/model"
)

// GrantVolunteerTicket converts a fulfilled, background-checked volunteer
// assignment into a Ticket at the assignment's TicketPrice (commonly
// zero). No gateway charge is made; the ticket is compensation for the
// completed shift.
//
// Whether the grant consumes capacity is the event's choice: under the
// exempt policy no counter is touched, under the sub-quota policy the
// grant reserves against the dedicated volunteer pool.
func (s *Service) GrantVolunteerTicket(ctx context.Context, assignmentID string) (*model.AttendanceRecord, error) {
	if assignmentID == "" {
		return nil, fmt.Errorf("%w: assignment id is required", ErrValidation)
	}

	assignment, err := s.volunteers.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !assignment.Eligible() {
		return nil, ErrNotEligible
	}

	event, err := s.events.GetEvent(ctx, assignment.EventID)
	if err != nil {
		return nil, err
	}

	// The atomic flag flip is the only guard against concurrent double
	// grants for the same assignment.
	if err := s.volunteers.ClaimTicketGrant(ctx, assignmentID, s.clock.Now()); err != nil {
		return nil, err
	}

	pool := model.PoolNone
	if event.VolunteerPolicy == model.VolunteerSubQuota {
		pool = model.PoolVolunteer
		if err := s.ledger.TryReserve(ctx, event.ID, pool); err != nil {
			s.unclaimGrant(ctx, assignmentID)
			return nil, err
		}
	}

	now := s.clock.Now()
	record := &model.AttendanceRecord{
		ID:          uuid.New().String(),
		EventID:     event.ID,
		UserID:      assignment.UserID,
		Kind:        model.KindTicket,
		Status:      model.StatusReserved,
		Pool:        pool,
		TicketType:  model.TicketIndividual,
		PriceAmount: assignment.TicketPrice,
		Currency:    event.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.createWithCode(ctx, record); err != nil {
		s.release(ctx, event.ID, pool)
		s.unclaimGrant(ctx, assignmentID)
		if errors.Is(err, ErrDuplicateAttendance) {
			return nil, ErrDuplicateAttendance
		}
		return nil, err
	}

	if err := s.attendance.ConfirmRecord(ctx, record.ID, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("confirm volunteer ticket: %w", err)
	}
	record.Status = model.StatusConfirmed

	s.notify(ctx, record.UserID, NotifyConfirmation, map[string]any{
		"event_id":          event.ID,
		"confirmation_code": record.ConfirmationCode,
		"volunteer_grant":   true,
	})
	return record, nil
}

func (s *Service) unclaimGrant(ctx context.Context, assignmentID string) {
	if err := s.volunteers.ReleaseTicketGrant(ctx, assignmentID, s.clock.Now()); err != nil {
		s.log.Error("release volunteer grant claim", "assignment_id", assignmentID, "error", err)
	}
}
