package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/riverhall/attendance/internal/model"
)

const maxCapacity = 100_000

// CreateEvent validates the organizer's configuration and persists the
// event. Configuration-time invariants are enforced here so that request
// time can trust them.
func (s *Service) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrValidation)
	}
	if req.Capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
	}
	if req.Capacity > maxCapacity {
		return nil, fmt.Errorf("%w: capacity cannot exceed %d", ErrValidation, maxCapacity)
	}
	if req.StartAt.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", ErrValidation)
	}
	if !req.EndAt.IsZero() && !req.EndAt.After(req.StartAt) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrValidation)
	}
	if req.RefundCutoffHours < 0 {
		return nil, fmt.Errorf("%w: refund cutoff cannot be negative", ErrValidation)
	}
	if req.RegistrationOpensAt != nil && req.RegistrationClosesAt != nil &&
		!req.RegistrationOpensAt.Before(*req.RegistrationClosesAt) {
		return nil, fmt.Errorf("%w: registration window must open before it closes", ErrValidation)
	}
	if req.RegistrationClosesAt != nil && !req.RegistrationClosesAt.Before(req.StartAt) {
		return nil, fmt.Errorf("%w: registration must close before the event starts", ErrValidation)
	}

	if err := validatePricing(req); err != nil {
		return nil, err
	}

	switch req.VolunteerPolicy {
	case "", model.VolunteerExempt:
		req.VolunteerPolicy = model.VolunteerExempt
	case model.VolunteerSubQuota:
		if req.VolunteerQuota < 1 {
			return nil, fmt.Errorf("%w: volunteer sub-quota must be at least 1", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown volunteer policy %q", ErrValidation, req.VolunteerPolicy)
	}

	now := s.clock.Now()
	event := &model.Event{
		ID:                   uuid.New().String(),
		Name:                 req.Name,
		Description:          req.Description,
		StartAt:              req.StartAt,
		EndAt:                req.EndAt,
		Capacity:             req.Capacity,
		RegistrationOpensAt:  req.RegistrationOpensAt,
		RegistrationClosesAt: req.RegistrationClosesAt,
		RefundCutoffHours:    req.RefundCutoffHours,
		PricingMode:          req.PricingMode,
		Currency:             req.Currency,
		PriceIndividual:      req.PriceIndividual,
		PriceCouples:         req.PriceCouples,
		SlidingMin:           req.SlidingMin,
		SlidingSuggested:     req.SlidingSuggested,
		SlidingMax:           req.SlidingMax,
		VolunteerPolicy:      req.VolunteerPolicy,
		VolunteerQuota:       req.VolunteerQuota,
		Published:            req.Published,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func validatePricing(req model.CreateEventRequest) error {
	switch req.PricingMode {
	case model.PricingFree:
		return nil
	case model.PricingFixed:
		if req.Currency == "" {
			return fmt.Errorf("%w: currency is required for paid events", ErrValidation)
		}
		if req.PriceIndividual <= 0 {
			return fmt.Errorf("%w: fixed pricing requires a positive individual price", ErrValidation)
		}
		if req.PriceCouples != nil && *req.PriceCouples <= 0 {
			return fmt.Errorf("%w: couples price must be positive when offered", ErrValidation)
		}
		return nil
	case model.PricingSlidingScale:
		if req.Currency == "" {
			return fmt.Errorf("%w: currency is required for paid events", ErrValidation)
		}
		if req.SlidingMin <= 0 || req.SlidingSuggested <= 0 || req.SlidingMax <= 0 {
			return fmt.Errorf("%w: sliding scale prices must be positive", ErrValidation)
		}
		if req.SlidingMin > req.SlidingSuggested || req.SlidingSuggested > req.SlidingMax {
			return fmt.Errorf("%w: sliding scale requires min <= suggested <= max", ErrValidation)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown pricing mode %q", ErrValidation, req.PricingMode)
	}
}

// GetEvent returns a single event by id.
func (s *Service) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: event id is required", ErrValidation)
	}
	return s.events.GetEvent(ctx, id)
}

// ListEvents returns all events.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.ListEvents(ctx)
}

// ListAttendance returns all attendance records for an event, for
// organizer dashboards.
func (s *Service) ListAttendance(ctx context.Context, eventID string) ([]model.AttendanceRecord, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.attendance.ListByEvent(ctx, eventID)
}
