// Package repository implements the engine's store interfaces on
// PostgreSQL. It uses pgx directly (no ORM): the engine's correctness
// rests on specific conditional UPDATE statements, so the SQL stays
// visible.
//
// Expected tables: events, attendance_records (with a unique constraint on
// confirmation_code and a partial unique index on (event_id, user_id)
// WHERE status <> 'cancelled'), payments, volunteer_assignments.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverhall/attendance/internal/model"
	"github.com/riverhall/attendance/internal/service"
)

const uniqueViolation = "23505"

// constraint names the engine distinguishes on insert.
const (
	codeConstraint      = "attendance_records_confirmation_code_key"
	activeDupConstraint = "attendance_records_active_user_event_idx"
)

// EventRepository persists events and owns the capacity counters.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, name, description, start_at, end_at,
	capacity, current_attendees,
	registration_opens_at, registration_closes_at, refund_cutoff_hours,
	pricing_mode, currency, price_individual, price_couples,
	sliding_min, sliding_suggested, sliding_max,
	volunteer_policy, volunteer_quota, volunteer_attendees,
	published, created_at, updated_at`

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		         $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		e.ID, e.Name, e.Description, e.StartAt, e.EndAt,
		e.Capacity, e.CurrentAttendees,
		e.RegistrationOpensAt, e.RegistrationClosesAt, e.RefundCutoffHours,
		e.PricingMode, e.Currency, e.PriceIndividual, e.PriceCouples,
		e.SlidingMin, e.SlidingSuggested, e.SlidingMax,
		e.VolunteerPolicy, e.VolunteerQuota, e.VolunteerAttendees,
		e.Published, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.StartAt, &e.EndAt,
		&e.Capacity, &e.CurrentAttendees,
		&e.RegistrationOpensAt, &e.RegistrationClosesAt, &e.RefundCutoffHours,
		&e.PricingMode, &e.Currency, &e.PriceIndividual, &e.PriceCouples,
		&e.SlidingMin, &e.SlidingSuggested, &e.SlidingMax,
		&e.VolunteerPolicy, &e.VolunteerQuota, &e.VolunteerAttendees,
		&e.Published, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}

// GetEvent returns a single event or service.ErrNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// ListEvents returns all events ordered by creation time descending.
func (r *EventRepository) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// TryReserve claims one seat in the given pool with a single conditional
// UPDATE. The predicate reads the live columns, so no separate read
// precedes the write and a capacity raise takes effect immediately.
//
// Two concurrent reservations for the last seat serialize on the row
// lock the UPDATE takes; the loser re-evaluates the predicate against the
// winner's committed counter and matches zero rows.
func (r *EventRepository) TryReserve(ctx context.Context, eventID string, pool model.CapacityPool) error {
	if pool == model.PoolNone {
		return nil
	}
	var tag pgconn.CommandTag
	var err error
	switch pool {
	case model.PoolGeneral:
		tag, err = r.db.Exec(ctx,
			`UPDATE events
			 SET current_attendees = current_attendees + 1, updated_at = now()
			 WHERE id = $1 AND current_attendees < capacity`,
			eventID)
	case model.PoolVolunteer:
		tag, err = r.db.Exec(ctx,
			`UPDATE events
			 SET volunteer_attendees = volunteer_attendees + 1, updated_at = now()
			 WHERE id = $1 AND volunteer_attendees < volunteer_quota`,
			eventID)
	default:
		return fmt.Errorf("unknown capacity pool %q", pool)
	}
	if err != nil {
		return fmt.Errorf("reserve seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Full, or no such event; tell them apart for the caller.
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check event exists: %w", err)
		}
		if !exists {
			return service.ErrNotFound
		}
		return service.ErrCapacityExceeded
	}
	return nil
}

// Release returns one seat to the given pool. The floor guard keeps a
// stray double release from driving the counter negative.
func (r *EventRepository) Release(ctx context.Context, eventID string, pool model.CapacityPool) error {
	if pool == model.PoolNone {
		return nil
	}
	var err error
	switch pool {
	case model.PoolGeneral:
		_, err = r.db.Exec(ctx,
			`UPDATE events
			 SET current_attendees = current_attendees - 1, updated_at = now()
			 WHERE id = $1 AND current_attendees > 0`,
			eventID)
	case model.PoolVolunteer:
		_, err = r.db.Exec(ctx,
			`UPDATE events
			 SET volunteer_attendees = volunteer_attendees - 1, updated_at = now()
			 WHERE id = $1 AND volunteer_attendees > 0`,
			eventID)
	default:
		return fmt.Errorf("unknown capacity pool %q", pool)
	}
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}
