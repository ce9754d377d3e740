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

// VolunteerRepository persists volunteer assignments.
type VolunteerRepository struct {
	db *pgxpool.Pool
}

// NewVolunteerRepository constructs a VolunteerRepository.
func NewVolunteerRepository(db *pgxpool.Pool) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

const assignmentColumns = `id, task_id, event_id, user_id, status,
	has_ticket, ticket_price, background_check_verified, created_at, updated_at`

// GetAssignment returns a single assignment or service.ErrNotFound.
func (r *VolunteerRepository) GetAssignment(ctx context.Context, id string) (*model.VolunteerAssignment, error) {
	var a model.VolunteerAssignment
	err := r.db.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM volunteer_assignments WHERE id = $1`,
		id,
	).Scan(
		&a.ID, &a.TaskID, &a.EventID, &a.UserID, &a.Status,
		&a.HasTicket, &a.TicketPrice, &a.BackgroundCheckVerified, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("get volunteer assignment: %w", err)
	}
	return &a, nil
}

// ClaimTicketGrant flips has_ticket false → true in one conditional
// UPDATE, which is the only guard against two concurrent grants for the
// same assignment.
func (r *VolunteerRepository) ClaimTicketGrant(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE volunteer_assignments
		 SET has_ticket = TRUE, updated_at = $2
		 WHERE id = $1
		   AND status = 'fulfilled'
		   AND background_check_verified
		   AND NOT has_ticket`,
		id, at)
	if err != nil {
		return fmt.Errorf("claim ticket grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotEligible
	}
	return nil
}

// ReleaseTicketGrant undoes a claim after a downstream failure.
func (r *VolunteerRepository) ReleaseTicketGrant(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE volunteer_assignments
		 SET has_ticket = FALSE, updated_at = $2
		 WHERE id = $1 AND has_ticket`,
		id, at)
	if err != nil {
		return fmt.Errorf("release ticket grant: %w", err)
	}
	return nil
}
