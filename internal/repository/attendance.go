package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverhall/attendance/internal/model"
	"github.com/riverhall/attendance/internal/service"
)

// AttendanceRepository persists attendance records. Every status change is
// a conditional UPDATE keyed on the expected prior status; zero rows
// affected surfaces as service.ErrStaleRecord so the engine can serialize
// racing operations on the same record.
type AttendanceRepository struct {
	db *pgxpool.Pool
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const recordColumns = `id, event_id, user_id, kind, status, confirmation_code, pool,
	ticket_type, price_amount, currency,
	dietary_needs, accessibility_needs, emergency_contact,
	checked_in_at, checked_in_by, cancelled_at, cancellation_reason,
	created_at, updated_at`

// CreateRecord inserts a record, relying on the database's constraints to
// reject duplicate confirmation codes and duplicate active attendance.
func (r *AttendanceRepository) CreateRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO attendance_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		         $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		rec.ID, rec.EventID, rec.UserID, rec.Kind, rec.Status, rec.ConfirmationCode, rec.Pool,
		rec.TicketType, rec.PriceAmount, rec.Currency,
		rec.DietaryNeeds, rec.AccessibilityNeeds, rec.EmergencyContact,
		rec.CheckedInAt, rec.CheckedInBy, rec.CancelledAt, rec.CancellationReason,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case codeConstraint:
				return service.ErrCodeConflict
			case activeDupConstraint:
				return service.ErrDuplicateAttendance
			}
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := row.Scan(
		&rec.ID, &rec.EventID, &rec.UserID, &rec.Kind, &rec.Status, &rec.ConfirmationCode, &rec.Pool,
		&rec.TicketType, &rec.PriceAmount, &rec.Currency,
		&rec.DietaryNeeds, &rec.AccessibilityNeeds, &rec.EmergencyContact,
		&rec.CheckedInAt, &rec.CheckedInBy, &rec.CancelledAt, &rec.CancellationReason,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan attendance record: %w", err)
	}
	return &rec, nil
}

// GetRecord returns a single record or service.ErrNotFound.
func (r *AttendanceRepository) GetRecord(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	return scanRecord(r.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id))
}

// ListByEvent returns all records for an event, oldest first.
func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]model.AttendanceRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM attendance_records
		 WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	var records []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// HasActive reports whether the user holds a non-cancelled record for the
// event.
func (r *AttendanceRepository) HasActive(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM attendance_records
		   WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'
		 )`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active attendance: %w", err)
	}
	return exists, nil
}

// ConfirmRecord moves Reserved → Confirmed.
func (r *AttendanceRepository) ConfirmRecord(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE attendance_records
		 SET status = 'confirmed', updated_at = $2
		 WHERE id = $1 AND status = 'reserved'`,
		id, at)
	if err != nil {
		return fmt.Errorf("confirm record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrStaleRecord
	}
	return nil
}

// CancelRecord moves Reserved or Confirmed → Cancelled and returns the
// prior status.
func (r *AttendanceRepository) CancelRecord(ctx context.Context, id string, at time.Time, reason string) (model.AttendanceStatus, error) {
	var prior model.AttendanceStatus
	err := r.db.QueryRow(ctx,
		`UPDATE attendance_records a
		 SET status = 'cancelled', cancelled_at = $2, cancellation_reason = $3, updated_at = $2
		 FROM (SELECT id, status AS prior FROM attendance_records WHERE id = $1 FOR UPDATE) p
		 WHERE a.id = p.id AND p.prior IN ('reserved', 'confirmed')
		 RETURNING p.prior`,
		id, at, reason,
	).Scan(&prior)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", service.ErrStaleRecord
		}
		return "", fmt.Errorf("cancel record: %w", err)
	}
	return prior, nil
}

// CheckInRecord moves Confirmed → CheckedIn.
func (r *AttendanceRepository) CheckInRecord(ctx context.Context, id string, at time.Time, checkerID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE attendance_records
		 SET status = 'checked_in', checked_in_at = $2, checked_in_by = $3, updated_at = $2
		 WHERE id = $1 AND status = 'confirmed'`,
		id, at, checkerID)
	if err != nil {
		return fmt.Errorf("check in record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrStaleRecord
	}
	return nil
}
