package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/riverhall/attendance/internal/model"
)

// CheckIn records attendance at the door, exactly once. Repeated scans of
// the same code return the original check-in rather than erroring, so a
// flaky scanner is harmless. Records that are Cancelled or still Reserved
// (payment incomplete) cannot check in.
func (s *Service) CheckIn(ctx context.Context, recordID, checkerUserID string) (model.CheckInResult, error) {
	if recordID == "" {
		return model.CheckInResult{}, fmt.Errorf("%w: record id is required", ErrValidation)
	}
	if checkerUserID == "" {
		return model.CheckInResult{}, fmt.Errorf("%w: checker user id is required", ErrValidation)
	}

	now := s.clock.Now()
	err := s.attendance.CheckInRecord(ctx, recordID, now, checkerUserID)
	if err == nil {
		return model.CheckInResult{
			RecordID:    recordID,
			CheckedInAt: now,
			CheckedInBy: checkerUserID,
		}, nil
	}
	if !errors.Is(err, ErrStaleRecord) {
		return model.CheckInResult{}, fmt.Errorf("check in record: %w", err)
	}

	// The conditional update matched nothing; decide why.
	record, err := s.attendance.GetRecord(ctx, recordID)
	if err != nil {
		return model.CheckInResult{}, err
	}
	switch record.Status {
	case model.StatusCheckedIn:
		return model.CheckInResult{
			RecordID:       recordID,
			CheckedInAt:    *record.CheckedInAt,
			CheckedInBy:    record.CheckedInBy,
			AlreadyChecked: true,
		}, nil
	case model.StatusReserved:
		return model.CheckInResult{}, fmt.Errorf("%w: payment not completed", ErrInvalidStateTransition)
	default:
		return model.CheckInResult{}, fmt.Errorf("%w: record is %s", ErrInvalidStateTransition, record.Status)
	}
}
