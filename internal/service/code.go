package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/riverhall/attendance/internal/model"
)

// Confirmation codes are shared over the phone and read off badges, so the
// alphabet omits the lookalikes 0/O, 1/I/L. Eight characters over 31
// symbols gives ~8.5e11 codes; collisions are vanishingly rare.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 8

	// codeAttempts bounds insert retries on a code collision before
	// giving up with ErrCodeGenerationExhausted.
	codeAttempts = 5
)

// newConfirmationCode draws a code from crypto/rand.
func newConfirmationCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// createWithCode inserts the record under a fresh confirmation code,
// retrying on the store's uniqueness constraint rather than pre-checking:
// check-then-insert races under concurrency, insert-and-retry does not.
func (s *Service) createWithCode(ctx context.Context, record *model.AttendanceRecord) error {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := newConfirmationCode()
		if err != nil {
			return err
		}
		record.ConfirmationCode = code

		err = s.attendance.CreateRecord(ctx, record)
		if errors.Is(err, ErrCodeConflict) {
			continue
		}
		return err
	}
	return ErrCodeGenerationExhausted
}
