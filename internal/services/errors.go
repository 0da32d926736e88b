package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound marks lookups that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected before it reached the database.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidPin is returned when no active staff member owns the PIN.
	ErrInvalidPin = errors.New("invalid PIN")
)

// PinLockedError is returned while a PIN is locked out.
type PinLockedError struct {
	Until time.Time
}

func (e *PinLockedError) Error() string {
	return fmt.Sprintf("too many attempts, try again after %s", e.Until.Format(time.RFC3339))
}

func failed(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, err)
}

func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// lookupErr turns gorm's missing-row error into ErrNotFound for entity.
func lookupErr(entity string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity)
	}
	return err
}
