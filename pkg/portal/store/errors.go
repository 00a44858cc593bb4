package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when an update or delete targets a missing row
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the acting user may not write the row
	ErrForbidden = errors.New("forbidden")
)

// Error is a failure reported by the store. Kind is one of the sentinel
// errors above, or nil for driver and network failures.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// wrap classifies a gorm error into a store Error
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	e := &Error{Op: op, Err: err}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		e.Kind = ErrNotFound
	case isDuplicate(err):
		e.Kind = ErrConflict
	}
	return e
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
