package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrIntegrity marks constraint violations on paths that are not upserts.
var ErrIntegrity = errors.New("integrity constraint violated")

// DatabaseError wraps a failed database operation.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s failed: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isIntegrityViolation(err) {
		err = fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return &DatabaseError{Op: op, Err: err}
}

func isIntegrityViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	// The sqlite driver does not translate errors.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "NOT NULL constraint failed")
}
