package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate")

	// ErrReferenced is returned when a write violates a foreign key, either
	// by deleting a referenced row or by pointing at a missing one.
	ErrReferenced = errors.New("referenced")

	// ErrInvalidValue is returned when a write is rejected by a column range
	// or CHECK constraint.
	ErrInvalidValue = errors.New("invalid value")
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
	pqCheckViolation      = pq.ErrorCode("23514")
	pqNumericOutOfRange   = pq.ErrorCode("22003")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

func isInvalidValue(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && (pqErr.Code == pqCheckViolation || pqErr.Code == pqNumericOutOfRange)
}

// translate maps driver constraint errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrDuplicate
	case isForeignKeyViolation(err):
		return ErrReferenced
	case isInvalidValue(err):
		return ErrInvalidValue
	default:
		return err
	}
}
