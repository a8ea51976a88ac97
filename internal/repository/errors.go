package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Common repository errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrCodeUsed is returned by the redemption transaction when the
	// conditional consume of an activation code matched no row, i.e.
	// a concurrent redemption won the race.
	ErrCodeUsed = errors.New("activation code already consumed")
)

// IsSerializationFailure reports whether err is a transient transaction
// conflict (serialization failure or deadlock) that the caller may
// retry. A lost compare-and-set on the code's used flag is NOT such a
// conflict; that surfaces as ErrCodeUsed.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
