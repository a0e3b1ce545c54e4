package translate

import (
	"errors"
	"fmt"
)

// Terminal operation errors. The webserver maps each to its HTTP status.
var (
	ErrAuthRequired     = errors.New("sign in required")
	ErrFieldLocked      = errors.New("field locked")
	ErrNotFound         = errors.New("not found")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict reports a conditional claim write that lost to a
	// concurrent writer. Retryable: the caller may re-issue the acquire,
	// unlike EditConflictError which names a live holder.
	ErrConflict = errors.New("claim changed, retry acquire")
)

// EditConflictError is returned when another user holds the claim and is
// still online.
type EditConflictError struct {
	Field  string
	Holder string
}

func (e *EditConflictError) Error() string {
	return fmt.Sprintf("%s is editing by %s", e.Field, e.Holder)
}
