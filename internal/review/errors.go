package review

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no user identity accompanied the call.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound means the referenced problem does not exist.
	ErrNotFound = errors.New("problem not found")
	// ErrConflict means the bookmark already exists.
	ErrConflict = errors.New("already bookmarked")
	// ErrStoreUnavailable wraps any other failure of a backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
