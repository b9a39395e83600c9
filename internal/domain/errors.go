package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("review not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// InvalidArgument wraps ErrInvalidArgument with a caller-facing detail.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// StorageError reports a failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func IsNotFound(err error) bool        { return errors.Is(err, ErrNotFound) }
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }
