package photo

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType = errors.New("invalid file type. Only JPEG, JPG, PNG, and WEBP allowed")
	ErrTooLarge        = errors.New("file exceeds the 5MB upload limit")
)

// ValidationError rejects an upload before anything is written
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError reports a failed blob write
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("photo %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
