package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("model: validation failed")
	ErrNotFound   = errors.New("model: reminder not found")
	ErrStorage    = errors.New("model: storage failure")
	ErrPermission = errors.New("model: notification permission unavailable")
)

// ValidationError reports a single rejected input field. Message is meant to
// be shown to the user as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("reminder %q not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StorageError wraps a failed persistence call. It unwraps to both ErrStorage
// and the backend cause so callers can test for either.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

type PermissionError struct {
	Permission string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("notifications %s", e.Permission)
}

func (e *PermissionError) Unwrap() error { return ErrPermission }
