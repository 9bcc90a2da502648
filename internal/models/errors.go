package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the scoring engine, the tracker and the import path.
// Callers match on the sentinels with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("forecast not found")
	ErrConfig        = errors.New("invalid weight configuration")
	ErrImportFormat  = errors.New("invalid import format")
	ErrAlreadyClosed = errors.New("forecast already closed")
)

// NewValidationError reports a missing or malformed input field.
func NewValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}

// NewNotFoundError reports a forecast ID that does not exist in the collection.
func NewNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// NewConfigError reports a weight lookup that cannot be satisfied by the settings.
func NewConfigError(key, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrConfig, key, reason)
}

// NewImportFormatError reports a malformed import payload.
func NewImportFormatError(reason string) error {
	return fmt.Errorf("%w: %s", ErrImportFormat, reason)
}

// NewAlreadyClosedError reports an attempt to close a forecast twice.
func NewAlreadyClosedError(id string) error {
	return fmt.Errorf("%w: %s", ErrAlreadyClosed, id)
}
