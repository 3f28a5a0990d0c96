package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrDuplicateURL indicates an article insert was rejected because its
	// url already exists in the store.
	ErrDuplicateURL = errors.New("article url already exists")

	// ErrDailyCapacityExceeded indicates the YYYYMMDDnn counter for the
	// current day has reached 99 and no further articles can be allocated
	// an id for that date.
	ErrDailyCapacityExceeded = errors.New("daily article id capacity exceeded")

	// ErrClaimLost indicates the compare-and-set claim on an article did
	// not succeed because another worker (or a prior run) already held it.
	ErrClaimLost = errors.New("article claim lost to another worker")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
