package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch signals a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidVector signals a vector with non-finite components.
	ErrInvalidVector = errors.New("invalid vector")
	// ErrInvalidEntity signals an entity that failed validation.
	ErrInvalidEntity = errors.New("invalid entity")
	// ErrInvalidRequest signals a malformed matching or ingestion request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInconsistentState signals an index hit without a matching catalog entry.
	ErrInconsistentState = errors.New("inconsistent index state")
	// ErrDeadlineExceeded marks a ranking cut short by the configured query deadline.
	ErrDeadlineExceeded = errors.New("query deadline exceeded")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrPersistenceDisabled signals that no snapshot store is configured.
	ErrPersistenceDisabled = errors.New("persistence not configured")
)

// DimensionError wraps ErrDimensionMismatch with the offending sizes.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionError creates a dimension mismatch error.
func NewDimensionError(want, got int) error {
	return &DimensionError{Want: want, Got: got}
}
