package talentmatch

import "github.com/kailas-cloud/talentmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrInvalidVector          = domain.ErrInvalidVector
	ErrInvalidEntity          = domain.ErrInvalidEntity
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrInconsistentState      = domain.ErrInconsistentState
	ErrDeadlineExceeded       = domain.ErrDeadlineExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrPersistenceDisabled    = domain.ErrPersistenceDisabled
)
