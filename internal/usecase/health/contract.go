package health

import (
	"context"

	"github.com/kailas-cloud/talentmatch/internal/index"
)

// Pinger reaches the snapshot store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker reaches the embedding provider used for text ingestion.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexReporter exposes the serving index generation.
type IndexReporter interface {
	Stats() index.Stats
	Stale() bool
}
