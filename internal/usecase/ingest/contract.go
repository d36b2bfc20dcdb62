package ingest

import (
	"context"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// Catalog stores entities by id.
type Catalog interface {
	Put(e entity.Entity) (prev entity.Entity, replaced bool)
	Get(id string) (entity.Entity, error)
	Delete(id string) (prev entity.Entity, removed bool)
}

// Index holds entity vectors for similarity search.
type Index interface {
	Insert(id string, kind entity.Kind, vec []float32, revision uint64) error
	Remove(id string)
	Dimension() int
	Stale() bool
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// RebuildTrigger schedules a background index rebuild.
type RebuildTrigger interface {
	Trigger()
}
