package match

import (
	"context"

	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	"github.com/kailas-cloud/talentmatch/internal/index"
)

// Catalog resolves entities by id.
type Catalog interface {
	Get(id string) (entity.Entity, error)
}

// Index answers nearest-neighbor queries.
type Index interface {
	Search(ctx context.Context, query []float32, k int, excludeKind entity.Kind) ([]index.Hit, error)
}
