package snapshot

import (
	"context"

	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	"github.com/kailas-cloud/talentmatch/internal/index"
)

// Repository persists entity snapshots.
type Repository interface {
	SaveAll(ctx context.Context, entities []entity.Entity) (written, removed int, err error)
	LoadAll(ctx context.Context) ([]entity.Entity, map[string]error, error)
}

// Catalog provides the point-in-time entity snapshot.
type Catalog interface {
	Snapshot() []entity.Entity
}

// Restorer re-admits persisted entities through the ingestion write path.
type Restorer interface {
	Restore(ctx context.Context, e entity.Entity) error
}

// Rebuilder rebuilds the index once after a bulk load.
type Rebuilder interface {
	Rebuild(ctx context.Context) (index.Stats, error)
}
