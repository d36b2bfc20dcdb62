package rebuild

import (
	"context"

	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	"github.com/kailas-cloud/talentmatch/internal/index"
)

// Index is rebuilt from a source snapshot.
type Index interface {
	Rebuild(ctx context.Context, source func() []index.Item) (index.Stats, error)
	Stale() bool
	Stats() index.Stats
}

// Catalog provides the point-in-time entity snapshot.
type Catalog interface {
	Snapshot() []entity.Entity
}
