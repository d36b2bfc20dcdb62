package index

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// Item is one vector of a rebuild source snapshot.
type Item struct {
	ID       string
	Kind     entity.Kind
	Vector   []float32
	Revision uint64
}

type op struct {
	id       string
	kind     entity.Kind
	unit     []float32
	revision uint64
	remove   bool
}

// journal records writes that land while a new generation is being built.
type journal struct {
	mu  sync.Mutex
	ops []op
}

func (j *journal) record(o op) {
	j.mu.Lock()
	j.ops = append(j.ops, o)
	j.mu.Unlock()
}

// Rebuild builds a new generation from source and swaps it in atomically.
// source is called after journaling starts, so every write that is not in the
// snapshot is replayed before the swap. Searches in flight keep the generation
// they loaded. Concurrent calls are serialized.
func (ix *Index) Rebuild(ctx context.Context, source func() []Item) (Stats, error) {
	ix.rebuildMu.Lock()
	defer ix.rebuildMu.Unlock()

	j := &journal{}
	ix.swapMu.Lock()
	ix.journal = j
	ix.swapMu.Unlock()

	next, err := ix.build(ctx, source())
	if err != nil {
		ix.swapMu.Lock()
		ix.journal = nil
		ix.swapMu.Unlock()
		return Stats{}, err
	}

	ix.swapMu.Lock()
	j.mu.Lock()
	for _, o := range j.ops {
		if o.remove {
			next.remove(o.id, nil)
			continue
		}
		next.put(&entry{
			id: o.id, kind: o.kind, unit: o.unit, revision: o.revision,
			list: next.strategy.assign(o.unit),
		}, nil)
	}
	j.mu.Unlock()
	ix.gen.Store(next)
	ix.journal = nil
	ix.swapMu.Unlock()

	return ix.Stats(), nil
}

func (ix *Index) build(ctx context.Context, items []Item) (*generation, error) {
	slices.SortFunc(items, func(a, b Item) int { return cmp.Compare(a.ID, b.ID) })

	units := make([][]float32, len(items))
	var train [][]float32
	for i, it := range items {
		if err := validate(it.Vector, ix.cfg.Dimension); err != nil {
			return nil, fmt.Errorf("rebuild item %s: %w", it.ID, err)
		}
		units[i] = unit(it.Vector)
		if units[i] != nil {
			train = append(train, units[i])
		}
	}

	var s strategy = exact{}
	if ix.cfg.Strategy == domain.IndexIVF {
		trained, err := trainIVF(ctx, train, ix.cfg.NList, ix.cfg.NProbe, ix.cfg.Dimension)
		if err != nil {
			return nil, fmt.Errorf("train ivf: %w", err)
		}
		s = trained
	}

	next := newGeneration(ix.gen.Load().num+1, s, ix.cfg.Shards)
	for i, it := range items {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("rebuild: %w", err)
			}
		}
		u := units[i]
		next.put(&entry{id: it.ID, kind: it.Kind, unit: u, revision: it.Revision, list: s.assign(u)}, nil)
	}
	next.builtSize = len(items)
	next.builtAt = time.Now()
	next.mutations.Store(0)
	return next, nil
}
