// Package index is a sharded in-memory cosine-similarity index over entity
// vectors with pluggable exact and IVF search strategies.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// Hit is one search result.
type Hit struct {
	ID         string
	Kind       entity.Kind
	Similarity float64
	Revision   uint64
}

// Config configures an Index.
type Config struct {
	Dimension          int
	Strategy           domain.IndexStrategy
	Shards             int
	NList              int // 0 = sqrt(population) at build time
	NProbe             int
	StalenessThreshold float64
}

// Stats is a point-in-time view of the serving generation.
type Stats struct {
	Size       int
	Candidates int
	Jobs       int
	Generation uint64
	Strategy   domain.IndexStrategy
	Lists      int
	Staleness  float64
	LastBuild  time.Time
}

// Index serves one generation at a time. Reads never block on writes to
// other shards; writes lock only their shard (and posting list).
type Index struct {
	cfg Config
	gen atomic.Pointer[generation]

	// swapMu is held shared by writers and exclusively by the generation swap.
	swapMu  sync.RWMutex
	journal *journal

	rebuildMu sync.Mutex
}

// New creates an empty index. Dimension is fixed for the index lifetime.
func New(cfg Config) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, errors.New("index dimension must be positive")
	}
	if cfg.Strategy == "" {
		cfg.Strategy = domain.IndexExact
	}
	if !cfg.Strategy.IsValid() {
		return nil, fmt.Errorf("unknown index strategy %q", cfg.Strategy)
	}
	if cfg.Shards <= 0 {
		cfg.Shards = 16
	}
	if cfg.NProbe <= 0 {
		cfg.NProbe = 1
	}

	var s strategy = exact{}
	if cfg.Strategy == domain.IndexIVF {
		s = &ivf{nprobe: cfg.NProbe}
	}
	ix := &Index{cfg: cfg}
	ix.gen.Store(newGeneration(1, s, cfg.Shards))
	return ix, nil
}

// Dimension returns the fixed vector dimension.
func (ix *Index) Dimension() int { return ix.cfg.Dimension }

// Insert adds or overwrites the vector for id.
func (ix *Index) Insert(id string, kind entity.Kind, vec []float32, revision uint64) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidRequest)
	}
	if !kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRequest, kind)
	}
	if err := validate(vec, ix.cfg.Dimension); err != nil {
		return err
	}
	u := unit(vec)

	ix.swapMu.RLock()
	defer ix.swapMu.RUnlock()

	g := ix.gen.Load()
	e := &entry{id: id, kind: kind, unit: u, revision: revision, list: g.strategy.assign(u)}
	j := ix.journal
	g.put(e, func() {
		if j != nil {
			j.record(op{id: id, kind: kind, unit: u, revision: revision})
		}
	})
	return nil
}

// Remove deletes id. Absent ids are a no-op.
func (ix *Index) Remove(id string) {
	ix.swapMu.RLock()
	defer ix.swapMu.RUnlock()

	j := ix.journal
	ix.gen.Load().remove(id, func() {
		if j != nil {
			j.record(op{id: id, remove: true})
		}
	})
}

// Contains reports whether id is indexed.
func (ix *Index) Contains(id string) bool {
	_, ok := ix.gen.Load().get(id)
	return ok
}

// Size returns the number of indexed vectors.
func (ix *Index) Size() int { return ix.gen.Load().size() }

// Search returns up to k hits by descending cosine similarity, ties by
// ascending id, never of excludeKind (empty excludes nothing).
// The context is checked between shards or posting lists; once it is done
// Search returns the hits ranked so far together with the context error.
func (ix *Index) Search(ctx context.Context, query []float32, k int, excludeKind entity.Kind) ([]Hit, error) {
	if err := validate(query, ix.cfg.Dimension); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	q := unit(query)
	g := ix.gen.Load()
	c := newCollector(k)

	scan := func(entries map[string]*entry) {
		for _, e := range entries {
			if e.kind == excludeKind {
				continue
			}
			c.offer(Hit{ID: e.id, Kind: e.kind, Similarity: cosine(q, e.unit), Revision: e.revision})
		}
	}

	if g.lists == nil {
		for _, sh := range g.shards {
			if err := ctx.Err(); err != nil {
				return c.sorted(), err //nolint:wrapcheck // caller inspects ctx errors
			}
			sh.mu.RLock()
			scan(sh.entries)
			sh.mu.RUnlock()
		}
		return c.sorted(), nil
	}

	g.moveMu.RLock()
	defer g.moveMu.RUnlock()
	for _, li := range g.strategy.probe(q) {
		if err := ctx.Err(); err != nil {
			return c.sorted(), err //nolint:wrapcheck // caller inspects ctx errors
		}
		pl := g.lists[li]
		pl.mu.RLock()
		scan(pl.entries)
		pl.mu.RUnlock()
	}
	return c.sorted(), nil
}

// Staleness is the share of mutations since the last build relative to the
// built population (an empty build counts as one).
func (ix *Index) Staleness() float64 {
	g := ix.gen.Load()
	return float64(g.mutations.Load()) / float64(max(g.builtSize, 1))
}

// Stale reports whether an IVF index should be rebuilt. Exact indexes never go stale.
func (ix *Index) Stale() bool {
	if ix.cfg.Strategy != domain.IndexIVF {
		return false
	}
	return ix.Staleness() > ix.cfg.StalenessThreshold
}

// Stats returns a snapshot of index counters.
func (ix *Index) Stats() Stats {
	g := ix.gen.Load()
	cands, jobs := int(g.candidates.Load()), int(g.jobs.Load())
	return Stats{
		Size:       cands + jobs,
		Candidates: cands,
		Jobs:       jobs,
		Generation: g.num,
		Strategy:   g.strategy.name(),
		Lists:      len(g.lists),
		Staleness:  ix.Staleness(),
		LastBuild:  g.builtAt,
	}
}
