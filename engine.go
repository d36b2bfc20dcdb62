// Package talentmatch is an in-memory semantic matching engine for candidates
// and jobs. It blends cosine similarity of entity embeddings with weighted
// attribute coverage into a 0-100 score and ranks counterparts by it.
//
//	eng, err := talentmatch.New(talentmatch.WithDimension(384))
//	...
//	_, err = eng.UpsertEntity(ctx, talentmatch.Entity{ID: "J1", Kind: talentmatch.KindJob, Vector: v})
//	ranking, err := eng.Match(ctx, "J1", 10)
package talentmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/talentmatch/internal/catalog"
	dbRedis "github.com/kailas-cloud/talentmatch/internal/db/redis"
	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	"github.com/kailas-cloud/talentmatch/internal/domain/match/scorer"
	"github.com/kailas-cloud/talentmatch/internal/index"
	entityrepo "github.com/kailas-cloud/talentmatch/internal/repository/entity"
	ingestuc "github.com/kailas-cloud/talentmatch/internal/usecase/ingest"
	matchuc "github.com/kailas-cloud/talentmatch/internal/usecase/match"
	rebuilduc "github.com/kailas-cloud/talentmatch/internal/usecase/rebuild"
	snapshotuc "github.com/kailas-cloud/talentmatch/internal/usecase/snapshot"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "talentmatch:"
)

// Engine is the talentmatch entry point. Safe for concurrent use.
type Engine struct {
	store    *dbRedis.Store
	catalog  *catalog.Catalog
	ingest   *ingestuc.Service
	match    *matchuc.Service
	rebuild  *rebuilduc.Service
	snapshot *snapshotuc.Service
	obs      *observer
}

// New creates an Engine. The vector dimension is fixed for its lifetime.
// With WithRedis the store must answer within ten seconds.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{match: domain.DefaultMatchConfig(), keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o.apply(cfg)
	}
	mc := cfg.match
	if mc.Dimension <= 0 {
		return nil, errors.New("talentmatch: dimension must be positive")
	}

	sc, err := scorer.New(mc.Alpha, mc.DefaultWeight)
	if err != nil {
		return nil, fmt.Errorf("talentmatch: %w", err)
	}
	idx, err := index.New(index.Config{
		Dimension:          mc.Dimension,
		Strategy:           mc.Strategy,
		Shards:             mc.Shards,
		NList:              mc.IVFNList,
		NProbe:             mc.IVFNProbe,
		StalenessThreshold: mc.StalenessThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("talentmatch: %w", err)
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store *dbRedis.Store
	var repo snapshotuc.Repository
	if len(cfg.addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("talentmatch: create store: %w", err)
		}
		if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("talentmatch: database not ready: %w", err)
		}
		repo = entityrepo.New(store, cfg.keyPrefix)
	}

	cat := catalog.New(mc.Shards)
	rebuildSvc := rebuilduc.New(idx, cat, obs.logger)
	ingestSvc := ingestuc.New(cat, idx, obs.logger).
		WithRebuildTrigger(rebuildSvc).
		WithMaxBatchSize(mc.MaxBatchSize)
	if cfg.embedder != nil {
		ingestSvc = ingestSvc.WithEmbedder(&embedderAdapter{inner: cfg.embedder})
	}
	matchSvc := matchuc.New(cat, idx, sc).
		WithLimits(mc.DefaultK, mc.MaxK, mc.MaxBatchSize).
		WithWorkers(mc.Workers).
		WithQueryDeadline(mc.QueryDeadline)

	return &Engine{
		store:    store,
		catalog:  cat,
		ingest:   ingestSvc,
		match:    matchSvc,
		rebuild:  rebuildSvc,
		snapshot: snapshotuc.New(repo, cat, ingestSvc, rebuildSvc, obs.logger),
		obs:      obs,
	}, nil
}

// Close stops background rebuilds and releases the store connection.
func (e *Engine) Close() {
	e.rebuild.Close()
	if e.store != nil {
		e.store.Close()
	}
}

func (e *Engine) ctx(ctx context.Context) context.Context {
	return ingestuc.WithSource(ctx, ingestuc.SourceSDK)
}

// UpsertEntity inserts or replaces an entity and returns it with its revision.
// Writing an identical entity keeps the stored revision.
func (e *Engine) UpsertEntity(ctx context.Context, ent Entity) (Entity, error) {
	start := time.Now()
	stored, err := e.ingest.Upsert(e.ctx(ctx), toInput(&ent))
	e.obs.observe("upsert", start, err)
	if err != nil {
		return Entity{}, fmt.Errorf("upsert entity: %w", err)
	}
	return fromEntity(&stored), nil
}

// UpsertEntities applies each entity independently; one failure does not affect the others.
func (e *Engine) UpsertEntities(ctx context.Context, ents []Entity) []UpsertManyItem {
	start := time.Now()
	inputs := make([]ingestuc.Input, len(ents))
	for i := range ents {
		inputs[i] = toInput(&ents[i])
	}
	results := e.ingest.UpsertBatch(e.ctx(ctx), inputs)

	items := make([]UpsertManyItem, len(results))
	for i, r := range results {
		items[i] = UpsertManyItem{ID: r.ID(), Status: fromStatus(r.Status()), Revision: r.Value(), Err: r.Err()}
	}
	e.obs.observe("upsert_batch", start, nil)
	return items
}

// DeleteEntity removes an entity. It reports whether the entity existed;
// deleting an absent id is not an error.
func (e *Engine) DeleteEntity(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	removed, err := e.ingest.Delete(e.ctx(ctx), id)
	e.obs.observe("delete", start, err)
	if err != nil {
		return false, fmt.Errorf("delete entity: %w", err)
	}
	return removed, nil
}

// GetEntity returns the stored entity or ErrNotFound.
func (e *Engine) GetEntity(ctx context.Context, id string) (Entity, error) {
	stored, err := e.ingest.Get(ctx, id)
	if err != nil {
		return Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return fromEntity(&stored), nil
}

// Match ranks up to k candidates for a job. k 0 uses the configured default.
func (e *Engine) Match(ctx context.Context, jobID string, k int) (Ranking, error) {
	start := time.Now()
	r, err := e.match.Match(ctx, jobID, k)
	e.obs.observe("match", start, err)
	if err != nil {
		return Ranking{}, fmt.Errorf("match: %w", err)
	}
	return fromRanking(&r), nil
}

// RecommendJobs ranks up to k jobs for a candidate.
func (e *Engine) RecommendJobs(ctx context.Context, candidateID string, k int) (Ranking, error) {
	start := time.Now()
	r, err := e.match.RecommendJobs(ctx, candidateID, k)
	e.obs.observe("recommend_jobs", start, err)
	if err != nil {
		return Ranking{}, fmt.Errorf("recommend jobs: %w", err)
	}
	return fromRanking(&r), nil
}

// MatchMany ranks candidates for several jobs in parallel. Items keep input
// order and fail independently; the error covers only invalid requests.
func (e *Engine) MatchMany(ctx context.Context, jobIDs []string, k int) ([]MatchManyItem, error) {
	start := time.Now()
	results, err := e.match.MatchMany(ctx, jobIDs, k)
	e.obs.observe("match_many", start, err)
	if err != nil {
		return nil, fmt.Errorf("match many: %w", err)
	}
	items := make([]MatchManyItem, len(results))
	for i, r := range results {
		items[i] = MatchManyItem{JobID: r.ID(), Status: fromStatus(r.Status()), Err: r.Err()}
		if r.Err() == nil {
			ranking := r.Value()
			items[i].Ranking = fromRanking(&ranking)
		}
	}
	return items, nil
}

// RebuildIndex builds a fresh index generation from the catalog and swaps it in.
func (e *Engine) RebuildIndex(ctx context.Context) (Stats, error) {
	start := time.Now()
	st, err := e.rebuild.Rebuild(ctx)
	e.obs.observe("rebuild", start, err)
	if err != nil {
		return Stats{}, fmt.Errorf("rebuild index: %w", err)
	}
	return fromStats(st), nil
}

// Stats describes the serving index generation.
func (e *Engine) Stats() Stats {
	return fromStats(e.rebuild.Stats())
}

// Snapshot returns a point-in-time copy of every stored entity, for callers
// that persist the catalog themselves.
func (e *Engine) Snapshot() []Entity {
	all := e.catalog.Snapshot()
	out := make([]Entity, len(all))
	for i := range all {
		out[i] = fromEntity(&all[i])
	}
	return out
}

// Restore re-admits previously snapshotted entities through the normal write
// path, keeping their revisions, then rebuilds the index once. Invalid
// entities are skipped and reported.
func (e *Engine) Restore(ctx context.Context, ents []Entity) (RestoreReport, error) {
	start := time.Now()
	stored := make([]entity.Entity, len(ents))
	for i := range ents {
		stored[i] = toEntity(&ents[i])
	}
	rep, err := e.snapshot.Restore(e.ctx(ctx), stored)
	e.obs.observe("restore", start, err)
	if err != nil {
		return RestoreReport{}, fmt.Errorf("restore: %w", err)
	}
	return RestoreReport{Loaded: rep.Loaded, Skipped: rep.Skipped}, nil
}

// Save writes the catalog to the configured store. Returns
// ErrPersistenceDisabled without WithRedis.
func (e *Engine) Save(ctx context.Context) (SaveReport, error) {
	start := time.Now()
	rep, err := e.snapshot.Save(ctx)
	e.obs.observe("save", start, err)
	if err != nil {
		return SaveReport{}, fmt.Errorf("save: %w", err)
	}
	return SaveReport{Written: rep.Written, Removed: rep.Removed}, nil
}

// Load restores the catalog from the configured store.
func (e *Engine) Load(ctx context.Context) (RestoreReport, error) {
	start := time.Now()
	rep, err := e.snapshot.Load(e.ctx(ctx))
	e.obs.observe("load", start, err)
	if err != nil {
		return RestoreReport{}, fmt.Errorf("load: %w", err)
	}
	return RestoreReport{Loaded: rep.Loaded, Skipped: rep.Skipped}, nil
}
