package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/batch"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	"github.com/kailas-cloud/talentmatch/internal/logger"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// Input is one upsert request. Either Vector or Text must be set; Text is
// embedded only when Vector is empty.
type Input struct {
	ID         string
	Kind       entity.Kind
	Vector     []float32
	Text       string
	Attributes []string
	Weights    map[string]float64
	MinScore   float64
}

// Service applies entity writes to the catalog and the index.
// Writes for one id are serialized; the catalog is always written first.
type Service struct {
	catalog  Catalog
	index    Index
	embedder Embedder
	rebuild  RebuildTrigger
	logger   *zap.Logger

	locks        stripedLocks
	revision     atomic.Uint64
	maxBatchSize int
}

// New creates an ingestion service.
func New(cat Catalog, idx Index, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		catalog:      cat,
		index:        idx,
		logger:       l,
		maxBatchSize: 100,
	}
}

// WithEmbedder enables text inputs.
func (s *Service) WithEmbedder(e Embedder) *Service {
	s.embedder = e
	return s
}

// WithRebuildTrigger sets the callback fired when the index reports staleness.
func (s *Service) WithRebuildTrigger(t RebuildTrigger) *Service {
	s.rebuild = t
	return s
}

// WithMaxBatchSize caps UpsertBatch.
func (s *Service) WithMaxBatchSize(n int) *Service {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// Upsert validates in and replaces the stored entity. Upserting an entity equal
// to the stored one is a no-op and keeps its revision.
func (s *Service) Upsert(ctx context.Context, in Input) (entity.Entity, error) {
	e, err := s.upsert(ctx, in)
	s.count(ctx, err)
	return e, err
}

func (s *Service) upsert(ctx context.Context, in Input) (entity.Entity, error) {
	vec, err := s.vectorize(ctx, in)
	if err != nil {
		return entity.Entity{}, err
	}

	e, err := entity.New(in.ID, in.Kind, vec, in.Attributes, in.Weights, in.MinScore)
	if err != nil {
		return entity.Entity{}, fmt.Errorf("validate entity: %w", err)
	}
	if dim := s.index.Dimension(); len(vec) != dim {
		return entity.Entity{}, fmt.Errorf("entity %s: %w", in.ID, domain.NewDimensionError(dim, len(vec)))
	}

	return s.apply(ctx, e, 0)
}

// Restore re-admits a previously persisted entity through the same write path,
// keeping its stored revision and advancing the revision counter past it.
func (s *Service) Restore(ctx context.Context, stored entity.Entity) error {
	e, err := entity.New(stored.ID(), stored.Kind(), stored.Vector(),
		stored.Attributes(), stored.Weights(), stored.MinScore())
	if err == nil && len(e.Vector()) != s.index.Dimension() {
		err = domain.NewDimensionError(s.index.Dimension(), len(e.Vector()))
	}
	if err != nil {
		err = fmt.Errorf("restore entity %s: %w", stored.ID(), err)
		s.count(ctx, err)
		return err
	}
	rev := max(stored.Revision(), 1)
	for {
		cur := s.revision.Load()
		if cur >= rev || s.revision.CompareAndSwap(cur, rev) {
			break
		}
	}
	_, err = s.apply(ctx, e, rev)
	s.count(ctx, err)
	return err
}

// apply writes e under its id lock. rev 0 assigns the next revision.
func (s *Service) apply(ctx context.Context, e entity.Entity, rev uint64) (entity.Entity, error) {
	unlock := s.locks.lock(e.ID())
	defer unlock()

	if cur, err := s.catalog.Get(e.ID()); err == nil && cur.Equal(&e) {
		s.logger.Debug("upsert unchanged", zap.String(logger.FieldEntityID, e.ID()))
		return cur, nil
	}

	if rev == 0 {
		rev = s.revision.Add(1)
	}
	e = e.WithRevision(rev)

	prev, replaced := s.catalog.Put(e)
	if err := s.index.Insert(e.ID(), e.Kind(), e.Vector(), rev); err != nil {
		if replaced {
			s.catalog.Put(prev)
		} else {
			s.catalog.Delete(e.ID())
		}
		return entity.Entity{}, fmt.Errorf("index entity %s: %w", e.ID(), err)
	}
	if replaced && prev.Kind() != e.Kind() {
		logger.FromContext(ctx).Info("entity kind changed",
			zap.String(logger.FieldEntityID, e.ID()),
			zap.String("from", string(prev.Kind())),
			zap.String("to", string(e.Kind())),
		)
	}

	s.maybeRebuild()
	return e, nil
}

func (s *Service) vectorize(ctx context.Context, in Input) ([]float32, error) {
	if len(in.Vector) > 0 {
		return in.Vector, nil
	}
	if in.Text == "" {
		return nil, fmt.Errorf("%w: vector or text is required", domain.ErrInvalidRequest)
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: text ingestion requires an embedding provider", domain.ErrInvalidRequest)
	}
	res, err := s.embedder.Embed(ctx, in.Text)
	if err != nil {
		return nil, fmt.Errorf("vectorize entity %s: %w", in.ID, err)
	}
	return res.Embedding, nil
}

// Delete removes id from the catalog and then from the index. Deleting an
// absent id is not an error; removed reports whether anything was deleted.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if err := entity.ValidateID(id); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	unlock := s.locks.lock(id)
	defer unlock()

	// index first: readers go index -> catalog and must not see a hit whose
	// catalog entry is already gone
	s.index.Remove(id)
	_, removed := s.catalog.Delete(id)
	if removed {
		s.count(ctx, nil)
		s.maybeRebuild()
	}
	return removed, nil
}

// Get returns the stored entity.
func (s *Service) Get(_ context.Context, id string) (entity.Entity, error) {
	e, err := s.catalog.Get(id)
	if err != nil {
		return entity.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

// UpsertBatch applies inputs in order. Each item succeeds or fails on its own;
// a batch over the size limit fails every item.
func (s *Service) UpsertBatch(ctx context.Context, inputs []Input) []batch.Result[uint64] {
	results := make([]batch.Result[uint64], len(inputs))
	if len(inputs) > s.maxBatchSize {
		err := fmt.Errorf("%w: batch of %d exceeds limit %d", domain.ErrInvalidRequest, len(inputs), s.maxBatchSize)
		for i, in := range inputs {
			results[i] = batch.NewError[uint64](in.ID, err)
		}
		return results
	}
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			results[i] = batch.NewError[uint64](in.ID, err)
			continue
		}
		e, err := s.Upsert(ctx, in)
		if err != nil {
			results[i] = batch.NewError[uint64](in.ID, err)
			continue
		}
		results[i] = batch.NewOK(in.ID, e.Revision())
	}
	return results
}

func (s *Service) maybeRebuild() {
	if s.rebuild != nil && s.index.Stale() {
		s.rebuild.Trigger()
	}
}

func (s *Service) count(ctx context.Context, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		result = "provider_error"
	default:
		result = "rejected"
	}
	metrics.IngestEventsTotal.WithLabelValues(sourceFrom(ctx), result).Inc()
}
