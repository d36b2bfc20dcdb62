package match

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/batch"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	dommatch "github.com/kailas-cloud/talentmatch/internal/domain/match"
	"github.com/kailas-cloud/talentmatch/internal/domain/match/gap"
	"github.com/kailas-cloud/talentmatch/internal/domain/match/scorer"
	"github.com/kailas-cloud/talentmatch/internal/index"
	"github.com/kailas-cloud/talentmatch/internal/logger"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// Operation names used in logs and metrics.
const (
	OpMatch         = "match"
	OpRecommendJobs = "recommend_jobs"
)

// Service ranks counterparts for a job or a candidate.
type Service struct {
	catalog Catalog
	index   Index
	scorer  *scorer.Scorer

	defaultK     int
	maxK         int
	maxBatchSize int
	workers      int
	deadline     time.Duration
	now          func() time.Time
}

// New creates a matching service.
func New(cat Catalog, idx Index, sc *scorer.Scorer) *Service {
	return &Service{
		catalog:      cat,
		index:        idx,
		scorer:       sc,
		defaultK:     10,
		maxK:         500,
		maxBatchSize: 100,
		workers:      8,
		now:          time.Now,
	}
}

// WithLimits configures the default and maximum k and the batch size cap.
func (s *Service) WithLimits(defaultK, maxK, maxBatchSize int) *Service {
	if defaultK > 0 {
		s.defaultK = defaultK
	}
	if maxK > 0 {
		s.maxK = maxK
	}
	if maxBatchSize > 0 {
		s.maxBatchSize = maxBatchSize
	}
	return s
}

// WithWorkers bounds MatchMany parallelism.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// WithQueryDeadline sets a per-request deadline after which the ranking
// accumulated so far is returned as partial. 0 disables it.
func (s *Service) WithQueryDeadline(d time.Duration) *Service {
	s.deadline = max(d, 0)
	return s
}

// WithClock overrides the computed_at clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Match ranks candidates for a job: at most k results, best score first,
// ties by candidate id. k = 0 selects the default.
func (s *Service) Match(ctx context.Context, jobID string, k int) (dommatch.Ranking, error) {
	return s.rank(ctx, OpMatch, jobID, entity.KindJob, k)
}

// RecommendJobs ranks jobs for a candidate, ties by job id.
func (s *Service) RecommendJobs(ctx context.Context, candidateID string, k int) (dommatch.Ranking, error) {
	return s.rank(ctx, OpRecommendJobs, candidateID, entity.KindCandidate, k)
}

// MatchMany runs Match for each job independently with bounded parallelism.
// Results follow input order; one failing job never affects the others.
func (s *Service) MatchMany(ctx context.Context, jobIDs []string, k int) ([]batch.Result[dommatch.Ranking], error) {
	if len(jobIDs) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit %d", domain.ErrInvalidRequest, len(jobIDs), s.maxBatchSize)
	}
	if _, err := s.resolveK(k); err != nil {
		return nil, err
	}

	results := make([]batch.Result[dommatch.Ranking], len(jobIDs))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range jobIDs {
		g.Go(func() error {
			r, err := s.Match(ctx, id, k)
			switch {
			case err != nil:
				results[i] = batch.NewError[dommatch.Ranking](id, err)
			case r.Partial():
				results[i] = batch.NewPartial(id, r)
			default:
				results[i] = batch.NewOK(id, r)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *Service) resolveK(k int) (int, error) {
	switch {
	case k == 0:
		return s.defaultK, nil
	case k < 0 || k > s.maxK:
		return 0, fmt.Errorf("%w: k must be between 1 and %d", domain.ErrInvalidRequest, s.maxK)
	default:
		return k, nil
	}
}

// pair is one joined hit: the counterpart entity and the similarity to score.
type pair struct {
	other      entity.Entity
	similarity float64
}

func (s *Service) rank(
	ctx context.Context, op, originID string, originKind entity.Kind, k int,
) (dommatch.Ranking, error) {
	start := time.Now()
	reqID := uuid.NewString()
	lc := dommatch.NewLifecycle()
	ctx = logger.WithMatch(ctx, reqID, op, originID)
	log := logger.FromContext(ctx)

	results, partial, err := s.pipeline(ctx, log, lc, originID, originKind, k)

	outcome := "done"
	switch {
	case err != nil:
		lc.Fail()
		outcome = "failed"
	case partial:
		outcome = "partial"
	}
	metrics.MatchRequestsTotal.WithLabelValues(op, outcome).Inc()
	metrics.MatchDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Debug("match failed", zap.String("stage", string(lc.Stage())), zap.Error(err))
		return dommatch.Ranking{}, err
	}
	log.Debug("match ranked",
		zap.Int("results", len(results)),
		zap.Bool("partial", partial),
		zap.Duration("elapsed", time.Since(start)),
	)
	return dommatch.NewRanking(originID, originKind, results, partial, reqID, lc.Stage()), nil
}

// pipeline walks the request through its stages. partial reports that the
// query deadline fired and the results are what was ranked before it.
func (s *Service) pipeline(
	ctx context.Context, log *zap.Logger, lc *dommatch.Lifecycle,
	originID string, originKind entity.Kind, k int,
) (results []dommatch.Result, partial bool, err error) {
	k, err = s.resolveK(k)
	if err != nil {
		return nil, false, err
	}
	origin, err := s.catalog.Get(originID)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", originKind, err)
	}
	if origin.Kind() != originKind {
		return nil, false, fmt.Errorf("%w: %s is a %s, not a %s",
			domain.ErrInvalidRequest, originID, origin.Kind(), originKind)
	}

	if s.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, s.deadline, domain.ErrDeadlineExceeded)
		defer cancel()
	}

	hits, err := s.index.Search(ctx, origin.Vector(), k, originKind)
	if err != nil {
		if !deadlineHit(ctx) {
			return nil, false, fmt.Errorf("search index: %w", err)
		}
		partial = true
	}
	if err := advance(lc, dommatch.StageIndexQueried); err != nil {
		return nil, false, err
	}

	pairs, joinPartial, err := s.join(ctx, log, &origin, hits)
	if err != nil {
		return nil, false, err
	}
	partial = partial || joinPartial
	if err := advance(lc, dommatch.StageAttributesJoined); err != nil {
		return nil, false, err
	}

	results = s.score(&origin, pairs)
	if err := advance(lc, dommatch.StageScored); err != nil {
		return nil, false, err
	}

	sortResults(results, originKind)
	if len(results) > k {
		results = results[:k]
	}
	if err := advance(lc, dommatch.StageRanked); err != nil {
		return nil, false, err
	}
	if err := advance(lc, dommatch.StageDone); err != nil {
		return nil, false, err
	}
	return results, partial, nil
}

// join resolves every hit against the catalog. Hits the catalog disagrees
// with are skipped; a newer catalog revision gets its similarity recomputed.
// Hits already retrieved are still joined once the query deadline fires.
func (s *Service) join(
	ctx context.Context, log *zap.Logger, origin *entity.Entity, hits []index.Hit,
) ([]pair, bool, error) {
	pairs := make([]pair, 0, len(hits))
	partial := false
	for _, h := range hits {
		if ctx.Err() != nil {
			if !deadlineHit(ctx) {
				return nil, false, ctx.Err() //nolint:wrapcheck // caller inspects ctx errors
			}
			partial = true
		}

		other, err := s.catalog.Get(h.ID)
		if err != nil {
			s.inconsistent(log, h, fmt.Errorf("%w: %w", domain.ErrInconsistentState, err))
			continue
		}
		if other.Kind() != h.Kind {
			s.inconsistent(log, h, fmt.Errorf("%w: kind %s in catalog, %s in index",
				domain.ErrInconsistentState, other.Kind(), h.Kind))
			continue
		}

		sim := h.Similarity
		if other.Revision() != h.Revision {
			sim = index.Cosine(origin.Vector(), other.Vector())
			log.Debug("hit revision moved",
				zap.String(logger.FieldEntityID, h.ID),
				zap.Uint64("index_revision", h.Revision),
				zap.Uint64("catalog_revision", other.Revision()),
			)
		}
		pairs = append(pairs, pair{other: other, similarity: sim})
	}
	return pairs, partial, nil
}

func (s *Service) inconsistent(log *zap.Logger, h index.Hit, err error) {
	metrics.MatchInconsistentHitsTotal.Inc()
	log.Warn("skipping index hit", zap.String(logger.FieldEntityID, h.ID), zap.Error(err))
}

func (s *Service) score(origin *entity.Entity, pairs []pair) []dommatch.Result {
	now := s.now()
	out := make([]dommatch.Result, 0, len(pairs))
	for i := range pairs {
		cand, job := &pairs[i].other, origin
		if origin.Kind() == entity.KindCandidate {
			cand, job = origin, &pairs[i].other
		}
		sc := s.scorer.Score(pairs[i].similarity, cand, job)
		if job.MinScore() > 0 && sc.Total < job.MinScore() {
			continue
		}
		out = append(out, dommatch.NewResult(
			cand.ID(), job.ID(),
			sc.Total, sc.Semantic, sc.Coverage, pairs[i].similarity,
			gap.Missing(cand, job, s.scorer.DefaultWeight()), now,
		))
	}
	return out
}

// sortResults orders by score descending, ties by the counterpart id.
func sortResults(results []dommatch.Result, originKind entity.Kind) {
	counterpart := func(r *dommatch.Result) string {
		if originKind == entity.KindJob {
			return r.CandidateID()
		}
		return r.JobID()
	}
	slices.SortFunc(results, func(a, b dommatch.Result) int {
		if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
			return c
		}
		return cmp.Compare(counterpart(&a), counterpart(&b))
	})
}

func advance(lc *dommatch.Lifecycle, to dommatch.Stage) error {
	if err := lc.Advance(to); err != nil {
		return fmt.Errorf("match pipeline: %w", err)
	}
	return nil
}

func deadlineHit(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), domain.ErrDeadlineExceeded)
}
