package rebuild

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	"github.com/kailas-cloud/talentmatch/internal/index"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// Service rebuilds the index generation from the catalog.
type Service struct {
	index   Index
	catalog Catalog
	logger  *zap.Logger
	timeout time.Duration

	running atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a rebuild service.
func New(idx Index, cat Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		index:   idx,
		catalog: cat,
		logger:  logger,
		timeout: 5 * time.Minute,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// WithTimeout bounds background rebuilds.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Rebuild builds a new generation from the current catalog snapshot and swaps
// it in. Safe to call while searches and writes are in flight.
func (s *Service) Rebuild(ctx context.Context) (index.Stats, error) {
	start := time.Now()
	stats, err := s.index.Rebuild(ctx, s.source)
	metrics.IndexRebuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IndexRebuildsTotal.WithLabelValues("error").Inc()
		return index.Stats{}, fmt.Errorf("rebuild index: %w", err)
	}
	metrics.IndexRebuildsTotal.WithLabelValues("ok").Inc()
	s.observe(stats)

	s.logger.Info("index rebuilt",
		zap.Uint64("generation", stats.Generation),
		zap.String("strategy", string(stats.Strategy)),
		zap.Int("size", stats.Size),
		zap.Int("lists", stats.Lists),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}

func (s *Service) source() []index.Item {
	snap := s.catalog.Snapshot()
	items := make([]index.Item, len(snap))
	for i := range snap {
		items[i] = index.Item{
			ID:       snap[i].ID(),
			Kind:     snap[i].Kind(),
			Vector:   snap[i].Vector(),
			Revision: snap[i].Revision(),
		}
	}
	return items
}

// Stats returns the serving generation's counters.
func (s *Service) Stats() index.Stats { return s.index.Stats() }

// Trigger starts a background rebuild unless one is already running.
func (s *Service) Trigger() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		if _, err := s.Rebuild(ctx); err != nil {
			s.logger.Error("background rebuild failed", zap.Error(err))
		}
	}()
}

// Run checks staleness every interval and rebuilds when needed, until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.observe(s.index.Stats())
			if s.index.Stale() {
				s.Trigger()
			}
		}
	}
}

// Close cancels a running background rebuild and waits for it.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) observe(st index.Stats) {
	metrics.IndexEntities.WithLabelValues(string(entity.KindCandidate)).Set(float64(st.Candidates))
	metrics.IndexEntities.WithLabelValues(string(entity.KindJob)).Set(float64(st.Jobs))
}
