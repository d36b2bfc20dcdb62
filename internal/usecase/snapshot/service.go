package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	"github.com/kailas-cloud/talentmatch/internal/usecase/ingest"
)

// LoadReport summarizes a snapshot load.
type LoadReport struct {
	Loaded  int
	Skipped map[string]error
}

// SaveReport summarizes a snapshot save.
type SaveReport struct {
	Written int
	Removed int
}

// Service saves and loads the catalog. A nil repository disables persistence.
type Service struct {
	repo     Repository
	catalog  Catalog
	restorer Restorer
	rebuild  Rebuilder
	logger   *zap.Logger
}

// New creates a snapshot service.
func New(repo Repository, cat Catalog, restorer Restorer, rebuild Rebuilder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, catalog: cat, restorer: restorer, rebuild: rebuild, logger: logger}
}

// Enabled reports whether a repository is configured.
func (s *Service) Enabled() bool { return s.repo != nil }

// Save writes the current catalog snapshot and prunes entities no longer present.
func (s *Service) Save(ctx context.Context) (SaveReport, error) {
	if s.repo == nil {
		return SaveReport{}, domain.ErrPersistenceDisabled
	}
	start := time.Now()
	written, removed, err := s.repo.SaveAll(ctx, s.catalog.Snapshot())
	if err != nil {
		return SaveReport{}, fmt.Errorf("save snapshot: %w", err)
	}
	s.logger.Info("snapshot saved",
		zap.Int("written", written),
		zap.Int("removed", removed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return SaveReport{Written: written, Removed: removed}, nil
}

// Load reads the persisted snapshot and restores it. Records that fail to
// decode or validate are reported and skipped.
func (s *Service) Load(ctx context.Context) (LoadReport, error) {
	if s.repo == nil {
		return LoadReport{}, domain.ErrPersistenceDisabled
	}
	entities, skipped, err := s.repo.LoadAll(ctx)
	if err != nil {
		return LoadReport{}, fmt.Errorf("load snapshot: %w", err)
	}
	report, err := s.Restore(ctx, entities)
	for id, e := range skipped {
		report.Skipped[id] = e
	}
	if err != nil {
		return report, err
	}
	for id, e := range report.Skipped {
		s.logger.Warn("snapshot record skipped", zap.String("entity_id", id), zap.Error(e))
	}
	return report, nil
}

// Restore admits entities through ingestion and rebuilds the index once.
func (s *Service) Restore(ctx context.Context, entities []entity.Entity) (LoadReport, error) {
	report := LoadReport{Skipped: make(map[string]error)}
	ctx = ingest.WithSource(ctx, ingest.SourceSnapshot)
	for i := range entities {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("restore snapshot: %w", err)
		}
		if err := s.restorer.Restore(ctx, entities[i]); err != nil {
			report.Skipped[entities[i].ID()] = err
			continue
		}
		report.Loaded++
	}

	if s.rebuild != nil {
		if _, err := s.rebuild.Rebuild(ctx); err != nil {
			return report, err //nolint:wrapcheck // rebuild service wraps
		}
	}
	s.logger.Info("snapshot restored",
		zap.Int("loaded", report.Loaded),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// Run saves every interval until ctx is done. The shutdown save is the caller's.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if s.repo == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Save(ctx); err != nil {
				s.logger.Error("periodic snapshot save failed", zap.Error(err))
			}
		}
	}
}
