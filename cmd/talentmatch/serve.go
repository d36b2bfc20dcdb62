package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/talentmatch/internal/catalog"
	"github.com/kailas-cloud/talentmatch/internal/config"
	dbRedis "github.com/kailas-cloud/talentmatch/internal/db/redis"
	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/match/scorer"
	"github.com/kailas-cloud/talentmatch/internal/index"
	logpkg "github.com/kailas-cloud/talentmatch/internal/logger"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
	"github.com/kailas-cloud/talentmatch/internal/repository/embcache"
	entityrepo "github.com/kailas-cloud/talentmatch/internal/repository/entity"
	chiTransport "github.com/kailas-cloud/talentmatch/internal/transport/chi"
	kafkaTransport "github.com/kailas-cloud/talentmatch/internal/transport/kafka"
	openaiEmb "github.com/kailas-cloud/talentmatch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/talentmatch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/talentmatch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/talentmatch/internal/usecase/ingest"
	matchuc "github.com/kailas-cloud/talentmatch/internal/usecase/match"
	rebuilduc "github.com/kailas-cloud/talentmatch/internal/usecase/rebuild"
	snapshotuc "github.com/kailas-cloud/talentmatch/internal/usecase/snapshot"
	"github.com/kailas-cloud/talentmatch/internal/version"
)

type serveCommander struct {
	env    string
	port   int
	cfg    config.Config
	logger *zap.Logger
}

func newServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the matching API. Optional components are enabled by configuration:
database.addrs turns on snapshot persistence and the embedding cache,
embedding.api_key turns on text upserts and kafka.brokers the event consumer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = cmd.Flags().GetString("env")
			if err != nil {
				return fmt.Errorf("could not get env flag: %w", err)
			}
			if cmder.env == "" {
				cmder.env = config.GetEnv()
			}
			return cmder.run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&cmder.port, "port", "p", 0, "HTTP port (overrides http.port)")
	return cmd
}

func (c *serveCommander) run(parent context.Context) error {
	cfg, err := config.Load(c.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.port > 0 {
		cfg.HTTP.Port = c.port
	}
	c.cfg = cfg

	c.logger, err = logpkg.NewLogger(c.env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = c.logger.Sync() }()

	logger := c.logger
	logger.Info("Starting talentmatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", c.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("dimension", cfg.Matching.Dimension),
		zap.String("index_strategy", cfg.Matching.IndexStrategy),
		zap.Bool("persistence", cfg.Database.Enabled()),
		zap.Bool("embedding", cfg.Embedding.Enabled()),
		zap.Bool("kafka", cfg.Kafka.Enabled()),
	)

	metrics.Register()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional database: snapshot persistence and embedding cache.
	var store *dbRedis.Store
	if cfg.Database.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
	}

	mc := cfg.Matching.Engine()
	sc, err := scorer.New(mc.Alpha, mc.DefaultWeight)
	if err != nil {
		return fmt.Errorf("create scorer: %w", err)
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
		return fmt.Errorf("create index: %w", err)
	}
	cat := catalog.New(mc.Shards)

	rebuildSvc := rebuilduc.New(idx, cat, logger)
	defer rebuildSvc.Close()

	ingestSvc := ingestuc.New(cat, idx, logger).
		WithRebuildTrigger(rebuildSvc).
		WithMaxBatchSize(mc.MaxBatchSize)

	// Pass nil interfaces (not typed nil pointers) for disabled components:
	// (*Store)(nil) wrapped in an interface != nil.
	var dbPinger healthuc.Pinger
	var repo snapshotuc.Repository
	if store != nil {
		dbPinger = store
		repo = entityrepo.New(store, cfg.Storage.KeyPrefix)
	}
	var embChecker healthuc.EmbeddingChecker
	if cfg.Embedding.Enabled() {
		embedder, checker := buildEmbedder(cfg.Embedding, mc.Dimension, cfg.Storage.KeyPrefix, store, logger)
		ingestSvc = ingestSvc.WithEmbedder(embedder)
		embChecker = checker
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
		)
	}

	matchSvc := matchuc.New(cat, idx, sc).
		WithLimits(mc.DefaultK, mc.MaxK, mc.MaxBatchSize).
		WithWorkers(mc.Workers).
		WithQueryDeadline(mc.QueryDeadline)
	snapshotSvc := snapshotuc.New(repo, cat, ingestSvc, rebuildSvc, logger)
	healthSvc := healthuc.New(dbPinger, embChecker).WithIndex(idx)

	if snapshotSvc.Enabled() {
		rep, err := snapshotSvc.Load(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		logger.Info("Snapshot loaded", zap.Int("loaded", rep.Loaded), zap.Int("skipped", len(rep.Skipped)))
	}

	server := chiTransport.NewServer(ingestSvc, matchSvc, rebuildSvc, snapshotSvc, healthSvc, logger)
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rebuildSvc.Run(gctx, time.Duration(cfg.Matching.RebuildCheckSec)*time.Second)
		return nil
	})
	g.Go(func() error {
		snapshotSvc.Run(gctx, time.Duration(cfg.Matching.PersistIntervalSec)*time.Second)
		return nil
	})
	if cfg.Kafka.Enabled() {
		consumer := kafkaTransport.NewConsumer(kafkaTransport.NewReader(kafkaTransport.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}), ingestSvc, logger)
		g.Go(func() error {
			defer func() { _ = consumer.Close() }()
			logger.Info("Starting Kafka consumer",
				zap.Strings("brokers", cfg.Kafka.Brokers),
				zap.String("topic", cfg.Kafka.Topic),
			)
			return consumer.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		return nil
	})

	runErr := g.Wait()

	if snapshotSvc.Enabled() {
		saveCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		rep, err := snapshotSvc.Save(saveCtx)
		cancel()
		if err != nil {
			logger.Error("Final snapshot save failed", zap.Error(err))
		} else {
			logger.Info("Final snapshot saved", zap.Int("written", rep.Written), zap.Int("removed", rep.Removed))
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// The returned checker is the instrumented layer, which forwards health checks to the provider.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	dimension int,
	keyPrefix string,
	store *dbRedis.Store,
	logger *zap.Logger,
) (domain.Embedder, healthuc.EmbeddingChecker) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix: keyPrefix,
			Model:     cfg.Model,
			TTL:       time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, dimension, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.Instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, cfg.Instruction), instrumented
	}
	return instrumented, instrumented
}
