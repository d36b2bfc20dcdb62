package talentmatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
)

// Option configures the Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	match domain.MatchConfig

	embedder Embedder

	// persistence (optional)
	addrs     []string
	password  string
	keyPrefix string

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithDimension fixes the vector dimension for the engine lifetime. Default: 384.
func WithDimension(dim int) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.Dimension = dim
	})
}

// WithAlpha sets the semantic share of the score blend, in [0,1]. Default: 0.5.
func WithAlpha(alpha float64) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.Alpha = alpha
	})
}

// WithDefaultWeight sets the weight of job attributes without an explicit hint. Default: 1.
func WithDefaultWeight(w float64) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.DefaultWeight = w
	})
}

// WithDefaultK sets the ranking size used when a call passes k = 0. Default: 10.
func WithDefaultK(k int) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.DefaultK = k
	})
}

// WithMaxK caps k per call. Default: 500.
func WithMaxK(k int) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.MaxK = k
	})
}

// WithMaxBatchSize caps the number of items per batch call. Default: 100.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.MaxBatchSize = size
	})
}

// WithWorkers bounds MatchMany parallelism. Default: 8.
func WithWorkers(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.Workers = n
	})
}

// WithIVF switches the index to the inverted-file strategy.
// nlist 0 picks sqrt(population) at each rebuild.
func WithIVF(nlist, nprobe int) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.Strategy = domain.IndexIVF
		c.match.IVFNList = nlist
		c.match.IVFNProbe = nprobe
	})
}

// WithStalenessThreshold sets the mutation share after which an IVF index is
// rebuilt in the background. Default: 0.2.
func WithStalenessThreshold(share float64) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.StalenessThreshold = share
	})
}

// WithQueryDeadline bounds every ranking call. Rankings cut short are
// returned with Partial set. Default: none.
func WithQueryDeadline(d time.Duration) Option {
	return optionFunc(func(c *engineConfig) {
		c.match.QueryDeadline = d
	})
}

// WithEmbedder enables upserts that carry text instead of a vector.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *engineConfig) {
		c.embedder = e
	})
}

// WithRedis enables Save and Load against a Redis or Valkey instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *engineConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the snapshot key prefix. Default: "talentmatch:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *engineConfig) {
		c.keyPrefix = prefix
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithPrometheus registers engine operation metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *engineConfig) {
		c.metricsReg = reg
	})
}
