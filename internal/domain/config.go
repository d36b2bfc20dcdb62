package domain

import "time"

// IndexStrategy selects how the vector index answers nearest-neighbor queries.
type IndexStrategy string

const (
	// IndexExact scans every vector on each query.
	IndexExact IndexStrategy = "exact"
	// IndexIVF probes a subset of k-means clusters (inverted file).
	IndexIVF IndexStrategy = "ivf"
)

// IsValid checks if the strategy is supported.
func (s IndexStrategy) IsValid() bool {
	return s == IndexExact || s == IndexIVF
}

// MatchConfig holds the engine tuning knobs. Alpha and DefaultWeight are the
// scoring parameters; the rest bound resource usage.
type MatchConfig struct {
	Dimension          int
	Alpha              float64
	DefaultWeight      float64
	DefaultK           int
	MaxK               int
	MaxBatchSize       int
	Workers            int
	QueryDeadline      time.Duration // 0 = none
	Strategy           IndexStrategy
	IVFNList           int // 0 = sqrt(population)
	IVFNProbe          int
	StalenessThreshold float64
	Shards             int
}

// DefaultMatchConfig returns defaults sized for all-MiniLM-L6-v2 style 384-d embeddings.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Dimension:          384,
		Alpha:              0.5,
		DefaultWeight:      1.0,
		DefaultK:           10,
		MaxK:               500,
		MaxBatchSize:       100,
		Workers:            8,
		Strategy:           IndexExact,
		IVFNProbe:          4,
		StalenessThreshold: 0.2,
		Shards:             16,
	}
}
