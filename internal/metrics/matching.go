package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "talentmatch"

// Matching engine metrics.
var (
	MatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_requests_total",
			Help:      "Matching requests by operation and final outcome",
		},
		[]string{"operation", "outcome"}, // outcome: done / partial / failed
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Matching request duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	MatchInconsistentHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_inconsistent_hits_total",
			Help:      "Index hits skipped because the catalog disagreed",
		},
	)

	IndexEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entities",
			Help:      "Indexed entities by kind",
		},
		[]string{"kind"},
	)

	IndexRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rebuilds_total",
			Help:      "Index generation rebuilds",
		},
		[]string{"result"}, // "ok" / "error"
	)

	IndexRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	IngestEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_events_total",
			Help:      "Ingestion operations by source and result",
		},
		[]string{"source", "result"}, // source: http / kafka / snapshot / sdk
	)

	KafkaMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_total",
			Help:      "Consumed entity events by handling result",
		},
		[]string{"result"}, // applied / poison / rejected / failed
	)
)

var registerOnce sync.Once

// Register registers the matching, embedding and HTTP metrics with the default
// registry. Must be called from main; safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MatchRequestsTotal,
			MatchDuration,
			MatchInconsistentHitsTotal,
			IndexEntities,
			IndexRebuildsTotal,
			IndexRebuildDuration,
			IngestEventsTotal,
			KafkaMessagesTotal,
		)
		prometheus.MustRegister(embeddingCollectors()...)
		prometheus.MustRegister(httpCollectors()...)
	})
}
