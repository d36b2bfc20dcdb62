package health

import (
	"context"
	"time"

	"github.com/kailas-cloud/talentmatch/internal/index"
)

// Status is the aggregated engine health.
type Status string

// Matching is served from memory, so a failing dependency only degrades.
const (
	Healthy  Status = "ok"
	Degraded Status = "degraded"
)

// CheckResult is the outcome of one component check.
type CheckResult string

// Component check results.
const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
	// CheckStale marks an IVF index due for a rebuild; it still serves.
	CheckStale CheckResult = "stale"
)

// Component names in Report.Checks.
const (
	ComponentIndex     = "index"
	ComponentSnapshots = "snapshots"
	ComponentEmbedding = "embedding"
)

// IndexReport describes the serving index generation.
type IndexReport struct {
	Generation uint64
	Strategy   string
	Candidates int
	Jobs       int
	Staleness  float64
	LastBuild  time.Time
}

// Report is one health evaluation. Index is nil when no index is attached.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Index  *IndexReport
}

// Service evaluates engine health.
type Service struct {
	index     IndexReporter
	snapshots Pinger
	embedding EmbeddingChecker
}

// New creates a Service. The snapshot store and the embedding provider are
// optional and skipped when nil.
func New(snapshots Pinger, embedding EmbeddingChecker) *Service {
	return &Service{snapshots: snapshots, embedding: embedding}
}

// WithIndex attaches the serving index.
func (s *Service) WithIndex(ix IndexReporter) *Service {
	s.index = ix
	return s
}

// Check evaluates every configured component.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult)}

	if s.index != nil {
		st := s.index.Stats()
		r.Index = indexReport(st)
		r.Checks[ComponentIndex] = CheckOK
		if s.index.Stale() {
			r.Checks[ComponentIndex] = CheckStale
		}
	}
	if s.snapshots != nil {
		r.Checks[ComponentSnapshots] = result(s.snapshots.Ping(ctx))
	}
	if s.embedding != nil {
		r.Checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx))
	}

	for _, v := range r.Checks {
		if v == CheckError {
			r.Status = Degraded
			break
		}
	}
	return r
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

func indexReport(st index.Stats) *IndexReport {
	return &IndexReport{
		Generation: st.Generation,
		Strategy:   string(st.Strategy),
		Candidates: st.Candidates,
		Jobs:       st.Jobs,
		Staleness:  st.Staleness,
		LastBuild:  st.LastBuild,
	}
}
