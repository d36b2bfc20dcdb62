package match

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/talentmatch/internal/catalog"
	"github.com/kailas-cloud/talentmatch/internal/domain"
	"github.com/kailas-cloud/talentmatch/internal/domain/batch"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	dommatch "github.com/kailas-cloud/talentmatch/internal/domain/match"
	"github.com/kailas-cloud/talentmatch/internal/domain/match/scorer"
	"github.com/kailas-cloud/talentmatch/internal/index"
	"github.com/kailas-cloud/talentmatch/internal/metrics"
)

// --- Fixtures ---

type fixture struct {
	cat *catalog.Catalog
	idx *index.Index
	svc *Service
	rev uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	idx, err := index.New(index.Config{Dimension: 2})
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	sc, err := scorer.New(0.5, 1)
	if err != nil {
		t.Fatalf("scorer.New: %v", err)
	}
	cat := catalog.New(4)
	return &fixture{cat: cat, idx: idx, svc: New(cat, idx, sc)}
}

func (f *fixture) put(t *testing.T, id string, kind entity.Kind, vec []float32, attrs []string, weights map[string]float64, minScore float64) {
	t.Helper()
	e, err := entity.New(id, kind, vec, attrs, weights, minScore)
	if err != nil {
		t.Fatalf("entity.New(%s): %v", id, err)
	}
	f.rev++
	f.cat.Put(e.WithRevision(f.rev))
	if err := f.idx.Insert(id, kind, vec, f.rev); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

// J1 {python:2, docker:1} and C1 {python} at cosine 0.8.
func (f *fixture) seedExample(t *testing.T) {
	t.Helper()
	f.put(t, "J1", entity.KindJob, []float32{1, 0}, []string{"python", "docker"}, map[string]float64{"python": 2}, 0)
	f.put(t, "C1", entity.KindCandidate, []float32{0.8, 0.6}, []string{"python"}, nil, 0)
}

func near(a, b float64) bool { return math.Abs(a-b) < 0.01 }

// blockingIndex returns its hits only after ctx is done. With cut set it
// reports the context error alongside them, like a scan stopped midway.
type blockingIndex struct {
	hits []index.Hit
	cut  bool
}

func (b *blockingIndex) Search(ctx context.Context, _ []float32, _ int, _ entity.Kind) ([]index.Hit, error) {
	<-ctx.Done()
	if b.hits != nil && !b.cut {
		return b.hits, nil
	}
	return b.hits, ctx.Err()
}

// --- Match ---

func TestMatch_WorkedExample(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)

	r, err := f.svc.Match(context.Background(), "J1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Results()) != 1 {
		t.Fatalf("expected 1 result, got %d", len(r.Results()))
	}
	res := r.Results()[0]
	if res.CandidateID() != "C1" || res.JobID() != "J1" {
		t.Errorf("unexpected pair %s/%s", res.CandidateID(), res.JobID())
	}
	if !near(res.Semantic(), 90) || !near(res.Coverage(), 66.67) || !near(res.Score(), 78.33) {
		t.Errorf("expected 90/66.67/78.33, got %.2f/%.2f/%.2f", res.Semantic(), res.Coverage(), res.Score())
	}
	if fmt.Sprint(res.Missing()) != "[docker]" {
		t.Errorf("expected [docker], got %v", res.Missing())
	}
	if r.Stage() != dommatch.StageDone || r.Partial() || r.RequestID() == "" {
		t.Errorf("unexpected ranking state: stage=%s partial=%v id=%q", r.Stage(), r.Partial(), r.RequestID())
	}
}

func TestMatch_ExcludesJobsAndOrdersByScore(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	f.put(t, "J2", entity.KindJob, []float32{1, 0}, []string{"python"}, nil, 0)
	f.put(t, "C3", entity.KindCandidate, []float32{0.8, 0.6}, []string{"python", "docker"}, nil, 0)
	f.put(t, "C2", entity.KindCandidate, []float32{0.8, 0.6}, []string{"python", "docker"}, nil, 0)
	f.put(t, "C4", entity.KindCandidate, []float32{-1, 0}, nil, nil, 0)

	r, err := f.svc.Match(context.Background(), "J1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, res := range r.Results() {
		ids = append(ids, res.CandidateID())
	}
	if want := "[C2 C3 C1 C4]"; fmt.Sprint(ids) != want {
		t.Errorf("expected %s, got %v", want, ids)
	}
}

func TestMatch_Truncates(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	f.put(t, "C2", entity.KindCandidate, []float32{1, 0}, nil, nil, 0)

	r, err := f.svc.Match(context.Background(), "J1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Results()) != 1 || r.Results()[0].CandidateID() != "C2" {
		t.Errorf("expected only C2, got %d results", len(r.Results()))
	}
}

func TestMatch_RequestErrors(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	f.svc.WithLimits(1, 20, 0)

	tests := []struct {
		name    string
		id      string
		k       int
		wantErr error
	}{
		{"missing job", "nope", 5, domain.ErrNotFound},
		{"candidate id", "C1", 5, domain.ErrInvalidRequest},
		{"negative k", "J1", -1, domain.ErrInvalidRequest},
		{"k above max", "J1", 21, domain.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Match(context.Background(), tt.id, tt.k)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMatch_DefaultK(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	f.put(t, "C2", entity.KindCandidate, []float32{1, 0}, nil, nil, 0)
	f.svc.WithLimits(1, 0, 0)

	r, err := f.svc.Match(context.Background(), "J1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Results()) != 1 {
		t.Errorf("expected default k of 1, got %d results", len(r.Results()))
	}
}

func TestMatch_MinScoreFilter(t *testing.T) {
	f := newFixture(t)
	f.put(t, "J1", entity.KindJob, []float32{1, 0}, []string{"python"}, nil, 80)
	f.put(t, "C1", entity.KindCandidate, []float32{1, 0}, []string{"python"}, nil, 0)
	f.put(t, "C2", entity.KindCandidate, []float32{0, 1}, nil, nil, 0)

	r, err := f.svc.Match(context.Background(), "J1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Results()) != 1 || r.Results()[0].CandidateID() != "C1" {
		t.Errorf("expected only C1 above min score, got %d results", len(r.Results()))
	}
}

func TestMatch_SkipsInconsistentHits(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	// indexed but absent from the catalog
	if err := f.idx.Insert("ghost", entity.KindCandidate, []float32{1, 0}, 99); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// kind disagrees between index and catalog
	jx, _ := entity.New("X", entity.KindJob, []float32{1, 0}, nil, nil, 0)
	f.cat.Put(jx.WithRevision(100))
	if err := f.idx.Insert("X", entity.KindCandidate, []float32{1, 0}, 100); err != nil {
		t.Fatalf("insert: %v", err)
	}

	before := testutil.ToFloat64(metrics.MatchInconsistentHitsTotal)
	r, err := f.svc.Match(context.Background(), "J1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Results()) != 1 || r.Results()[0].CandidateID() != "C1" {
		t.Errorf("expected only C1, got %d results", len(r.Results()))
	}
	if got := testutil.ToFloat64(metrics.MatchInconsistentHitsTotal) - before; got != 2 {
		t.Errorf("expected 2 inconsistent hits, got %v", got)
	}
}

func TestMatch_RecomputesMovedRevision(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	// catalog moved C1 to an orthogonal vector after the index saw it
	moved, _ := entity.New("C1", entity.KindCandidate, []float32{0, 1}, []string{"python"}, nil, 0)
	f.cat.Put(moved.WithRevision(50))

	r, err := f.svc.Match(context.Background(), "J1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := r.Results()[0]
	if !near(res.Similarity(), 0) || !near(res.Semantic(), 50) {
		t.Errorf("expected recomputed similarity 0, got %.3f (sem %.2f)", res.Similarity(), res.Semantic())
	}
}

func TestMatch_DeadlineReturnsPartial(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)

	tests := []struct {
		name string
		idx  *blockingIndex
	}{
		{"during search", &blockingIndex{}},
		{"during join", &blockingIndex{hits: []index.Hit{{ID: "C1", Kind: entity.KindCandidate, Similarity: 0.8, Revision: 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, _ := scorer.New(0.5, 1)
			svc := New(f.cat, tt.idx, sc).WithQueryDeadline(10 * time.Millisecond)

			r, err := svc.Match(context.Background(), "J1", 5)
			if err != nil {
				t.Fatalf("expected partial ranking, got error %v", err)
			}
			if !r.Partial() || r.Stage() != dommatch.StageDone {
				t.Errorf("expected partial done ranking, got partial=%v stage=%s", r.Partial(), r.Stage())
			}
		})
	}
}

func TestMatch_DeadlineKeepsRankedHits(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	sc, _ := scorer.New(0.5, 1)
	idx := &blockingIndex{
		hits: []index.Hit{{ID: "C1", Kind: entity.KindCandidate, Similarity: 0.8, Revision: 2}},
		cut:  true,
	}
	svc := New(f.cat, idx, sc).WithQueryDeadline(10 * time.Millisecond)

	r, err := svc.Match(context.Background(), "J1", 5)
	if err != nil {
		t.Fatalf("expected partial ranking, got error %v", err)
	}
	if !r.Partial() {
		t.Error("expected partial ranking")
	}
	if len(r.Results()) != 1 || r.Results()[0].CandidateID() != "C1" || !near(r.Results()[0].Score(), 78.33) {
		t.Errorf("expected C1 at 78.33 kept after deadline, got %d results", len(r.Results()))
	}
}

func TestMatch_CallerCancel(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	sc, _ := scorer.New(0.5, 1)
	svc := New(f.cat, &blockingIndex{}, sc).WithQueryDeadline(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Match(ctx, "J1", 5); !errors.Is(err, context.Canceled) {
		t.Errorf("expected canceled, got %v", err)
	}
}

func TestMatch_ComputedAtUsesClock(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.svc.WithClock(func() time.Time { return at })

	r, err := f.svc.Match(context.Background(), "J1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Results()[0].ComputedAt().Equal(at) {
		t.Errorf("expected %v, got %v", at, r.Results()[0].ComputedAt())
	}
}

func TestMatch_CountsOutcome(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	done := metrics.MatchRequestsTotal.WithLabelValues(OpMatch, "done")
	failed := metrics.MatchRequestsTotal.WithLabelValues(OpMatch, "failed")
	doneBefore, failedBefore := testutil.ToFloat64(done), testutil.ToFloat64(failed)

	_, _ = f.svc.Match(context.Background(), "J1", 5)
	_, _ = f.svc.Match(context.Background(), "nope", 5)

	if got := testutil.ToFloat64(done) - doneBefore; got != 1 {
		t.Errorf("expected 1 done, got %v", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("expected 1 failed, got %v", got)
	}
}

// --- RecommendJobs ---

func TestRecommendJobs(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	f.put(t, "J0", entity.KindJob, []float32{0.8, 0.6}, []string{"python"}, nil, 0)

	r, err := f.svc.RecommendJobs(context.Background(), "C1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.OriginKind() != entity.KindCandidate || len(r.Results()) != 2 {
		t.Fatalf("unexpected ranking: kind=%s results=%d", r.OriginKind(), len(r.Results()))
	}
	first, second := r.Results()[0], r.Results()[1]
	if first.JobID() != "J0" || !near(first.Score(), 100) {
		t.Errorf("expected J0 at 100, got %s at %.2f", first.JobID(), first.Score())
	}
	if second.JobID() != "J1" || !near(second.Score(), 78.33) {
		t.Errorf("expected J1 at 78.33, got %s at %.2f", second.JobID(), second.Score())
	}

	if _, err := f.svc.RecommendJobs(context.Background(), "J1", 5); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected invalid request for job id, got %v", err)
	}
}

func TestRecommendJobs_AppliesJobMinScore(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	// J2 requires 80; C1 scores 78.33 against it like against J1
	f.put(t, "J2", entity.KindJob, []float32{1, 0}, []string{"python", "docker"}, map[string]float64{"python": 2}, 80)

	r, err := f.svc.RecommendJobs(context.Background(), "C1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Results()) != 1 {
		t.Fatalf("expected 1 result, got %d", len(r.Results()))
	}
	res := r.Results()[0]
	if res.JobID() != "J1" || res.CandidateID() != "C1" {
		t.Errorf("unexpected pair %s/%s", res.CandidateID(), res.JobID())
	}
	if fmt.Sprint(res.Missing()) != "[docker]" {
		t.Errorf("expected [docker], got %v", res.Missing())
	}
}

func TestRecommendJobs_TiesByJobID(t *testing.T) {
	f := newFixture(t)
	f.put(t, "C1", entity.KindCandidate, []float32{1, 0}, []string{"go"}, nil, 0)
	f.put(t, "J3", entity.KindJob, []float32{1, 0}, []string{"go"}, nil, 0)
	f.put(t, "J1", entity.KindJob, []float32{1, 0}, []string{"go"}, nil, 0)
	f.put(t, "J2", entity.KindJob, []float32{1, 0}, []string{"go"}, nil, 0)

	r, err := f.svc.RecommendJobs(context.Background(), "C1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, res := range r.Results() {
		ids = append(ids, res.JobID())
	}
	if want := "[J1 J2 J3]"; fmt.Sprint(ids) != want {
		t.Errorf("expected %s, got %v", want, ids)
	}
}

// --- MatchMany ---

func TestMatchMany_IsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	f.put(t, "J2", entity.KindJob, []float32{0, 1}, nil, nil, 0)
	f.svc.WithWorkers(2)

	results, err := f.svc.MatchMany(context.Background(), []string{"J1", "missing", "J2"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"J1", "missing", "J2"} {
		if results[i].ID() != want {
			t.Errorf("position %d: expected %s, got %s", i, want, results[i].ID())
		}
	}
	if results[0].Status() != batch.StatusOK {
		t.Errorf("expected J1 ok, got %s", results[0].Status())
	}
	r := results[0].Value()
	if len(r.Results()) != 1 || !near(r.Results()[0].Score(), 78.33) {
		t.Errorf("unexpected J1 ranking")
	}
	if results[1].Status() != batch.StatusError || !errors.Is(results[1].Err(), domain.ErrNotFound) {
		t.Errorf("expected not found for missing, got %s %v", results[1].Status(), results[1].Err())
	}
	if results[2].Status() != batch.StatusOK {
		t.Errorf("expected J2 ok, got %s", results[2].Status())
	}
}

func TestMatchMany_Partial(t *testing.T) {
	f := newFixture(t)
	f.seedExample(t)
	sc, _ := scorer.New(0.5, 1)
	svc := New(f.cat, &blockingIndex{}, sc).WithQueryDeadline(5 * time.Millisecond)

	results, err := svc.MatchMany(context.Background(), []string{"J1"}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Status() != batch.StatusPartial {
		t.Errorf("expected partial, got %s", results[0].Status())
	}
}

func TestMatchMany_RequestErrors(t *testing.T) {
	f := newFixture(t)
	f.svc.WithLimits(0, 10, 2)

	if _, err := f.svc.MatchMany(context.Background(), []string{"a", "b", "c"}, 5); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected invalid request for oversized batch, got %v", err)
	}
	if _, err := f.svc.MatchMany(context.Background(), []string{"a"}, 11); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected invalid request for k, got %v", err)
	}
	results, err := f.svc.MatchMany(context.Background(), nil, 5)
	if err != nil || len(results) != 0 {
		t.Errorf("expected empty result, got %v %v", results, err)
	}
}
