package talentmatch

import (
	"maps"
	"slices"
	"time"

	dombatch "github.com/kailas-cloud/talentmatch/internal/domain/batch"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	dommatch "github.com/kailas-cloud/talentmatch/internal/domain/match"
	"github.com/kailas-cloud/talentmatch/internal/index"
	ingestuc "github.com/kailas-cloud/talentmatch/internal/usecase/ingest"
)

// Kind distinguishes candidates from jobs.
type Kind string

// Entity kinds.
const (
	KindCandidate Kind = "candidate"
	KindJob       Kind = "job"
)

// Entity is a candidate or job as stored by the engine.
// On upsert either Vector or Text must be set; Text needs WithEmbedder.
// Revision is assigned by the engine and ignored on input.
type Entity struct {
	ID         string
	Kind       Kind
	Vector     []float32
	Text       string
	Attributes []string
	Weights    map[string]float64
	MinScore   float64
	Revision   uint64
}

// Match is one scored candidate/job pair.
type Match struct {
	CandidateID string
	JobID       string
	Score       float64
	Semantic    float64
	Coverage    float64
	Similarity  float64
	Missing     []string
	Explanation string
	ComputedAt  time.Time
}

// Ranking is the ordered result of one matching call.
type Ranking struct {
	OriginID   string
	OriginKind Kind
	RequestID  string
	// Partial is set when the query deadline cut the ranking short.
	Partial bool
	Stage   string
	Matches []Match
}

// BatchStatus is the outcome of one batch item.
type BatchStatus string

// Batch item statuses.
const (
	BatchOK      BatchStatus = "ok"
	BatchPartial BatchStatus = "partial"
	BatchError   BatchStatus = "error"
)

// MatchManyItem is the result for one job of MatchMany, in input order.
type MatchManyItem struct {
	JobID   string
	Status  BatchStatus
	Ranking Ranking
	Err     error
}

// UpsertManyItem is the result for one entity of UpsertEntities, in input order.
type UpsertManyItem struct {
	ID       string
	Status   BatchStatus
	Revision uint64
	Err      error
}

// Stats describes the serving index generation.
type Stats struct {
	Size       int
	Candidates int
	Jobs       int
	Generation uint64
	Strategy   string
	Lists      int
	Staleness  float64
	LastBuild  time.Time
}

// RestoreReport summarizes Restore and Load.
type RestoreReport struct {
	Loaded  int
	Skipped map[string]error
}

// SaveReport summarizes Save.
type SaveReport struct {
	Written int
	Removed int
}

func toInput(e *Entity) ingestuc.Input {
	return ingestuc.Input{
		ID:         e.ID,
		Kind:       entity.Kind(e.Kind),
		Vector:     e.Vector,
		Text:       e.Text,
		Attributes: e.Attributes,
		Weights:    e.Weights,
		MinScore:   e.MinScore,
	}
}

func fromEntity(e *entity.Entity) Entity {
	return Entity{
		ID:         e.ID(),
		Kind:       Kind(e.Kind()),
		Vector:     slices.Clone(e.Vector()),
		Attributes: slices.Clone(e.Attributes()),
		Weights:    maps.Clone(e.Weights()),
		MinScore:   e.MinScore(),
		Revision:   e.Revision(),
	}
}

func toEntity(e *Entity) entity.Entity {
	return entity.Reconstruct(e.ID, entity.Kind(e.Kind),
		slices.Clone(e.Vector), slices.Clone(e.Attributes), maps.Clone(e.Weights), e.MinScore, e.Revision)
}

func fromRanking(r *dommatch.Ranking) Ranking {
	matches := make([]Match, len(r.Results()))
	for i, res := range r.Results() {
		matches[i] = Match{
			CandidateID: res.CandidateID(),
			JobID:       res.JobID(),
			Score:       res.Score(),
			Semantic:    res.Semantic(),
			Coverage:    res.Coverage(),
			Similarity:  res.Similarity(),
			Missing:     res.Missing(),
			Explanation: res.Explanation(),
			ComputedAt:  res.ComputedAt(),
		}
	}
	return Ranking{
		OriginID:   r.OriginID(),
		OriginKind: Kind(r.OriginKind()),
		RequestID:  r.RequestID(),
		Partial:    r.Partial(),
		Stage:      string(r.Stage()),
		Matches:    matches,
	}
}

func fromStats(st index.Stats) Stats {
	return Stats{
		Size:       st.Size,
		Candidates: st.Candidates,
		Jobs:       st.Jobs,
		Generation: st.Generation,
		Strategy:   string(st.Strategy),
		Lists:      st.Lists,
		Staleness:  st.Staleness,
		LastBuild:  st.LastBuild,
	}
}

func fromStatus(s dombatch.ItemStatus) BatchStatus {
	return BatchStatus(s)
}
