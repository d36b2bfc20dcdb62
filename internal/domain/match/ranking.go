package match

import "github.com/kailas-cloud/talentmatch/internal/domain/entity"

// Ranking is the outcome of one matching request.
type Ranking struct {
	originID   string
	originKind entity.Kind
	results    []Result
	partial    bool
	requestID  string
	stage      Stage
}

// NewRanking creates a ranking. partial marks a request cut short by the query deadline.
func NewRanking(
	originID string, originKind entity.Kind, results []Result,
	partial bool, requestID string, stage Stage,
) Ranking {
	if results == nil {
		results = []Result{}
	}
	return Ranking{
		originID: originID, originKind: originKind, results: results,
		partial: partial, requestID: requestID, stage: stage,
	}
}

// OriginID returns the job (or candidate) the ranking was computed for.
func (r *Ranking) OriginID() string { return r.originID }

// OriginKind returns the kind of the origin entity.
func (r *Ranking) OriginKind() entity.Kind { return r.originKind }

// Results returns scored matches, best first.
func (r *Ranking) Results() []Result { return r.results }

// Partial reports whether the query deadline cut the request short.
func (r *Ranking) Partial() bool { return r.partial }

// RequestID returns the request correlation id.
func (r *Ranking) RequestID() string { return r.requestID }

// Stage returns the final stage of the request.
func (r *Ranking) Stage() Stage { return r.stage }
