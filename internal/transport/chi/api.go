package chi

import "time"

// ErrorCode is a machine-readable error category.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodePersistenceDisabled    ErrorCode = "persistence_disabled"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// UpsertEntityRequest is the body of PUT /entities/{id}. Either vector or text is required.
type UpsertEntityRequest struct {
	Kind       string             `json:"kind"`
	Vector     []float32          `json:"vector,omitempty"`
	Text       *string            `json:"text,omitempty"`
	Attributes []string           `json:"attributes"`
	Weights    map[string]float64 `json:"weights,omitempty"`
	MinScore   *float64           `json:"min_score,omitempty"`
}

// BatchUpsertItem is one entity of POST /entities/batch.
type BatchUpsertItem struct {
	ID string `json:"id"`
	UpsertEntityRequest
}

// BatchUpsertRequest is the body of POST /entities/batch.
type BatchUpsertRequest struct {
	Entities []BatchUpsertItem `json:"entities"`
}

// EntityResponse describes a stored entity.
type EntityResponse struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	Attributes []string           `json:"attributes"`
	Weights    map[string]float64 `json:"weights,omitempty"`
	MinScore   float64            `json:"min_score,omitempty"`
	Revision   uint64             `json:"revision"`
	Vector     []float32          `json:"vector,omitempty"`
}

// BatchResultItem is the per-item outcome of a batch upsert.
type BatchResultItem struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Revision *uint64        `json:"revision,omitempty"`
	Error    *ErrorResponse `json:"error,omitempty"`
}

// BatchUpsertResponse is the body returned by POST /entities/batch.
type BatchUpsertResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// MatchItem is one scored candidate/job pair.
type MatchItem struct {
	CandidateID       string    `json:"candidate_id"`
	JobID             string    `json:"job_id"`
	Score             float64   `json:"score"`
	Semantic          float64   `json:"semantic"`
	Coverage          float64   `json:"coverage"`
	Similarity        float64   `json:"similarity"`
	MissingAttributes []string  `json:"missing_attributes"`
	Explanation       string    `json:"explanation"`
	ComputedAt        time.Time `json:"computed_at"`
}

// RankingResponse is the result of a matching request.
type RankingResponse struct {
	OriginID   string      `json:"origin_id"`
	OriginKind string      `json:"origin_kind"`
	RequestID  string      `json:"request_id"`
	Partial    bool        `json:"partial"`
	Stage      string      `json:"stage"`
	Items      []MatchItem `json:"items"`
}

// BatchMatchRequest is the body of POST /matches/batch.
type BatchMatchRequest struct {
	JobIDs []string `json:"job_ids"`
	K      *int     `json:"k,omitempty"`
}

// BatchMatchItem is the per-job outcome of a batch match.
type BatchMatchItem struct {
	JobID   string           `json:"job_id"`
	Status  string           `json:"status"`
	Ranking *RankingResponse `json:"ranking,omitempty"`
	Error   *ErrorResponse   `json:"error,omitempty"`
}

// BatchMatchResponse is the body returned by POST /matches/batch.
type BatchMatchResponse struct {
	Items     []BatchMatchItem `json:"items"`
	Succeeded int              `json:"succeeded"`
	Partial   int              `json:"partial"`
	Failed    int              `json:"failed"`
}

// StatsResponse describes the serving index generation.
type StatsResponse struct {
	Size        int       `json:"size"`
	Candidates  int       `json:"candidates"`
	Jobs        int       `json:"jobs"`
	Generation  uint64    `json:"generation"`
	Strategy    string    `json:"strategy"`
	Lists       int       `json:"lists"`
	Staleness   float64   `json:"staleness"`
	LastBuildAt time.Time `json:"last_build_at"`
}

// SnapshotResponse is the body returned by POST /admin/snapshot.
type SnapshotResponse struct {
	Written int `json:"written"`
	Removed int `json:"removed"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string               `json:"status"`
	Checks map[string]string    `json:"checks"`
	Index  *HealthIndexResponse `json:"index,omitempty"`
}

// HealthIndexResponse describes the serving index generation.
type HealthIndexResponse struct {
	Generation uint64    `json:"generation"`
	Strategy   string    `json:"strategy"`
	Candidates int       `json:"candidates"`
	Jobs       int       `json:"jobs"`
	Staleness  float64   `json:"staleness"`
	LastBuild  time.Time `json:"last_build"`
}
