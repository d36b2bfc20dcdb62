// Package chi is the HTTP transport: hand-written chi handlers over the
// ingestion, matching and admin use cases.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentmatch/internal/domain"
	dombatch "github.com/kailas-cloud/talentmatch/internal/domain/batch"
	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
	dommatch "github.com/kailas-cloud/talentmatch/internal/domain/match"
	"github.com/kailas-cloud/talentmatch/internal/index"
	"github.com/kailas-cloud/talentmatch/internal/logger"
	healthuc "github.com/kailas-cloud/talentmatch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/talentmatch/internal/usecase/ingest"
	matchuc "github.com/kailas-cloud/talentmatch/internal/usecase/match"
	rebuilduc "github.com/kailas-cloud/talentmatch/internal/usecase/rebuild"
	snapshotuc "github.com/kailas-cloud/talentmatch/internal/usecase/snapshot"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the matching API.
type Server struct {
	ingest        *ingestuc.Service
	match         *matchuc.Service
	rebuild       *rebuilduc.Service
	snapshot      *snapshotuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	match *matchuc.Service,
	rebuild *rebuilduc.Service,
	snapshot *snapshotuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:   ingest,
		match:    match,
		rebuild:  rebuild,
		snapshot: snapshot,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidVector, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidEntity, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrPersistenceDisabled, http.StatusNotImplemented, ErrorCodePersistenceDisabled),
	}
	return s
}

// NewRouter mounts the server on a chi router with the standard middleware chain.
func NewRouter(s *Server, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	Use(r, logger)
	s.Routes(r)
	return r
}

// Routes registers the API endpoints.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/entities", func(r chi.Router) {
		r.Post("/batch", s.BatchUpsert)
		r.Put("/{id}", s.UpsertEntity)
		r.Get("/{id}", s.GetEntity)
		r.Delete("/{id}", s.DeleteEntity)
	})
	r.Get("/jobs/{id}/matches", s.MatchJob)
	r.Get("/candidates/{id}/jobs", s.RecommendJobs)
	r.Post("/matches/batch", s.BatchMatch)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/rebuild", s.Rebuild)
		r.Post("/snapshot", s.Snapshot)
		r.Get("/stats", s.Stats)
	})
}

// UpsertEntity handles PUT /entities/{id}.
func (s *Server) UpsertEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req UpsertEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx := ingestuc.WithSource(r.Context(), ingestuc.SourceHTTP)
	e, err := s.ingest.Upsert(ctx, inputFromRequest(id, &req))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entityToResponse(&e, false))
}

// GetEntity handles GET /entities/{id}?include_vector=.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var includeVector *bool
	if err := runtime.BindQueryParameter("form", true, false, "include_vector", r.URL.Query(), &includeVector); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter include_vector")
		return
	}

	e, err := s.ingest.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entityToResponse(&e, includeVector != nil && *includeVector))
}

// DeleteEntity handles DELETE /entities/{id}.
func (s *Server) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	ctx := ingestuc.WithSource(r.Context(), ingestuc.SourceHTTP)
	removed, err := s.ingest.Delete(ctx, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, domain.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchUpsert handles POST /entities/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	var req BatchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Entities) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "entities must not be empty")
		return
	}

	inputs := make([]ingestuc.Input, len(req.Entities))
	for i := range req.Entities {
		inputs[i] = inputFromRequest(req.Entities[i].ID, &req.Entities[i].UpsertEntityRequest)
	}
	ctx := ingestuc.WithSource(r.Context(), ingestuc.SourceHTTP)
	results := s.ingest.UpsertBatch(ctx, inputs)

	resp := BatchUpsertResponse{Items: make([]BatchResultItem, len(results))}
	for i, res := range results {
		item := BatchResultItem{ID: res.ID(), Status: string(res.Status())}
		if res.Err() != nil {
			item.Error = errorBody(res.Err())
			resp.Failed++
		} else {
			rev := res.Value()
			item.Revision = &rev
			resp.Succeeded++
		}
		resp.Items[i] = item
	}
	writeJSON(w, http.StatusOK, resp)
}

// MatchJob handles GET /jobs/{id}/matches?k=.
func (s *Server) MatchJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	k, ok := queryK(w, r)
	if !ok {
		return
	}
	ranking, err := s.match.Match(r.Context(), id, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingToResponse(&ranking))
}

// RecommendJobs handles GET /candidates/{id}/jobs?k=.
func (s *Server) RecommendJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	k, ok := queryK(w, r)
	if !ok {
		return
	}
	ranking, err := s.match.RecommendJobs(r.Context(), id, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingToResponse(&ranking))
}

// BatchMatch handles POST /matches/batch.
func (s *Server) BatchMatch(w http.ResponseWriter, r *http.Request) {
	var req BatchMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	k := 0
	if req.K != nil {
		k = *req.K
	}

	results, err := s.match.MatchMany(r.Context(), req.JobIDs, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := BatchMatchResponse{Items: make([]BatchMatchItem, len(results))}
	for i, res := range results {
		item := BatchMatchItem{JobID: res.ID(), Status: string(res.Status())}
		switch res.Status() {
		case dombatch.StatusError:
			item.Error = errorBody(res.Err())
			resp.Failed++
		case dombatch.StatusPartial:
			resp.Partial++
		default:
			resp.Succeeded++
		}
		if res.Err() == nil {
			ranking := res.Value()
			rr := rankingToResponse(&ranking)
			item.Ranking = &rr
		}
		resp.Items[i] = item
	}
	writeJSON(w, http.StatusOK, resp)
}

// Rebuild handles POST /admin/rebuild.
func (s *Server) Rebuild(w http.ResponseWriter, r *http.Request) {
	stats, err := s.rebuild.Rebuild(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsToResponse(stats))
}

// Snapshot handles POST /admin/snapshot.
func (s *Server) Snapshot(w http.ResponseWriter, r *http.Request) {
	rep, err := s.snapshot.Save(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Written: rep.Written, Removed: rep.Removed})
}

// Stats handles GET /admin/stats.
func (s *Server) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsToResponse(s.rebuild.Stats()))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	resp := HealthResponse{Status: string(report.Status), Checks: checks}
	if ix := report.Index; ix != nil {
		resp.Index = &HealthIndexResponse{
			Generation: ix.Generation,
			Strategy:   ix.Strategy,
			Candidates: ix.Candidates,
			Jobs:       ix.Jobs,
			Staleness:  ix.Staleness,
			LastBuild:  ix.LastBuild,
		}
	}
	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter id")
		return "", false
	}
	return id, true
}

func queryK(w http.ResponseWriter, r *http.Request) (int, bool) {
	var k *int
	if err := runtime.BindQueryParameter("form", true, false, "k", r.URL.Query(), &k); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter k")
		return 0, false
	}
	if k == nil {
		return 0, true
	}
	if *k <= 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "k must be positive")
		return 0, false
	}
	return *k, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// clientSentinels are the errors whose chain is safe to show to clients.
var clientSentinels = []error{
	domain.ErrDimensionMismatch,
	domain.ErrInvalidVector,
	domain.ErrInvalidEntity,
	domain.ErrInvalidRequest,
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors keep their detail; other sentinels collapse to their text.
func safeDomainMessage(err error) string {
	for _, s := range clientSentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	for _, s := range []error{domain.ErrNotFound, domain.ErrEmbeddingProviderError, domain.ErrPersistenceDisabled} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func errorBody(err error) *ErrorResponse {
	return &ErrorResponse{Code: errorCode(err), Message: safeDomainMessage(err)}
}

func errorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, domain.ErrDimensionMismatch):
		return ErrorCodeVectorDimMismatch
	case errors.Is(err, domain.ErrInvalidVector),
		errors.Is(err, domain.ErrInvalidEntity),
		errors.Is(err, domain.ErrInvalidRequest):
		return ErrorCodeValidationFailed
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return ErrorCodeEmbeddingProviderError
	default:
		return ErrorCodeInternalError
	}
}

func inputFromRequest(id string, req *UpsertEntityRequest) ingestuc.Input {
	in := ingestuc.Input{
		ID:         id,
		Kind:       entity.Kind(req.Kind),
		Vector:     req.Vector,
		Attributes: req.Attributes,
		Weights:    req.Weights,
	}
	if req.Text != nil {
		in.Text = *req.Text
	}
	if req.MinScore != nil {
		in.MinScore = *req.MinScore
	}
	return in
}

func entityToResponse(e *entity.Entity, includeVector bool) EntityResponse {
	resp := EntityResponse{
		ID:         e.ID(),
		Kind:       string(e.Kind()),
		Attributes: e.Attributes(),
		Weights:    e.Weights(),
		MinScore:   e.MinScore(),
		Revision:   e.Revision(),
	}
	if resp.Attributes == nil {
		resp.Attributes = []string{}
	}
	if includeVector {
		resp.Vector = e.Vector()
	}
	return resp
}

func rankingToResponse(r *dommatch.Ranking) RankingResponse {
	items := make([]MatchItem, len(r.Results()))
	for i, res := range r.Results() {
		items[i] = MatchItem{
			CandidateID:       res.CandidateID(),
			JobID:             res.JobID(),
			Score:             res.Score(),
			Semantic:          res.Semantic(),
			Coverage:          res.Coverage(),
			Similarity:        res.Similarity(),
			MissingAttributes: res.Missing(),
			Explanation:       res.Explanation(),
			ComputedAt:        res.ComputedAt().UTC(),
		}
	}
	return RankingResponse{
		OriginID:   r.OriginID(),
		OriginKind: string(r.OriginKind()),
		RequestID:  r.RequestID(),
		Partial:    r.Partial(),
		Stage:      string(r.Stage()),
		Items:      items,
	}
}

func statsToResponse(st index.Stats) StatsResponse {
	return StatsResponse{
		Size:        st.Size,
		Candidates:  st.Candidates,
		Jobs:        st.Jobs,
		Generation:  st.Generation,
		Strategy:    string(st.Strategy),
		Lists:       st.Lists,
		Staleness:   st.Staleness,
		LastBuildAt: st.LastBuild.UTC(),
	}
}
