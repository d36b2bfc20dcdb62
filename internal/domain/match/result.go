// Package match holds the value objects produced by a matching request.
package match

import (
	"fmt"
	"strings"
	"time"
)

// Result is one scored candidate/job pair. Ephemeral, never persisted.
type Result struct {
	candidateID string
	jobID       string
	score       float64
	semantic    float64
	coverage    float64
	similarity  float64
	missing     []string
	computedAt  time.Time
}

// NewResult creates a match result.
func NewResult(
	candidateID, jobID string,
	score, semantic, coverage, similarity float64,
	missing []string, computedAt time.Time,
) Result {
	if missing == nil {
		missing = []string{}
	}
	return Result{
		candidateID: candidateID, jobID: jobID,
		score: score, semantic: semantic, coverage: coverage, similarity: similarity,
		missing: missing, computedAt: computedAt,
	}
}

// CandidateID returns the candidate side of the pair.
func (r *Result) CandidateID() string { return r.candidateID }

// JobID returns the job side of the pair.
func (r *Result) JobID() string { return r.jobID }

// Score returns the blended compatibility score (0-100).
func (r *Result) Score() float64 { return r.score }

// Semantic returns the rescaled similarity component (0-100).
func (r *Result) Semantic() float64 { return r.semantic }

// Coverage returns the weighted attribute coverage component (0-100).
func (r *Result) Coverage() float64 { return r.coverage }

// Similarity returns the raw cosine similarity ([-1,1]).
func (r *Result) Similarity() float64 { return r.similarity }

// Missing returns job attributes the candidate lacks, heaviest first.
func (r *Result) Missing() []string { return r.missing }

// ComputedAt returns when the score was computed.
func (r *Result) ComputedAt() time.Time { return r.computedAt }

// Explanation renders a short human-readable summary.
func (r *Result) Explanation() string {
	s := fmt.Sprintf("match: %.2f%%", r.score)
	if len(r.missing) > 0 {
		s += "\nmissing: " + strings.Join(r.missing, ", ")
	}
	return s
}
