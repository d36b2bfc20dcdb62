// Package scorer blends cosine similarity with weighted attribute coverage
// into a bounded 0-100 compatibility score.
package scorer

import (
	"errors"
	"math"

	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// Score is the breakdown of one candidate/job pair.
type Score struct {
	Total    float64
	Semantic float64
	Coverage float64
}

// Scorer computes match scores. Immutable and safe for concurrent use.
type Scorer struct {
	alpha         float64
	defaultWeight float64
}

// New creates a Scorer. alpha is the semantic share of the blend in [0,1];
// defaultWeight applies to job attributes without an explicit hint.
func New(alpha, defaultWeight float64) (*Scorer, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, errors.New("alpha must be between 0 and 1")
	}
	if math.IsNaN(defaultWeight) || math.IsInf(defaultWeight, 0) || defaultWeight <= 0 {
		return nil, errors.New("default weight must be a positive number")
	}
	return &Scorer{alpha: alpha, defaultWeight: defaultWeight}, nil
}

// Alpha returns the blend factor.
func (s *Scorer) Alpha() float64 { return s.alpha }

// DefaultWeight returns the weight of attributes without a hint.
func (s *Scorer) DefaultWeight() float64 { return s.defaultWeight }

// Score rates a candidate against a job given their cosine similarity.
func (s *Scorer) Score(similarity float64, candidate, job *entity.Entity) Score {
	sem := Semantic(similarity)
	cov := s.Coverage(candidate, job)
	return Score{
		Total:    clamp(s.alpha*sem + (1-s.alpha)*cov),
		Semantic: sem,
		Coverage: cov,
	}
}

// Semantic rescales a cosine similarity from [-1,1] to [0,100].
func Semantic(similarity float64) float64 {
	if math.IsNaN(similarity) {
		return 0
	}
	return clamp((similarity + 1) / 2 * 100)
}

// Coverage is the weighted share of job attributes the candidate holds, 0-100.
// A job without attributes is fully covered.
func (s *Scorer) Coverage(candidate, job *entity.Entity) float64 {
	attrs := job.Attributes()
	if len(attrs) == 0 {
		return 100
	}
	var total, covered float64
	for _, a := range attrs {
		w := job.Weight(a, s.defaultWeight)
		total += w
		if candidate.HasAttribute(a) {
			covered += w
		}
	}
	if total == 0 {
		return 100
	}
	return clamp(covered / total * 100)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
