package entity

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"

	"github.com/kailas-cloud/talentmatch/internal/domain"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// MaxIDLength is the maximum entity identifier length.
const MaxIDLength = 256

// Entity is a candidate or job posting aggregate (immutable value object).
// Vector and attributes are always replaced together.
type Entity struct {
	id         string
	kind       Kind
	vector     []float32
	attributes []string // normalized, sorted, unique
	weights    map[string]float64
	minScore   float64
	revision   uint64
}

// New validates and creates an Entity.
// ID: ^[a-zA-Z0-9_.:-]+$, 1-256 chars. Vector components must be finite; the
// dimension is checked by the index owner. Weights are allowed on jobs only,
// must be positive and must reference attributes of the entity.
// Errors wrap domain.ErrInvalidVector or domain.ErrInvalidEntity.
func New(
	id string, kind Kind, vector []float32,
	attributes []string, weights map[string]float64, minScore float64,
) (Entity, error) {
	if err := ValidateVector(vector); err != nil {
		return Entity{}, err
	}
	e, err := newEntity(id, kind, vector, attributes, weights, minScore)
	if err != nil {
		return Entity{}, fmt.Errorf("%w: %w", domain.ErrInvalidEntity, err)
	}
	return e, nil
}

// ValidateVector rejects empty vectors and non-finite components.
func ValidateVector(vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: vector is empty", domain.ErrInvalidVector)
	}
	for i, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is not finite", domain.ErrInvalidVector, i)
		}
	}
	return nil
}

func newEntity(
	id string, kind Kind, vector []float32,
	attributes []string, weights map[string]float64, minScore float64,
) (Entity, error) {
	if err := ValidateID(id); err != nil {
		return Entity{}, err
	}
	if !kind.IsValid() {
		return Entity{}, fmt.Errorf("invalid kind %q", kind)
	}
	attrs := NormalizeAttributes(attributes)

	w, err := normalizeWeights(kind, attrs, weights)
	if err != nil {
		return Entity{}, err
	}

	if math.IsNaN(minScore) || minScore < 0 || minScore > 100 {
		return Entity{}, fmt.Errorf("min_score must be between 0 and 100")
	}
	if minScore > 0 && kind != KindJob {
		return Entity{}, fmt.Errorf("min_score is only allowed on jobs")
	}

	return Entity{
		id:         id,
		kind:       kind,
		vector:     slices.Clone(vector),
		attributes: attrs,
		weights:    w,
		minScore:   minScore,
	}, nil
}

// Reconstruct creates an Entity without validation (storage hydration).
func Reconstruct(
	id string, kind Kind, vector []float32,
	attributes []string, weights map[string]float64, minScore float64, revision uint64,
) Entity {
	return Entity{
		id: id, kind: kind, vector: vector, attributes: attributes,
		weights: weights, minScore: minScore, revision: revision,
	}
}

// ValidateID checks the identifier format.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("entity ID is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("entity ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("entity ID must be alphanumeric with underscores, dots, colons and hyphens")
	}
	return nil
}

// ID returns the entity identifier.
func (e *Entity) ID() string { return e.id }

// Kind returns the entity kind.
func (e *Entity) Kind() Kind { return e.kind }

// Vector returns the embedding vector. Callers must not modify it.
func (e *Entity) Vector() []float32 { return e.vector }

// Attributes returns the normalized, sorted attribute set. Callers must not modify it.
func (e *Entity) Attributes() []string { return e.attributes }

// Weights returns the explicit per-attribute weight hints (may be nil).
func (e *Entity) Weights() map[string]float64 { return e.weights }

// MinScore returns the job's minimum acceptable match score (0 = none).
func (e *Entity) MinScore() float64 { return e.minScore }

// Revision returns the ingestion sequence number of this entity state.
func (e *Entity) Revision() uint64 { return e.revision }

// HasAttribute reports whether the normalized attribute is in the set.
func (e *Entity) HasAttribute(attr string) bool {
	_, ok := slices.BinarySearch(e.attributes, attr)
	return ok
}

// Weight returns the hint for attr, or def when none was given.
func (e *Entity) Weight(attr string, def float64) float64 {
	if w, ok := e.weights[attr]; ok {
		return w
	}
	return def
}

// WithRevision returns a copy stamped with the given revision.
func (e *Entity) WithRevision(rev uint64) Entity {
	c := *e
	c.revision = rev
	return c
}

// Equal reports whether two entities carry the same state, ignoring revision.
func (e *Entity) Equal(o *Entity) bool {
	return e.id == o.id && e.kind == o.kind && e.minScore == o.minScore &&
		slices.Equal(e.vector, o.vector) &&
		slices.Equal(e.attributes, o.attributes) &&
		maps.Equal(e.weights, o.weights)
}

func normalizeWeights(kind Kind, attrs []string, weights map[string]float64) (map[string]float64, error) {
	if len(weights) == 0 {
		return nil, nil
	}
	if kind != KindJob {
		return nil, fmt.Errorf("weights are only allowed on jobs")
	}
	out := make(map[string]float64, len(weights))
	for k, w := range weights {
		n := NormalizeAttribute(k)
		if _, ok := slices.BinarySearch(attrs, n); !ok {
			return nil, fmt.Errorf("weight for unknown attribute %q", k)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return nil, fmt.Errorf("weight for %q must be a positive number", k)
		}
		if _, dup := out[n]; dup {
			return nil, fmt.Errorf("more than one weight for attribute %q", n)
		}
		out[n] = w
	}
	return out, nil
}
