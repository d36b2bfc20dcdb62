package entity

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/talentmatch/internal/db"
	domentity "github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// Hash field names.
const (
	fieldKind       = "kind"
	fieldVector     = "vector"
	fieldAttributes = "attributes"
	fieldWeights    = "weights"
	fieldMinScore   = "min_score"
	fieldRevision   = "revision"
)

// buildHashFields converts an entity into a flat map for HSET.
// The vector is stored as little-endian float32 bytes.
func buildHashFields(e *domentity.Entity) (map[string]string, error) {
	attrs, err := json.Marshal(e.Attributes())
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	m := map[string]string{
		fieldKind:       string(e.Kind()),
		fieldVector:     string(db.EncodeVector(e.Vector())),
		fieldAttributes: string(attrs),
		fieldMinScore:   strconv.FormatFloat(e.MinScore(), 'f', -1, 64),
		fieldRevision:   strconv.FormatUint(e.Revision(), 10),
	}
	if len(e.Weights()) > 0 {
		w, err := json.Marshal(e.Weights())
		if err != nil {
			return nil, fmt.Errorf("marshal weights: %w", err)
		}
		m[fieldWeights] = string(w)
	}
	return m, nil
}

// parseHashFields converts a stored hash back into an entity without validation;
// callers re-validate through ingestion.
func parseHashFields(id string, m map[string]string) (domentity.Entity, error) {
	kind := domentity.Kind(m[fieldKind])
	if !kind.IsValid() {
		return domentity.Entity{}, fmt.Errorf("entity %s: unknown kind %q", id, m[fieldKind])
	}

	vec, err := db.DecodeVector([]byte(m[fieldVector]))
	if err != nil {
		return domentity.Entity{}, fmt.Errorf("entity %s: %w", id, err)
	}

	var attrs []string
	if raw := m[fieldAttributes]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			return domentity.Entity{}, fmt.Errorf("entity %s: attributes: %w", id, err)
		}
	}

	var weights map[string]float64
	if raw := m[fieldWeights]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &weights); err != nil {
			return domentity.Entity{}, fmt.Errorf("entity %s: weights: %w", id, err)
		}
	}

	var minScore float64
	if raw := m[fieldMinScore]; raw != "" {
		if minScore, err = strconv.ParseFloat(raw, 64); err != nil {
			return domentity.Entity{}, fmt.Errorf("entity %s: min_score: %w", id, err)
		}
	}

	var revision uint64
	if raw := m[fieldRevision]; raw != "" {
		if revision, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return domentity.Entity{}, fmt.Errorf("entity %s: revision: %w", id, err)
		}
	}

	return domentity.Reconstruct(id, kind, vec, attrs, weights, minScore, revision), nil
}
