package index

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/talentmatch/internal/domain"
)

func validate(vec []float32, dim int) error {
	if len(vec) != dim {
		return domain.NewDimensionError(dim, len(vec))
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is not finite", domain.ErrInvalidVector, i)
		}
	}
	return nil
}

// unit returns a unit-length copy of vec, or nil for the zero vector.
func unit(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return nil
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// cosine of two unit vectors; nil (zero vector) yields 0.
func cosine(a, b []float32) float64 {
	if a == nil || b == nil {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return math.Max(-1, math.Min(1, dot))
}

// Cosine returns the cosine similarity of two raw vectors of equal length,
// clamped to [-1,1]. A zero vector yields 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(unit(a), unit(b))
}
