// Package gap reports the job requirements a candidate does not meet.
package gap

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// Missing returns the job attributes absent from the candidate, heaviest first,
// ties by name. The result is never nil.
func Missing(candidate, job *entity.Entity, defaultWeight float64) []string {
	out := make([]string, 0, len(job.Attributes()))
	for _, a := range job.Attributes() {
		if !candidate.HasAttribute(a) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b string) int {
		if c := cmp.Compare(job.Weight(b, defaultWeight), job.Weight(a, defaultWeight)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return out
}
