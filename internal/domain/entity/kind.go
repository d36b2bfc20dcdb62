package entity

// Kind distinguishes the two sides of a match.
type Kind string

const (
	// KindCandidate is a candidate profile extracted from a résumé.
	KindCandidate Kind = "candidate"
	// KindJob is a job posting.
	KindJob Kind = "job"
)

// IsValid checks if the kind is supported.
func (k Kind) IsValid() bool {
	return k == KindCandidate || k == KindJob
}

// Opposite returns the kind an entity of this kind is matched against.
func (k Kind) Opposite() Kind {
	if k == KindJob {
		return KindCandidate
	}
	return KindJob
}
