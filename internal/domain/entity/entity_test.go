package entity

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/talentmatch/internal/domain"
)

func TestNew_Valid(t *testing.T) {
	e, err := New("job-1", KindJob, []float32{0.1, 0.2},
		[]string{" Python ", "docker", "python", ""},
		map[string]float64{"PYTHON": 2}, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID() != "job-1" {
		t.Errorf("ID() = %q", e.ID())
	}
	if e.Kind() != KindJob {
		t.Errorf("Kind() = %q", e.Kind())
	}
	if !slices.Equal(e.Attributes(), []string{"docker", "python"}) {
		t.Errorf("Attributes() = %v", e.Attributes())
	}
	if e.Weight("python", 1) != 2 {
		t.Errorf("Weight(python) = %v", e.Weight("python", 1))
	}
	if e.Weight("docker", 1) != 1 {
		t.Errorf("Weight(docker) = %v, want default", e.Weight("docker", 1))
	}
	if e.MinScore() != 60 {
		t.Errorf("MinScore() = %v", e.MinScore())
	}
	if e.Revision() != 0 {
		t.Errorf("Revision() = %d, want 0 before ingestion", e.Revision())
	}
}

func TestNew_ClonesVector(t *testing.T) {
	vec := []float32{1, 2, 3}
	e, err := New("c-1", KindCandidate, vec, nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vec[0] = 99
	if e.Vector()[0] != 1 {
		t.Error("vector mutation leaked into entity")
	}
}

func TestNew_ZeroVectorAccepted(t *testing.T) {
	if _, err := New("c-1", KindCandidate, []float32{0, 0, 0}, nil, nil, 0); err != nil {
		t.Fatalf("zero vector should be accepted: %v", err)
	}
}

func TestNew_InvalidVector(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := []struct {
		name string
		vec  []float32
	}{
		{"empty", nil},
		{"nan", []float32{0.1, nan}},
		{"inf", []float32{inf}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("c-1", KindCandidate, tt.vec, nil, nil, 0)
			if !errors.Is(err, domain.ErrInvalidVector) {
				t.Fatalf("expected ErrInvalidVector, got %v", err)
			}
		})
	}
}

func TestNew_InvalidEntity(t *testing.T) {
	vec := []float32{1}
	tests := []struct {
		name     string
		id       string
		kind     Kind
		attrs    []string
		weights  map[string]float64
		minScore float64
	}{
		{"empty id", "", KindJob, nil, nil, 0},
		{"id too long", strings.Repeat("a", 257), KindJob, nil, nil, 0},
		{"bad id chars", "has space", KindJob, nil, nil, 0},
		{"slash in id", "a/b", KindJob, nil, nil, 0},
		{"unknown kind", "x", Kind("recruiter"), nil, nil, 0},
		{"weights on candidate", "c", KindCandidate, []string{"go"}, map[string]float64{"go": 1}, 0},
		{"weight for unknown attribute", "j", KindJob, []string{"go"}, map[string]float64{"rust": 1}, 0},
		{"zero weight", "j", KindJob, []string{"go"}, map[string]float64{"go": 0}, 0},
		{"negative weight", "j", KindJob, []string{"go"}, map[string]float64{"go": -1}, 0},
		{"weights colliding after normalization", "j", KindJob, []string{"Python"}, map[string]float64{"Python": 2, " python": 3}, 0},
		{"nan weight", "j", KindJob, []string{"go"}, map[string]float64{"go": math.NaN()}, 0},
		{"min score above 100", "j", KindJob, nil, nil, 101},
		{"negative min score", "j", KindJob, nil, nil, -1},
		{"min score on candidate", "c", KindCandidate, nil, nil, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, tt.kind, vec, tt.attrs, tt.weights, tt.minScore)
			if !errors.Is(err, domain.ErrInvalidEntity) {
				t.Fatalf("expected ErrInvalidEntity, got %v", err)
			}
		})
	}
}

func TestValidateID_Accepted(t *testing.T) {
	for _, id := range []string{"job-1", "c_2", "urn:job:42", "65f0c1.a", strings.Repeat("a", 256)} {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v", id, err)
		}
	}
}

func TestHasAttribute(t *testing.T) {
	e, _ := New("c-1", KindCandidate, []float32{1}, []string{"Go", "SQL"}, nil, 0)
	if !e.HasAttribute("go") || !e.HasAttribute("sql") {
		t.Error("expected normalized attributes to be present")
	}
	if e.HasAttribute("Go") {
		t.Error("lookup takes normalized tokens only")
	}
	if e.HasAttribute("rust") {
		t.Error("unexpected attribute")
	}
}

func TestWithRevision(t *testing.T) {
	e, _ := New("c-1", KindCandidate, []float32{1}, nil, nil, 0)
	r := e.WithRevision(7)
	if r.Revision() != 7 {
		t.Errorf("Revision() = %d", r.Revision())
	}
	if e.Revision() != 0 {
		t.Error("WithRevision must not modify the receiver")
	}
	if !e.Equal(&r) {
		t.Error("Equal must ignore revision")
	}
}

func TestEqual(t *testing.T) {
	a, _ := New("j-1", KindJob, []float32{1, 0}, []string{"go"}, map[string]float64{"go": 2}, 0)
	b, _ := New("j-1", KindJob, []float32{1, 0}, []string{"GO"}, map[string]float64{"Go": 2}, 0)
	c, _ := New("j-1", KindJob, []float32{0, 1}, []string{"go"}, map[string]float64{"go": 2}, 0)
	if !a.Equal(&b) {
		t.Error("expected equal after normalization")
	}
	if a.Equal(&c) {
		t.Error("different vectors must not be equal")
	}
}

func TestReconstruct(t *testing.T) {
	e := Reconstruct("j-1", KindJob, []float32{1}, []string{"go"}, nil, 10, 42)
	if e.ID() != "j-1" || e.Revision() != 42 || e.MinScore() != 10 {
		t.Errorf("unexpected entity: id=%q rev=%d min=%v", e.ID(), e.Revision(), e.MinScore())
	}
}

func TestKind(t *testing.T) {
	if KindJob.Opposite() != KindCandidate || KindCandidate.Opposite() != KindJob {
		t.Error("Opposite() mismatch")
	}
	if Kind("").IsValid() {
		t.Error("empty kind must be invalid")
	}
}

func TestNormalizeAttributes(t *testing.T) {
	got := NormalizeAttributes([]string{"  K8s", "k8s", "Docker ", " ", "AWS"})
	want := []string{"aws", "docker", "k8s"}
	if !slices.Equal(got, want) {
		t.Errorf("NormalizeAttributes() = %v, want %v", got, want)
	}
	if got := NormalizeAttributes(nil); len(got) != 0 {
		t.Errorf("NormalizeAttributes(nil) = %v", got)
	}
}
