package entity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	domentity "github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

func TestSaveAllLoadAll_RoundTrip(t *testing.T) {
	ms := newMockStore()
	repo := New(ms, "talentmatch:")
	ctx := context.Background()

	job := mustEntity(t, "urn:job:1", domentity.KindJob, []string{"python", "docker"}, map[string]float64{"python": 2})
	cand := mustEntity(t, "c-1", domentity.KindCandidate, []string{"python"}, nil)

	written, removed, err := repo.SaveAll(ctx, []domentity.Entity{job, cand})
	if err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if written != 2 || removed != 0 {
		t.Errorf("written=%d removed=%d", written, removed)
	}
	if _, ok := ms.hashes["talentmatch:entity:urn:job:1"]; !ok {
		t.Fatalf("expected prefixed key, got %v", ms.hashes)
	}

	loaded, skipped, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 2 || len(skipped) != 0 {
		t.Fatalf("loaded %d, skipped %v", len(loaded), skipped)
	}
	for _, e := range loaded {
		want := cand
		if e.ID() == job.ID() {
			want = job
		}
		if !e.Equal(&want) {
			t.Errorf("round-trip mismatch for %s", e.ID())
		}
		if e.Revision() != 7 {
			t.Errorf("revision = %d", e.Revision())
		}
	}
}

func TestSaveAll_RemovesStale(t *testing.T) {
	ms := newMockStore()
	repo := New(ms, "p:")
	ctx := context.Background()

	a := mustEntity(t, "a", domentity.KindCandidate, nil, nil)
	b := mustEntity(t, "b", domentity.KindCandidate, nil, nil)
	if _, _, err := repo.SaveAll(ctx, []domentity.Entity{a, b}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	_, removed, err := repo.SaveAll(ctx, []domentity.Entity{a})
	if err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if removed != 1 || !slices.Contains(ms.deleted, "p:entity:b") {
		t.Errorf("expected p:entity:b removed, got removed=%d deleted=%v", removed, ms.deleted)
	}
}

func TestSaveAll_Chunks(t *testing.T) {
	ms := newMockStore()
	repo := New(ms, "p:")
	entities := make([]domentity.Entity, chunkSize+1)
	for i := range entities {
		entities[i] = mustEntity(t, fmt.Sprintf("c%d", i), domentity.KindCandidate, nil, nil)
	}
	written, _, err := repo.SaveAll(context.Background(), entities)
	if err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if written != chunkSize+1 || ms.hsetCalls != 2 {
		t.Errorf("written=%d hsetCalls=%d", written, ms.hsetCalls)
	}
}

func TestSaveAll_ScanError(t *testing.T) {
	ms := newMockStore()
	ms.scanErr = errors.New("conn refused")
	if _, _, err := New(ms, "p:").SaveAll(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadAll_SkipsCorruptRecords(t *testing.T) {
	ms := newMockStore()
	ms.hashes["p:entity:bad-kind"] = map[string]string{"kind": "recruiter", "vector": ""}
	ms.hashes["p:entity:bad-vector"] = map[string]string{"kind": "job", "vector": "abc"}
	ms.hashes["p:entity:bad-attrs"] = map[string]string{"kind": "job", "vector": "", "attributes": "{"}
	ms.hashes["p:entity:gone"] = map[string]string{}

	loaded, skipped, err := New(ms, "p:").LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected no entities, got %d", len(loaded))
	}
	for _, id := range []string{"bad-kind", "bad-vector", "bad-attrs"} {
		if skipped[id] == nil {
			t.Errorf("expected %s skipped", id)
		}
	}
	if _, ok := skipped["gone"]; ok {
		t.Error("empty hash must be ignored, not reported")
	}
}
