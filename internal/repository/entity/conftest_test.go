package entity

import (
	"context"
	"testing"

	"github.com/kailas-cloud/talentmatch/internal/db"
	domentity "github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// mockStore is an in-memory implementation of the consumer interface.
type mockStore struct {
	hashes    map[string]map[string]string
	scanErr   error
	hsetCalls int
	deleted   []string
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	m.hsetCalls++
	for _, it := range items {
		m.hashes[it.Key] = it.Fields
	}
	return nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) DelMulti(_ context.Context, keys []string) error {
	for _, k := range keys {
		delete(m.hashes, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

func (m *mockStore) Scan(_ context.Context, _ string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	keys := make([]string, 0, len(m.hashes))
	for k := range m.hashes {
		keys = append(keys, k)
	}
	return keys, nil
}

func mustEntity(
	t *testing.T, id string, kind domentity.Kind, attrs []string, weights map[string]float64,
) domentity.Entity {
	t.Helper()
	e, err := domentity.New(id, kind, []float32{0.5, -1.25}, attrs, weights, 0)
	if err != nil {
		t.Fatalf("entity.New(%s): %v", id, err)
	}
	return e.WithRevision(7)
}
