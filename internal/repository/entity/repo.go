// Package entity persists catalog snapshots as Redis/Valkey hashes.
package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/talentmatch/internal/db"
	domentity "github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// chunkSize bounds the number of commands per pipelined round-trip.
const chunkSize = 256

// store is the consumer interface for entity snapshots (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/snapshot.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates an entity repository. Keys are "<prefix>entity:<id>".
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix + "entity:"}
}

// SaveAll writes every entity and deletes stored entities absent from the set.
// Returns the number of written and removed records.
func (r *Repo) SaveAll(ctx context.Context, entities []domentity.Entity) (int, int, error) {
	existing, err := r.store.Scan(ctx, r.prefix+"*")
	if err != nil {
		return 0, 0, fmt.Errorf("scan %s: %w", r.prefix, err)
	}

	live := make(map[string]struct{}, len(entities))
	items := make([]db.HashSetItem, 0, min(chunkSize, len(entities)))
	written := 0
	for i := range entities {
		e := &entities[i]
		fields, err := buildHashFields(e)
		if err != nil {
			return written, 0, fmt.Errorf("encode %s: %w", e.ID(), err)
		}
		key := r.key(e.ID())
		live[key] = struct{}{}
		items = append(items, db.HashSetItem{Key: key, Fields: fields})
		if len(items) == chunkSize {
			if err := r.store.HSetMulti(ctx, items); err != nil {
				return written, 0, fmt.Errorf("hset batch: %w", err)
			}
			written += len(items)
			items = items[:0]
		}
	}
	if len(items) > 0 {
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return written, 0, fmt.Errorf("hset batch: %w", err)
		}
		written += len(items)
	}

	var stale []string
	for _, key := range existing {
		if _, ok := live[key]; !ok {
			stale = append(stale, key)
		}
	}
	if err := r.store.DelMulti(ctx, stale); err != nil {
		return written, 0, fmt.Errorf("delete stale: %w", err)
	}
	return written, len(stale), nil
}

// LoadAll reads every stored entity. Records that cannot be decoded are
// returned in skipped (by id) rather than failing the load.
func (r *Repo) LoadAll(ctx context.Context) ([]domentity.Entity, map[string]error, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"*")
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", r.prefix, err)
	}

	entities := make([]domentity.Entity, 0, len(keys))
	var skipped map[string]error
	for start := 0; start < len(keys); start += chunkSize {
		chunk := keys[start:min(start+chunkSize, len(keys))]
		hashes, err := r.store.HGetAllMulti(ctx, chunk)
		if err != nil {
			return nil, nil, fmt.Errorf("hgetall batch: %w", err)
		}
		for i, m := range hashes {
			if len(m) == 0 {
				continue // deleted between SCAN and HGETALL
			}
			id := strings.TrimPrefix(chunk[i], r.prefix)
			e, err := parseHashFields(id, m)
			if err != nil {
				if skipped == nil {
					skipped = make(map[string]error)
				}
				skipped[id] = err
				continue
			}
			entities = append(entities, e)
		}
	}
	return entities, skipped, nil
}

func (r *Repo) key(id string) string {
	return r.prefix + id
}
