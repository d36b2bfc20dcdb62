package index

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/talentmatch/internal/domain/entity"
)

// entry is immutable once published; updates replace the pointer.
type entry struct {
	id       string
	kind     entity.Kind
	unit     []float32 // nil for the zero vector
	revision uint64
	list     int
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// postingList is one IVF cell.
type postingList struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// generation is one built index structure. Centroids are fixed at build time;
// shard and list contents change with writes.
type generation struct {
	num      uint64
	strategy strategy
	shards   []*shard
	lists    []*postingList // nil for exact
	// moveMu is held shared by IVF scans and exclusively while an entry
	// moves between posting lists, so a scan sees it in exactly one list.
	moveMu    sync.RWMutex
	builtSize int
	builtAt   time.Time

	candidates atomic.Int64
	jobs       atomic.Int64
	mutations  atomic.Int64
}

func newGeneration(num uint64, s strategy, shards int) *generation {
	g := &generation{num: num, strategy: s, shards: make([]*shard, shards), builtAt: time.Now()}
	for i := range g.shards {
		g.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	if n := s.lists(); n > 0 {
		g.lists = make([]*postingList, n)
		for i := range g.lists {
			g.lists[i] = &postingList{entries: make(map[string]*entry)}
		}
	}
	return g
}

func (g *generation) shardFor(id string) *shard {
	return g.shards[xxhash.Sum64String(id)%uint64(len(g.shards))]
}

func (g *generation) size() int {
	return int(g.candidates.Load() + g.jobs.Load())
}

func (g *generation) counter(k entity.Kind) *atomic.Int64 {
	if k == entity.KindJob {
		return &g.jobs
	}
	return &g.candidates
}

// put installs e, replacing any previous entry. Caller holds no locks.
// Lock order: shard, then moveMu, then posting list, then fn.
func (g *generation) put(e *entry, fn func()) {
	sh := g.shardFor(e.id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	old := sh.entries[e.id]
	sh.entries[e.id] = e
	if old != nil {
		g.counter(old.kind).Add(-1)
	}
	g.counter(e.kind).Add(1)

	if g.lists != nil {
		if old != nil && old.list != e.list {
			g.moveMu.Lock()
			g.unlist(old)
			g.list(e)
			g.moveMu.Unlock()
		} else {
			g.list(e)
		}
	}
	g.mutations.Add(1)
	if fn != nil {
		fn()
	}
}

// remove deletes id; reports whether it was present.
func (g *generation) remove(id string, fn func()) bool {
	sh := g.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	old, ok := sh.entries[id]
	if !ok {
		return false
	}
	delete(sh.entries, id)
	g.counter(old.kind).Add(-1)
	if g.lists != nil {
		g.unlist(old)
	}
	g.mutations.Add(1)
	if fn != nil {
		fn()
	}
	return true
}

func (g *generation) list(e *entry) {
	pl := g.lists[e.list]
	pl.mu.Lock()
	pl.entries[e.id] = e
	pl.mu.Unlock()
}

func (g *generation) unlist(e *entry) {
	pl := g.lists[e.list]
	pl.mu.Lock()
	// a concurrent put may already have replaced the pointer in this list
	if cur, ok := pl.entries[e.id]; ok && cur == e {
		delete(pl.entries, e.id)
	}
	pl.mu.Unlock()
}

func (g *generation) get(id string) (*entry, bool) {
	sh := g.shardFor(id)
	sh.mu.RLock()
	e, ok := sh.entries[id]
	sh.mu.RUnlock()
	return e, ok
}
