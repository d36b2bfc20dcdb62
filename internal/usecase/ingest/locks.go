package ingest

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const lockStripes = 256

// stripedLocks serializes writes per id without a global lock.
type stripedLocks [lockStripes]sync.Mutex

func (l *stripedLocks) lock(id string) func() {
	m := &l[xxhash.Sum64String(id)%lockStripes]
	m.Lock()
	return m.Unlock
}
