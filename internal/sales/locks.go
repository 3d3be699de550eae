package sales

import (
	"sort"
	"sync"
)

// lockTable hands out per-ingredient write locks for the Apply step. Locks
// are acquired in ascending ingredient order, so two batches touching
// overlapping ingredients serialize without deadlocking while batches on
// disjoint ingredient sets proceed in parallel.
type lockTable struct {
	mu      sync.Mutex
	entries map[uint]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[uint]*lockEntry)}
}

// acquire blocks until every listed ingredient lock is held and returns the
// release function. Duplicate identifiers are collapsed.
func (t *lockTable) acquire(ingredientIDs []uint) func() {
	ids := dedupeSorted(ingredientIDs)

	held := make([]*lockEntry, 0, len(ids))
	for _, id := range ids {
		t.mu.Lock()
		entry, ok := t.entries[id]
		if !ok {
			entry = &lockEntry{}
			t.entries[id] = entry
		}
		entry.refs++
		t.mu.Unlock()

		entry.mu.Lock()
		held = append(held, entry)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		t.mu.Lock()
		for _, id := range ids {
			entry := t.entries[id]
			entry.refs--
			if entry.refs == 0 {
				delete(t.entries, id)
			}
		}
		t.mu.Unlock()
	}
}

func dedupeSorted(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	sorted := make([]uint, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	unique := sorted[:1]
	for _, id := range sorted[1:] {
		if id != unique[len(unique)-1] {
			unique = append(unique, id)
		}
	}
	return unique
}
