package objectfs

import (
	"sync"

	"github.com/mwantia/afs/data"
)

type lockEntry struct {
	exclusive any
	shared    map[any]struct{}
}

func (le *lockEntry) grantable(owner any, lock data.Lock) bool {
	if le.exclusive != nil && le.exclusive != owner {
		return false
	}
	if lock == data.LockShared {
		return true
	}

	for holder := range le.shared {
		if holder != owner {
			return false
		}
	}
	return true
}

// lockTable implements advisory locks between open files of one FileSystem.
// Locks are keyed by object key and owned by the open file that requested them.
type lockTable struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries map[string]*lockEntry
}

func newLockTable() *lockTable {
	lt := &lockTable{entries: make(map[string]*lockEntry)}
	lt.cond = sync.NewCond(&lt.mu)
	return lt
}

// acquire converts the lock held by owner on key into lock.
// With nonBlocking set it reports false instead of waiting for a conflicting holder.
func (lt *lockTable) acquire(key string, owner any, lock data.Lock, nonBlocking bool) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if lock == data.LockNone {
		lt.releaseUnsafe(key, owner)
		return true
	}

	for {
		entry, exists := lt.entries[key]
		if !exists {
			entry = &lockEntry{shared: make(map[any]struct{})}
			lt.entries[key] = entry
		}

		if entry.grantable(owner, lock) {
			downgraded := false
			if lock == data.LockShared {
				downgraded = entry.exclusive == owner
				entry.exclusive = nil
				entry.shared[owner] = struct{}{}
			} else {
				delete(entry.shared, owner)
				entry.exclusive = owner
			}

			if downgraded {
				lt.cond.Broadcast()
			}
			return true
		}

		if nonBlocking {
			return false
		}
		lt.cond.Wait()
	}
}

func (lt *lockTable) release(key string, owner any) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.releaseUnsafe(key, owner)
}

// releaseUnsafe MUST be called while holding lt.mu.
func (lt *lockTable) releaseUnsafe(key string, owner any) {
	entry, exists := lt.entries[key]
	if !exists {
		return
	}

	if entry.exclusive == owner {
		entry.exclusive = nil
	}
	delete(entry.shared, owner)

	if entry.exclusive == nil && len(entry.shared) == 0 {
		delete(lt.entries, key)
	}
	lt.cond.Broadcast()
}
