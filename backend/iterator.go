package backend

import (
	"sync"

	"github.com/mwantia/afs/data"
)

// EntryLoader produces the entry names of a directory.
type EntryLoader func() ([]string, error)

// LazyIterator is a DirectoryIterator that loads its entries on first use
// and replays the same snapshot after Rewind.
type LazyIterator struct {
	mu     sync.Mutex
	load   EntryLoader
	loaded bool
	closed bool

	entries []string
	index   int
}

// NewLazyIterator returns an iterator calling load once, on the first Next.
func NewLazyIterator(load EntryLoader) *LazyIterator {
	return &LazyIterator{load: load}
}

// NewSliceIterator returns an iterator over a fixed list of entries.
func NewSliceIterator(entries []string) *LazyIterator {
	return &LazyIterator{loaded: true, entries: entries}
}

func (li *LazyIterator) Next() (string, bool, error) {
	li.mu.Lock()
	defer li.mu.Unlock()

	if li.closed {
		return "", false, data.ErrClosed
	}

	if !li.loaded {
		entries, err := li.load()
		if err != nil {
			return "", false, err
		}
		li.entries = entries
		li.loaded = true
	}

	if li.index >= len(li.entries) {
		return "", false, nil
	}

	name := li.entries[li.index]
	li.index++
	return name, true, nil
}

func (li *LazyIterator) Rewind() error {
	li.mu.Lock()
	defer li.mu.Unlock()

	if li.closed {
		return data.ErrClosed
	}

	li.index = 0
	return nil
}

func (li *LazyIterator) Close() error {
	li.mu.Lock()
	defer li.mu.Unlock()

	li.closed = true
	li.entries = nil
	return nil
}
