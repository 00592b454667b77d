package vocab

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// StringStore maps strings to 64-bit ids and back. Ids are the xxhash of the string, so they are
// stable across processes and runs. It is safe for concurrent use.
type StringStore struct {
	mu      sync.RWMutex
	strings map[uint64]string
}

// NewStringStore creates an empty store.
func NewStringStore() *StringStore {
	return &StringStore{strings: make(map[uint64]string)}
}

// Hash returns the id s has, or would have, in any StringStore.
func Hash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// ErrHashCollision is returned when two different strings hash to the same id.
var ErrHashCollision = errors.New("hash collision")

// Add stores s, if not yet stored, and returns its id.
// It panics with ErrHashCollision if s collides with a different string already stored, see TryAdd.
func (ss *StringStore) Add(s string) uint64 {
	id, err := ss.TryAdd(s)
	if err != nil {
		panic(err)
	}
	return id
}

// TryAdd is like Add, but returns ErrHashCollision instead of panicking.
func (ss *StringStore) TryAdd(s string) (uint64, error) {
	id := Hash(s)
	ss.mu.RLock()
	stored, found := ss.strings[id]
	ss.mu.RUnlock()
	if !found {
		ss.mu.Lock()
		stored, found = ss.strings[id]
		if !found {
			stored = s
			ss.strings[id] = s
		}
		ss.mu.Unlock()
	}
	if stored != s {
		return 0, errors.Wrapf(ErrHashCollision, "%q and %q (id %d)", stored, s, id)
	}
	return id, nil
}

// Get returns the string with the given id.
func (ss *StringStore) Get(id uint64) (string, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	s, ok := ss.strings[id]
	return s, ok
}

// Contains reports whether s was added.
func (ss *StringStore) Contains(s string) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	_, ok := ss.strings[Hash(s)]
	return ok
}

// Len returns the number of strings stored.
func (ss *StringStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.strings)
}
