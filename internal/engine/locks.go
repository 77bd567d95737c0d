package engine

import "sync"

// lockTable hands out one RWMutex per universe, created lazily. Writers
// (flush, clone, promote) take exclusive locks; readers (diff, validation
// previews) take shared ones. Universes are never unregistered; the table
// grows with the universe count, which is small.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.RWMutex)}
}

func (t *lockTable) get(universeID string) *sync.RWMutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[universeID]
	if !ok {
		l = &sync.RWMutex{}
		t.locks[universeID] = l
	}
	return l
}

// lock takes the universe's exclusive lock and returns its release.
func (t *lockTable) lock(universeID string) func() {
	l := t.get(universeID)
	l.Lock()
	return l.Unlock
}

// rlock takes the universe's shared lock and returns its release.
func (t *lockTable) rlock(universeID string) func() {
	l := t.get(universeID)
	l.RLock()
	return l.RUnlock
}

// lockPair exclusively locks two universes in lexicographic order so
// concurrent pairwise operations cannot deadlock.
func (t *lockTable) lockPair(a, b string) func() {
	if a == b {
		return t.lock(a)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	l1, l2 := t.get(first), t.get(second)
	l1.Lock()
	l2.Lock()
	return func() {
		l2.Unlock()
		l1.Unlock()
	}
}

// rlockPair takes shared locks on two universes in lexicographic order.
func (t *lockTable) rlockPair(a, b string) func() {
	if a == b {
		return t.rlock(a)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	l1, l2 := t.get(first), t.get(second)
	l1.RLock()
	l2.RLock()
	return func() {
		l2.RUnlock()
		l1.RUnlock()
	}
}
