package service

import "sync"

// questLocks serializes operations per quest id. Completion counters and
// pending-proof existence are check-then-act sequences; operations on the
// same quest must not interleave, while different quests stay concurrent.
type questLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newQuestLocks() *questLocks {
	return &questLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *questLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}
