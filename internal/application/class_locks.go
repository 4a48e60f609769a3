package application

import "sync"

// classLocks serializes mutations per class name. Locks are reference counted and
// dropped once no goroutine holds or waits on them.
type classLocks struct {
	mu    sync.Mutex
	locks map[string]*classLock
}

type classLock struct {
	mu   sync.Mutex
	refs int
}

func newClassLocks() *classLocks {
	return &classLocks{locks: make(map[string]*classLock)}
}

// lock blocks until the class lock is held and returns its release function.
func (l *classLocks) lock(className string) func() {
	l.mu.Lock()
	entry, ok := l.locks[className]
	if !ok {
		entry = &classLock{}
		l.locks[className] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.locks, className)
			}
			l.mu.Unlock()
		})
	}
}

func (l *classLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
