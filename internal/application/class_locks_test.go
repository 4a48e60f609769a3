package application

import (
	"sync"
	"testing"
	"time"
)

func TestClassLocksSerializeSameClass(t *testing.T) {
	t.Parallel()

	locks := newClassLocks()
	unlock := locks.lock("10A")

	acquired := make(chan struct{})
	go func() {
		release := locks.lock("10A")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatalf("expected second lock on the same class to block")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("expected waiter to acquire the lock after release")
	}
}

func TestClassLocksIndependentClasses(t *testing.T) {
	t.Parallel()

	locks := newClassLocks()
	unlockA := locks.lock("10A")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		locks.lock("10B")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected a different class to lock without waiting")
	}
}

func TestClassLocksReleaseEntries(t *testing.T) {
	t.Parallel()

	locks := newClassLocks()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("10A")
			unlock()
			unlock()
		}()
	}
	wg.Wait()

	if size := locks.size(); size != 0 {
		t.Fatalf("expected no retained locks, got %d", size)
	}
}
