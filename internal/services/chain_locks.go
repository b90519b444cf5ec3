package services

import (
	"context"
	"sync"
)

// userLocks serializes cycle chain mutations per user inside one process.
// Entries are dropped once nobody holds or waits for them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	slot chan struct{}
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// acquire blocks until the user's lock is free or ctx is done.
func (locks *userLocks) acquire(ctx context.Context, userID string) (func(), error) {
	locks.mu.Lock()
	lock, ok := locks.locks[userID]
	if !ok {
		lock = &userLock{slot: make(chan struct{}, 1)}
		locks.locks[userID] = lock
	}
	lock.refs++
	locks.mu.Unlock()

	select {
	case lock.slot <- struct{}{}:
	case <-ctx.Done():
		locks.releaseRef(userID, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.slot
			locks.releaseRef(userID, lock)
		})
	}, nil
}

func (locks *userLocks) releaseRef(userID string, lock *userLock) {
	locks.mu.Lock()
	defer locks.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(locks.locks, userID)
	}
}

func (locks *userLocks) size() int {
	locks.mu.Lock()
	defer locks.mu.Unlock()
	return len(locks.locks)
}
