package locking

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

// maxReaders is the weight of an exclusive lock. Readers take one unit each.
const maxReaders = 1 << 20

// WaitObserver records how long callers waited for a lock.
type WaitObserver interface {
	ObserveLockWait(mode string, wait time.Duration)
}

type worldLock struct {
	sem  *semaphore.Weighted
	refs int
}

// KeyedLocker serialises writers per world inside one process. Worlds that
// are not being touched hold no memory. Waiters are served in arrival order,
// so a queued writer is not starved by a stream of readers.
type KeyedLocker struct {
	mu       sync.Mutex
	locks    map[valueobjects.WorldID]*worldLock
	observer WaitObserver
}

// NewKeyedLocker creates a locker. observer may be nil.
func NewKeyedLocker(observer WaitObserver) *KeyedLocker {
	return &KeyedLocker{
		locks:    make(map[valueobjects.WorldID]*worldLock),
		observer: observer,
	}
}

// Lock takes the world's exclusive lock or fails when ctx ends first.
func (l *KeyedLocker) Lock(ctx context.Context, worldID valueobjects.WorldID) (ports.Unlock, error) {
	return l.acquire(ctx, worldID, maxReaders, "exclusive")
}

// RLock takes a shared lock on the world.
func (l *KeyedLocker) RLock(ctx context.Context, worldID valueobjects.WorldID) (ports.Unlock, error) {
	return l.acquire(ctx, worldID, 1, "shared")
}

func (l *KeyedLocker) acquire(ctx context.Context, worldID valueobjects.WorldID, weight int64, mode string) (ports.Unlock, error) {
	wl := l.ref(worldID)

	start := time.Now()
	if err := wl.sem.Acquire(ctx, weight); err != nil {
		l.unref(worldID)
		return nil, pkgerrors.NewTimeoutError("acquire world lock").WithCause(err).
			WithDetail("world_id", worldID.String())
	}
	if l.observer != nil {
		l.observer.ObserveLockWait(mode, time.Since(start))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			wl.sem.Release(weight)
			l.unref(worldID)
		})
	}, nil
}

func (l *KeyedLocker) ref(worldID valueobjects.WorldID) *worldLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	wl, ok := l.locks[worldID]
	if !ok {
		wl = &worldLock{sem: semaphore.NewWeighted(maxReaders)}
		l.locks[worldID] = wl
	}
	wl.refs++
	return wl
}

func (l *KeyedLocker) unref(worldID valueobjects.WorldID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	wl := l.locks[worldID]
	wl.refs--
	if wl.refs == 0 {
		delete(l.locks, worldID)
	}
}

// size reports how many worlds currently have lock state.
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
