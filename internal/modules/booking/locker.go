package booking

import (
	"context"
	"sync"
	"time"
)

// RoomLocker provides one exclusive critical section per room.
// Lock blocks until the room is free, ctx is done or the locker's timeout
// elapses, in which case it returns *LockTimeoutError. The returned unlock
// func must be called exactly once.
type RoomLocker interface {
	Lock(ctx context.Context, roomID int64) (unlock func(), err error)
}

type roomSlot struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker guards rooms within a single process.
// Slots are reference counted and dropped once nobody holds or waits for them.
type MemoryLocker struct {
	timeout time.Duration

	mu    sync.Mutex
	rooms map[int64]*roomSlot
}

func NewMemoryLocker(timeout time.Duration) *MemoryLocker {
	return &MemoryLocker{
		timeout: timeout,
		rooms:   make(map[int64]*roomSlot),
	}
}

func (l *MemoryLocker) Lock(ctx context.Context, roomID int64) (func(), error) {
	slot := l.acquireSlot(roomID)

	var timeout <-chan time.Time
	if l.timeout > 0 {
		timer := time.NewTimer(l.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseSlot(roomID, slot)
		return nil, ctx.Err()
	case <-timeout:
		l.releaseSlot(roomID, slot)
		return nil, &LockTimeoutError{RoomID: roomID, Waited: l.timeout}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.releaseSlot(roomID, slot)
		})
	}, nil
}

func (l *MemoryLocker) acquireSlot(roomID int64) *roomSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.rooms[roomID]
	if !ok {
		slot = &roomSlot{ch: make(chan struct{}, 1)}
		l.rooms[roomID] = slot
	}
	slot.refs++
	return slot
}

func (l *MemoryLocker) releaseSlot(roomID int64, slot *roomSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.rooms, roomID)
	}
}

// size is the number of rooms currently held or waited on.
func (l *MemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
