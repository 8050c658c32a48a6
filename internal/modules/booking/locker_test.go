package booking

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	l := NewMemoryLocker(5 * time.Second)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), 1)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.size(), "slots are dropped once released")
}

func TestMemoryLocker_Timeout(t *testing.T) {
	l := NewMemoryLocker(30 * time.Millisecond)
	unlock, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), 1)
	var lErr *LockTimeoutError
	require.ErrorAs(t, err, &lErr)
	assert.Equal(t, int64(1), lErr.RoomID)
	assert.True(t, errors.Is(err, ErrBusy))
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := NewMemoryLocker(5 * time.Second)
	unlock, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Lock(ctx, 1)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("waiter did not give up")
	}

	unlock()
	assert.Equal(t, 0, l.size())
}

func TestMemoryLocker_RoomsIndependent(t *testing.T) {
	l := NewMemoryLocker(50 * time.Millisecond)
	unlock1, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock1()

	unlock2, err := l.Lock(context.Background(), 2)
	require.NoError(t, err)
	unlock2()
}

func TestMemoryLocker_UnlockIdempotent(t *testing.T) {
	l := NewMemoryLocker(time.Second)
	unlock, err := l.Lock(context.Background(), 1)
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), 1)
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	l := NewRedisLocker(rdb, 100*time.Millisecond, 5*time.Second)
	l.prefix = "studiobooking:test-lock:"
	roomID := time.Now().UnixNano()

	unlock, err := l.Lock(context.Background(), roomID)
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), roomID)
	assert.ErrorIs(t, err, ErrBusy)

	unlock()
	unlock2, err := l.Lock(context.Background(), roomID)
	require.NoError(t, err)
	unlock2()
}
