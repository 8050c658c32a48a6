package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"studiobooking/internal/pkg/logger"
)

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const redisLockRetry = 25 * time.Millisecond

// RedisLocker guards rooms across instances with SET NX PX.
// ttl bounds how long a crashed holder keeps a room blocked; it must be
// longer than any guarded operation.
type RedisLocker struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
	ttl     time.Duration
}

func NewRedisLocker(rdb *redis.Client, timeout, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb:     rdb,
		prefix:  "studiobooking:room-lock:",
		timeout: timeout,
		ttl:     ttl,
	}
}

func (l *RedisLocker) key(roomID int64) string {
	return fmt.Sprintf("%s%d", l.prefix, roomID)
}

func (l *RedisLocker) Lock(ctx context.Context, roomID int64) (func(), error) {
	key := l.key(roomID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.timeout)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire room lock: %w", err)
		}
		if ok {
			break
		}
		if l.timeout > 0 && time.Now().After(deadline) {
			return nil, &LockTimeoutError{RoomID: roomID, Waited: l.timeout}
		}

		wait := time.NewTimer(redisLockRetry)
		select {
		case <-ctx.Done():
			wait.Stop()
			return nil, ctx.Err()
		case <-wait.C:
		}
	}

	return func() {
		// released with a fresh context so an abandoned request still frees the room
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			logger.LogError(ctx, err, "Failed to release room lock", "room_id", roomID)
		}
	}, nil
}
