package worker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockPrefix = "agreements:job:lock:"

// Locker keeps a job from running on two instances at once.
type Locker interface {
	TryLock(ctx context.Context, job string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, job string) error
}

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, job string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockPrefix+job, time.Now().Unix(), ttl).Result()
}

func (l *RedisLocker) Unlock(ctx context.Context, job string) error {
	return l.client.Del(ctx, lockPrefix+job).Err()
}

// LocalLocker only guards against overlapping runs within this process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]struct{}{}}
}

func (l *LocalLocker) TryLock(_ context.Context, job string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[job]; ok {
		return false, nil
	}
	l.held[job] = struct{}{}
	return true, nil
}

func (l *LocalLocker) Unlock(_ context.Context, job string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, job)
	return nil
}
