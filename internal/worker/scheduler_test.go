package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLockerIsExclusive(t *testing.T) {
	ctx := context.Background()
	locker, mr := newRedisLocker(t)

	ok, err := locker.TryLock(ctx, JobReminders, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists(lockPrefix+JobReminders))

	ok, err = locker.TryLock(ctx, JobReminders, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, locker.Unlock(ctx, JobReminders))
	ok, err = locker.TryLock(ctx, JobReminders, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockerExpires(t *testing.T) {
	ctx := context.Background()
	locker, mr := newRedisLocker(t)

	ok, err := locker.TryLock(ctx, JobReaper, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = locker.TryLock(ctx, JobReaper, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSchedulerRunSkipsWhenLocked(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()
	s := NewScheduler(locker, time.UTC, time.Minute, zerolog.Nop())

	calls := 0
	task := func(context.Context) error {
		calls++
		return nil
	}

	require.NoError(t, s.Run(ctx, JobReminders, task))
	require.Equal(t, 1, calls)

	ok, err := locker.TryLock(ctx, JobReminders, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.ErrorIs(t, s.Run(ctx, JobReminders, task), ErrJobLocked)
	require.Equal(t, 1, calls)
}

func TestSchedulerReleasesLockAfterFailure(t *testing.T) {
	ctx := context.Background()
	locker, _ := newRedisLocker(t)
	s := NewScheduler(locker, time.UTC, time.Minute, zerolog.Nop())

	require.EqualError(t, s.Run(ctx, JobReaper, func(context.Context) error { return errors.New("boom") }), "boom")

	ok, err := locker.TryLock(ctx, JobReaper, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(NewLocalLocker(), time.UTC, time.Minute, zerolog.Nop())
	require.Error(t, s.Register(JobReminders, "every day", func(context.Context) error { return nil }))
	require.NoError(t, s.Register(JobReminders, "0 0 7 * * *", func(context.Context) error { return nil }))
}
