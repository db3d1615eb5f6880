package jira

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SyncLocker serializes bulk sync runs per (user, ticket system) so two
// concurrent runs cannot observe an unset worklog id and double-create the
// same remote worklog.
type SyncLocker interface {
	Lock(ctx context.Context, userID, ticketSystemID int) (release func(), err error)
}

// LocalSyncLocker serializes within one process using keyed mutexes.
type LocalSyncLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalSyncLocker() *LocalSyncLocker {
	return &LocalSyncLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalSyncLocker) Lock(ctx context.Context, userID, ticketSystemID int) (func(), error) {
	key := fmt.Sprintf("%d:%d", userID, ticketSystemID)

	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()

	return lock.Unlock, nil
}

// RedisSyncLocker serializes across processes with a redis SET NX lease.
type RedisSyncLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisSyncLocker(client *redis.Client, ttl time.Duration) *RedisSyncLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSyncLocker{
		client: client,
		ttl:    ttl,
		retry:  250 * time.Millisecond,
	}
}

func (l *RedisSyncLocker) Lock(ctx context.Context, userID, ticketSystemID int) (func(), error) {
	key := fmt.Sprintf("tracktime:synclock:%d:%d", userID, ticketSystemID)
	holder := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, holder, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	release := func() {
		// Only the holder may release; a lease that expired and was taken
		// over by another process must not be deleted.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		l.client.Eval(context.Background(), script, []string{key}, holder)
	}

	return release, nil
}
