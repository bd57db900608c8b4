package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
)

// Locker provides a mutual-exclusion lease shared between replicas. The
// lease stays held until release is called; a holder that dies without
// releasing loses it after ttl.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lease taken over by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out by ARGV[2] ms while we still own the key.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a Locker on a single Redis instance (SET NX PX). A held lease
// is renewed every ttl/3 until released.
type RedisLock struct {
	rdb    *redis.Client
	logger arbor.ILogger
}

func NewRedisLock(rdb *redis.Client, logger arbor.ILogger) *RedisLock {
	return &RedisLock{rdb: rdb, logger: logger}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, ttl, stop, done)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done
			// The run context may already be cancelled at shutdown.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(rctx, l.rdb, []string{key}, token).Err()
		})
	}
	return release, true, nil
}

func (l *RedisLock) keepAlive(key, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	every := ttl / 3
	if every <= 0 {
		every = ttl
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			n, err := extendScript.Run(ctx, l.rdb, []string{key}, token, ttl.Milliseconds()).Int()
			cancel()
			switch {
			case err != nil:
				// Keep trying; the lease survives until ttl runs out.
				l.logger.Warn().Err(err).Str("key", key).Msg("Failed to extend run lock")
			case n == 0:
				l.logger.Warn().Str("key", key).Msg("Run lock lost before release")
				return
			}
		}
	}
}
