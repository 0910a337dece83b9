package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

type lockHeldError struct{}

func (lockHeldError) Error() string { return "redis lock: held elsewhere" }

// Locked lets callers detect the condition without importing this package.
func (lockHeldError) Locked() bool { return true }

// ErrLocked is returned when another process holds the lock.
var ErrLocked error = lockHeldError{}

// Locker runs functions under a distributed lock.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker constructs a locker. ttl bounds how long a crashed holder blocks
// others.
func NewLocker(client redis.UniversalClient, ttl time.Duration) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redis lock: nil client")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: redislock.New(client), ttl: ttl}, nil
}

// WithLock runs fn while holding key. It returns ErrLocked without running fn
// when the lock is taken.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLocked
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
