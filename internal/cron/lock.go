package cron

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/tollwatch-backend/pkg/errors"
)

const defaultLockTTL = 25 * time.Hour

// Lock guards a cron cycle so only one replica runs it.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a lease keyed by a random token. The TTL bounds how long a
// crashed holder blocks the others; release only deletes our own token.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lock store required")
	case key == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cron lock")
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release is a no-op when the lease was never taken, already expired or
// was taken over by another replica.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release cron lock")
	}
	return nil
}
