package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinSignal/pkg/cache"

	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a symbol lock cannot be acquired in time.
var ErrLockTimeout = errors.New("symbol lock timeout")

// SymbolLocker serializes work on one symbol across concurrent cycles.
type SymbolLocker interface {
	Lock(ctx context.Context, symbol string) (unlock func(), err error)
}

// LocalLocker is an in-process lock per symbol. Each symbol owns a
// one-slot channel so a waiter can give up when its context ends.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, symbol string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.locks[symbol]
	if !ok {
		slot = make(chan struct{}, 1)
		l.locks[symbol] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CacheLocker takes a TTL lock through the cache service so separate
// processes sharing the cache never process the same symbol at once.
// Every acquisition writes its own token, so a holder whose TTL lapsed
// cannot release the lock a later holder took.
type CacheLocker struct {
	store   cache.Service
	ttl     time.Duration
	wait    time.Duration
	backoff time.Duration
}

func NewCacheLocker(store cache.Service, ttl, wait time.Duration) *CacheLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &CacheLocker{store: store, ttl: ttl, wait: wait, backoff: 50 * time.Millisecond}
}

func (l *CacheLocker) Lock(ctx context.Context, symbol string) (func(), error) {
	key := cache.GenerateKeyWithParams("lock", "symbol", symbol)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	backoff := l.backoff

	for {
		ok, err := l.store.TryLock(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", symbol, err)
		}
		if ok {
			return func() { _ = l.store.Unlock(context.Background(), key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%s: %w", symbol, ErrLockTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
}

var (
	_ SymbolLocker = (*LocalLocker)(nil)
	_ SymbolLocker = (*CacheLocker)(nil)
)
