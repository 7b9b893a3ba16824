/*
Package keylock serializes work per key (a session ID, a client identifier).

Locks are reference counted so entries for idle keys are garbage collected, and
an optional ports.DistributedLocker extends the exclusion across replicas.
*/
package keylock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/ports"
)

// DefaultTTL bounds how long a distributed lock survives a crashed holder.
const DefaultTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per key.
type Locker struct {
	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	namespace string
	ttl       time.Duration
	locker    ports.DistributedLocker // Optional distributed locker
	logger    *slog.Logger
}

// Option configures the Locker.
type Option func(*Locker)

// WithDistributed enables distributed locking. Keys are prefixed with namespace
// so session and client locks never collide.
func WithDistributed(locker ports.DistributedLocker, namespace string) Option {
	return func(l *Locker) {
		l.locker = locker
		l.namespace = namespace
	}
}

// WithTTL sets the distributed lock TTL.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLogger configures a logger for deferred unlock errors.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locker) {
		l.logger = logger
	}
}

// New creates a Locker.
func New(opts ...Option) *Locker {
	l := &Locker{
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (l *Locker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, key)
	}
}

// Len returns the number of keys currently tracked.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// WithLock executes fn while holding the lock for key.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := l.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		l.release(key)
	}()

	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx, l.namespace+key, l.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// A caller that went away must not leave the key held until the TTL.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				l.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", l.namespace+key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
