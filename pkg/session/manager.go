package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/keylock"
	"github.com/aretw0/guiche/pkg/ports"
)

// Manager orchestrates session access, ensuring safe concurrent operations.
type Manager struct {
	store       ports.SessionStore
	locks       *keylock.Locker
	maxAttempts int

	locker ports.DistributedLocker // Optional distributed locker
	logger *slog.Logger            // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMaxAttempts sets the authentication attempt limit for new sessions.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		m.maxAttempts = n
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		maxAttempts: domain.DefaultMaxAttempts,
		logger:      logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}

	lockOpts := []keylock.Option{keylock.WithLogger(m.logger)}
	if m.locker != nil {
		lockOpts = append(lockOpts, keylock.WithDistributed(m.locker, "session:"))
	}
	m.locks = keylock.New(lockOpts...)
	return m
}

// MaxAttempts returns the attempt limit applied to new sessions.
func (m *Manager) MaxAttempts() int {
	return m.maxAttempts
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, err = m.store.Load(ctx, sessionID)
		return err
	})
	return session, err
}

// LoadOrStart tries to load a session. If not found, it initializes a new one.
// The returned flag is true when the session already existed.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID string) (*domain.Session, bool, error) {
	var (
		session *domain.Session
		existed bool
	)
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, existed, err = m.loadOrStart(ctx, sessionID)
		return err
	})
	return session, existed, err
}

// loadOrStart must be called with the session lock held.
func (m *Manager) loadOrStart(ctx context.Context, sessionID string) (*domain.Session, bool, error) {
	session, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return session, true, nil
	}

	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, false, fmt.Errorf("failed to check session existence: %w", err)
	}

	session = domain.NewSession(sessionID, m.maxAttempts)

	// Persist immediately to reserve the ID
	if err := m.store.Save(ctx, sessionID, session); err != nil {
		return nil, false, fmt.Errorf("failed to initialize session: %w", err)
	}
	return session, false, nil
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		session.UpdatedAt = time.Now().UTC()
		return m.store.Save(ctx, sessionID, session)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	return m.locks.WithLock(ctx, sessionID, fn)
}

// Update loads (or starts) a session, hands it to fn and saves it when fn
// reports a change. The whole sequence runs under the session lock.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(ctx context.Context, s *domain.Session) (bool, error)) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, _, err = m.loadOrStart(ctx, sessionID)
		if err != nil {
			return err
		}

		changed, err := fn(ctx, session)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		session.UpdatedAt = time.Now().UTC()
		if err := m.store.Save(ctx, sessionID, session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
	return session, err
}
