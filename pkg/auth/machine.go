package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
	"github.com/aretw0/guiche/pkg/ports"
)

// Machine runs authentication transitions against an identity store.
type Machine struct {
	clients     ports.IdentityStore
	maxAttempts int
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option configures the Machine.
type Option func(*Machine)

// WithMaxAttempts sets the failure threshold (default domain.DefaultMaxAttempts).
func WithMaxAttempts(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine creates an authentication machine.
func NewMachine(clients ports.IdentityStore, opts ...Option) *Machine {
	m := &Machine{
		clients:     clients,
		maxAttempts: domain.DefaultMaxAttempts,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaxAttempts returns the configured failure threshold.
func (m *Machine) MaxAttempts() int {
	return m.maxAttempts
}

// Reset returns the initial state, clearing candidates and counters.
func (m *Machine) Reset() domain.AuthState {
	return domain.NewAuthState(m.maxAttempts)
}

// Step applies one input to state and returns the next state.
func (m *Machine) Step(ctx context.Context, state domain.AuthState, input string) (domain.AuthState, Result) {
	if state.MaxAttempts <= 0 {
		state.MaxAttempts = m.maxAttempts
	}

	var (
		next domain.AuthState
		res  Result
	)
	switch state.Stage {
	case domain.StageAskIdentifier:
		next, res = m.askIdentifier(ctx, state, input)
	case domain.StageAskBirthDate:
		next, res = m.askBirthDate(state, input)
	case domain.StageAuthenticated:
		next, res = state, Result{Kind: AlreadyAuthenticated}
	case domain.StageBlocked:
		next, res = state, Result{Kind: Closed}
	default:
		// Unknown stages restart the dialogue without losing the failure count.
		next = m.Reset()
		next.FailedAttempts = state.FailedAttempts
		res = Result{Kind: FormatError, Field: FieldIdentifier}
	}

	res.From = state.Stage
	res.To = next.Stage
	res.Attempts = next.FailedAttempts
	res.MaxAttempts = next.MaxAttempts
	m.notify(ctx, res)
	return next, res
}

func (m *Machine) askIdentifier(ctx context.Context, state domain.AuthState, input string) (domain.AuthState, Result) {
	id, err := identity.NormalizeIdentifier(input)
	if err != nil {
		return state, Result{Kind: FormatError, Field: FieldIdentifier, Err: err}
	}

	client, err := m.clients.FindClient(ctx, id)
	if errors.Is(err, domain.ErrClientNotFound) {
		m.logger.Info("identifier not found", "identifier", id, "attempt", state.FailedAttempts+1)
		return m.fail(state, FieldIdentifier)
	}
	if err != nil {
		m.logger.Error("identity store lookup failed", "identifier", id, "err", err)
		return state, Result{Kind: StoreError, Field: FieldIdentifier, Err: err}
	}

	next := state
	next.Identifier = id
	next.Client = client
	next.Stage = domain.StageAskBirthDate
	return next, Result{Kind: Advanced, Field: FieldIdentifier}
}

func (m *Machine) askBirthDate(state domain.AuthState, input string) (domain.AuthState, Result) {
	date, err := identity.ParseBirthDate(input)
	if err != nil {
		return state, Result{Kind: FormatError, Field: FieldBirthDate, Err: err}
	}

	next := state
	next.BirthDate = date
	if state.Client == nil || state.Client.BirthDate != date {
		m.logger.Info("birth date mismatch", "identifier", state.Identifier, "attempt", state.FailedAttempts+1)
		return m.fail(next, FieldBirthDate)
	}

	next.Authenticated = true
	next.Stage = domain.StageAuthenticated
	return next, Result{Kind: Advanced, Field: FieldBirthDate}
}

// fail consumes one attempt. Below the threshold the dialogue restarts at the
// identifier; at the threshold the session is blocked for good.
func (m *Machine) fail(state domain.AuthState, field Field) (domain.AuthState, Result) {
	attempts := state.FailedAttempts + 1
	if attempts >= state.MaxAttempts {
		next := state
		next.FailedAttempts = state.MaxAttempts
		next.Stage = domain.StageBlocked
		next.Authenticated = false
		return next, Result{Kind: AuthFailure, Field: field}
	}

	next := domain.NewAuthState(state.MaxAttempts)
	next.FailedAttempts = attempts
	return next, Result{Kind: AuthFailure, Field: field}
}

func (m *Machine) notify(ctx context.Context, res Result) {
	now := time.Now()
	if res.Kind == AuthFailure && m.hooks.OnAuthFailure != nil {
		m.hooks.OnAuthFailure(ctx, &domain.StageEvent{
			EventBase: domain.EventBase{Timestamp: now, Type: domain.EventAuthFailure},
			From:      res.From,
			To:        res.To,
			Field:     string(res.Field),
			Attempts:  res.Attempts,
		})
	}
	if res.From != res.To && m.hooks.OnStageChange != nil {
		m.hooks.OnStageChange(ctx, &domain.StageEvent{
			EventBase: domain.EventBase{Timestamp: now, Type: domain.EventStageChange},
			From:      res.From,
			To:        res.To,
			Field:     string(res.Field),
			Attempts:  res.Attempts,
		})
	}
}
