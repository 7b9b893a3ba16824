/*
Package credit implements the deterministic credit decision engine.

EvaluateIncrease decides on a limit-change request from the client's current
limit, stored score and the score-band table, appends exactly one ledger entry
per decision and only then, for approvals, updates the client's limit.
RunInterview recomputes and stores a client's score. Every read-modify-write on
a client runs under a per-identifier lock.
*/
package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
	"github.com/aretw0/guiche/pkg/keylock"
	"github.com/aretw0/guiche/pkg/ports"
	"github.com/google/uuid"
)

// Engine evaluates credit requests.
type Engine struct {
	clients ports.IdentityStore
	bands   ports.ScoreBandTable
	ledger  ports.DecisionLedger
	locks   *keylock.Locker

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures the Engine.
type Option func(*Engine)

// WithLocks shares a keyed locker (e.g., one backed by a distributed locker).
func WithLocks(locks *keylock.Locker) Option {
	return func(e *Engine) {
		e.locks = locks
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the ledger timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a credit engine.
func NewEngine(clients ports.IdentityStore, bands ports.ScoreBandTable, ledger ports.DecisionLedger, opts ...Option) *Engine {
	e := &Engine{
		clients: clients,
		bands:   bands,
		ledger:  ledger,
		logger:  logging.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.locks == nil {
		e.locks = keylock.New(keylock.WithLogger(e.logger))
	}
	return e
}

// CurrentLimit returns the client's current limit.
func (e *Engine) CurrentLimit(ctx context.Context, id string) (float64, error) {
	client, err := e.clients.FindClient(ctx, identity.Normalize(id))
	if err != nil {
		return 0, fmt.Errorf("failed to find client: %w", err)
	}
	return client.Limit, nil
}

// EvaluateIncrease decides on a request to change a client's limit to requested.
func (e *Engine) EvaluateIncrease(ctx context.Context, id string, requested float64) (domain.Decision, error) {
	requested = domain.Round2(requested)
	if requested <= 0 {
		return domain.Decision{}, fmt.Errorf("%w: requested limit must be positive", domain.ErrInvalidAmount)
	}
	id = identity.Normalize(id)

	var decision domain.Decision
	start := time.Now()
	err := e.locks.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		decision, err = e.evaluate(ctx, id, requested)
		return err
	})
	if err != nil {
		return domain.Decision{}, err
	}

	e.logger.Info("credit decision recorded",
		"identifier", id,
		"status", decision.Status,
		"current_limit", decision.CurrentLimit,
		"requested_limit", decision.RequestedLimit,
		"max_allowed", decision.MaxAllowed,
	)
	if e.hooks.OnDecision != nil {
		e.hooks.OnDecision(ctx, &domain.DecisionEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventDecision},
			Decision:  decision,
			Duration:  time.Since(start),
		})
	}
	return decision, nil
}

// evaluate must run under the client lock.
func (e *Engine) evaluate(ctx context.Context, id string, requested float64) (domain.Decision, error) {
	client, err := e.clients.FindClient(ctx, id)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("failed to find client: %w", err)
	}

	decision := domain.Decision{
		Identifier:     id,
		CurrentLimit:   client.Limit,
		RequestedLimit: requested,
	}

	if requested < client.Limit {
		decision.Status = domain.StatusRequestedBelowCurrent
		decision.MaxAllowed = client.Limit
	} else {
		maxAllowed, err := e.bands.LookupMaxAllowedLimit(ctx, client.Score)
		if err != nil {
			return domain.Decision{}, fmt.Errorf("failed to look up score band: %w", err)
		}
		decision.MaxAllowed = maxAllowed
		decision.Status = domain.StatusRejected
		if requested <= maxAllowed {
			decision.Status = domain.StatusApproved
		}
	}

	entry := domain.LedgerEntry{
		ID:             e.newID(),
		Identifier:     id,
		Timestamp:      e.now(),
		CurrentLimit:   decision.CurrentLimit,
		RequestedLimit: decision.RequestedLimit,
		MaxAllowed:     decision.MaxAllowed,
		Status:         decision.Status,
	}
	if err := e.ledger.AppendDecision(ctx, entry); err != nil {
		return domain.Decision{}, fmt.Errorf("failed to append decision to ledger: %w", err)
	}

	if decision.Status == domain.StatusApproved {
		if _, err := e.clients.UpdateClientLimit(ctx, id, requested); err != nil {
			// The ledger already holds the attempted outcome and stays the audit source of truth.
			return domain.Decision{}, &LimitUpdateError{Entry: entry, Err: err}
		}
	}
	return decision, nil
}

// RunInterview computes a new score from the answers and stores it on the client.
func (e *Engine) RunInterview(ctx context.Context, id string, answers domain.InterviewAnswers) (domain.ScoreResult, error) {
	if answers.MonthlyIncome <= 0 {
		return domain.ScoreResult{}, fmt.Errorf("%w: monthly income must be positive", domain.ErrInvalidAmount)
	}
	if answers.MonthlyExpenses < 0 {
		return domain.ScoreResult{}, fmt.Errorf("%w: monthly expenses cannot be negative", domain.ErrInvalidAmount)
	}
	if answers.Dependents < 0 {
		answers.Dependents = 0
	}
	id = identity.Normalize(id)
	score := ComputeScore(answers)

	var result domain.ScoreResult
	err := e.locks.WithLock(ctx, id, func(ctx context.Context) error {
		client, err := e.clients.UpdateClientScore(ctx, id, score)
		if err != nil {
			return fmt.Errorf("failed to update score: %w", err)
		}
		result = domain.ScoreResult{Identifier: id, Name: client.Name, Score: score, Answers: answers}
		return nil
	})
	if err != nil {
		return domain.ScoreResult{}, err
	}

	e.logger.Info("score updated", "identifier", id, "score", score)
	if e.hooks.OnScore != nil {
		e.hooks.OnScore(ctx, &domain.ScoreEvent{
			EventBase:  domain.EventBase{Timestamp: e.now(), Type: domain.EventScore},
			Identifier: id,
			Score:      score,
		})
	}
	return result, nil
}

// LimitUpdateError reports an approval whose ledger entry was written but whose
// limit update failed.
type LimitUpdateError struct {
	Entry domain.LedgerEntry
	Err   error
}

func (e *LimitUpdateError) Error() string {
	return fmt.Sprintf("decision %s recorded but limit update failed: %v", e.Entry.ID, e.Err)
}

func (e *LimitUpdateError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the client does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrClientNotFound)
}
