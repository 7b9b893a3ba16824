package ports

import (
	"context"

	"github.com/aretw0/guiche/pkg/domain"
)

// SessionStore defines the interface for persisting session records.
type SessionStore interface {
	// Save persists the session for a given session ID.
	Save(ctx context.Context, sessionID string, session *domain.Session) error

	// Load retrieves the session for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}

// IdentityStore holds client records keyed by normalized identifier.
// Identifiers passed in are expected in normalized (digit-only) form.
type IdentityStore interface {
	// FindClient returns domain.ErrClientNotFound if no client matches.
	FindClient(ctx context.Context, id string) (*domain.Client, error)

	// UpdateClientScore overwrites the score only.
	UpdateClientScore(ctx context.Context, id string, score float64) (*domain.Client, error)

	// UpdateClientLimit overwrites the current limit only.
	UpdateClientLimit(ctx context.Context, id string, limit float64) (*domain.Client, error)
}

// ScoreBandTable resolves the maximum limit allowed for a score.
type ScoreBandTable interface {
	// LookupMaxAllowedLimit returns 0 when no band matches.
	LookupMaxAllowedLimit(ctx context.Context, score float64) (float64, error)
}

// DecisionLedger is the append-only log of credit decisions.
// Implementations must surface every failure; they never rewrite or delete entries.
type DecisionLedger interface {
	AppendDecision(ctx context.Context, entry domain.LedgerEntry) error

	// ListDecisions returns entries in append order, optionally filtered by identifier ("" for all).
	ListDecisions(ctx context.Context, id string) ([]domain.LedgerEntry, error)
}
