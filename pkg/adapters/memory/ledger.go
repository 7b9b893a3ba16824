package memory

import (
	"context"
	"sync"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
)

// Ledger implements ports.DecisionLedger as an append-only slice.
type Ledger struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// AppendDecision records an entry.
func (l *Ledger) AppendDecision(ctx context.Context, entry domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// ListDecisions returns a copy of the entries, in append order.
func (l *Ledger) ListDecisions(ctx context.Context, id string) ([]domain.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id = identity.Normalize(id)
	out := make([]domain.LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if id == "" || e.Identifier == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
