package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
	backend "github.com/redis/go-redis/v9"
)

// Ledger implements ports.DecisionLedger as Redis lists. Entries are pushed
// to a global list and to a per-identifier list in one transaction and are
// never trimmed.
type Ledger struct {
	client *backend.Client
	prefix string
}

// NewLedger creates a Redis-backed decision ledger.
func NewLedger(client *backend.Client, prefix string) *Ledger {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Ledger{client: client, prefix: prefix}
}

func (l *Ledger) allKey() string {
	return l.prefix + "ledger"
}

func (l *Ledger) clientKey(id string) string {
	return l.prefix + "ledger:" + id
}

// AppendDecision records an entry.
func (l *Ledger) AppendDecision(ctx context.Context, entry domain.LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, l.allKey(), data)
	pipe.RPush(ctx, l.clientKey(entry.Identifier), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListDecisions returns entries in append order; an empty id lists everything.
func (l *Ledger) ListDecisions(ctx context.Context, id string) ([]domain.LedgerEntry, error) {
	key := l.allKey()
	if id = identity.Normalize(id); id != "" {
		key = l.clientKey(id)
	}

	raw, err := l.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	out := make([]domain.LedgerEntry, 0, len(raw))
	for _, r := range raw {
		var e domain.LedgerEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("corrupt ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
