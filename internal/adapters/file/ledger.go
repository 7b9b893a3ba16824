package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
)

// DefaultLedgerPath is used when no path is given.
var DefaultLedgerPath = filepath.Join(".guiche", "ledger.jsonl")

// Ledger implements ports.DecisionLedger as an append-only JSON Lines file.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// NewLedger creates a ledger writing to path.
func NewLedger(path string) *Ledger {
	if path == "" {
		path = DefaultLedgerPath
	}
	return &Ledger{path: path}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// AppendDecision writes one line and syncs it before returning.
func (l *Ledger) AppendDecision(ctx context.Context, entry domain.LedgerEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to ensure ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to fsync ledger: %w", err)
	}
	return f.Close()
}

// ListDecisions reads entries in append order; an empty id lists everything.
func (l *Ledger) ListDecisions(ctx context.Context, id string) ([]domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.LedgerEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	id = identity.Normalize(id)
	out := []domain.LedgerEntry{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e domain.LedgerEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("corrupt ledger line %d: %w", lineNo, err)
		}
		if id == "" || e.Identifier == id {
			out = append(out, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return out, nil
}
