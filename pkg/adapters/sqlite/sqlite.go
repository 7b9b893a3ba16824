/*
Package sqlite provides an IdentityStore, ScoreBandTable and DecisionLedger
backed by SQLite through the pure-Go modernc.org/sqlite driver.

The decisions table is protected by triggers that abort any UPDATE or DELETE,
so the ledger stays append-only even for ad-hoc SQL clients.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/guiche/pkg/domain"
	"github.com/aretw0/guiche/pkg/identity"
	"github.com/aretw0/guiche/pkg/ports"

	_ "modernc.org/sqlite"
)

var (
	_ ports.IdentityStore  = (*Store)(nil)
	_ ports.ScoreBandTable = (*Store)(nil)
	_ ports.DecisionLedger = (*Store)(nil)
)

// Open opens a SQLite database. A single connection is used: SQLite allows one
// writer at a time and ":memory:" databases are per connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	return db, nil
}

// Store is backed by a *sql.DB using the "sqlite" driver.
type Store struct {
	db *sql.DB
}

// NewStore initializes the schema in db and returns a Store.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			birth_date TEXT NOT NULL,
			score REAL NOT NULL DEFAULT 0,
			credit_limit REAL NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS score_bands (
			min_score INTEGER NOT NULL,
			max_score INTEGER NOT NULL,
			max_limit REAL NOT NULL,
			PRIMARY KEY (min_score, max_score)
		);

		CREATE TABLE IF NOT EXISTS decisions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			identifier TEXT NOT NULL,
			decided_at INTEGER NOT NULL,
			current_limit REAL NOT NULL,
			requested_limit REAL NOT NULL,
			max_allowed REAL NOT NULL,
			status TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS decisions_identifier ON decisions (identifier, seq);

		CREATE TRIGGER IF NOT EXISTS decisions_no_update BEFORE UPDATE ON decisions
		BEGIN SELECT RAISE(ABORT, 'decision ledger is append-only'); END;

		CREATE TRIGGER IF NOT EXISTS decisions_no_delete BEFORE DELETE ON decisions
		BEGIN SELECT RAISE(ABORT, 'decision ledger is append-only'); END;
	`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutClient inserts or replaces a client.
func (s *Store) PutClient(ctx context.Context, c domain.Client) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, birth_date, score, credit_limit)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			birth_date = excluded.birth_date,
			score = excluded.score,
			credit_limit = excluded.credit_limit
	`, identity.Normalize(c.ID), c.Name, c.BirthDate, c.Score, c.Limit)
	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}

// ListClients returns every client ordered by identifier.
func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, birth_date, score, credit_limit FROM clients ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	out := []domain.Client{}
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.BirthDate, &c.Score, &c.Limit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findClient(ctx context.Context, q querier, id string) (*domain.Client, error) {
	var c domain.Client
	err := q.QueryRowContext(ctx, `
		SELECT id, name, birth_date, score, credit_limit FROM clients WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.BirthDate, &c.Score, &c.Limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query client: %w", err)
	}
	return &c, nil
}

// FindClient returns the client with the normalized identifier.
func (s *Store) FindClient(ctx context.Context, id string) (*domain.Client, error) {
	return findClient(ctx, s.db, identity.Normalize(id))
}

// UpdateClientScore overwrites the score.
func (s *Store) UpdateClientScore(ctx context.Context, id string, score float64) (*domain.Client, error) {
	return s.updateClient(ctx, `UPDATE clients SET score = ? WHERE id = ?`, identity.Normalize(id), score)
}

// UpdateClientLimit overwrites the current limit.
func (s *Store) UpdateClientLimit(ctx context.Context, id string, limit float64) (*domain.Client, error) {
	return s.updateClient(ctx, `UPDATE clients SET credit_limit = ? WHERE id = ?`, identity.Normalize(id), limit)
}

func (s *Store) updateClient(ctx context.Context, query, id string, value float64) (*domain.Client, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query, value, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrClientNotFound
	}

	client, err := findClient(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit client update: %w", err)
	}
	return client, nil
}

// ReplaceBands swaps the whole band table in one transaction.
func (s *Store) ReplaceBands(ctx context.Context, bands []domain.ScoreBand) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM score_bands`); err != nil {
		return fmt.Errorf("failed to clear score bands: %w", err)
	}
	for _, b := range bands {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO score_bands (min_score, max_score, max_limit) VALUES (?, ?, ?)
		`, b.Min, b.Max, b.MaxLimit); err != nil {
			return fmt.Errorf("failed to insert score band %d-%d: %w", b.Min, b.Max, err)
		}
	}
	return tx.Commit()
}

// Bands returns the table ordered by lower bound.
func (s *Store) Bands(ctx context.Context) ([]domain.ScoreBand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT min_score, max_score, max_limit FROM score_bands ORDER BY min_score
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list score bands: %w", err)
	}
	defer rows.Close()

	out := []domain.ScoreBand{}
	for rows.Next() {
		var b domain.ScoreBand
		if err := rows.Scan(&b.Min, &b.Max, &b.MaxLimit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LookupMaxAllowedLimit returns 0 when no band contains score.
func (s *Store) LookupMaxAllowedLimit(ctx context.Context, score float64) (float64, error) {
	var limit float64
	err := s.db.QueryRowContext(ctx, `
		SELECT max_limit FROM score_bands
		WHERE min_score <= ? AND ? <= max_score
		ORDER BY min_score LIMIT 1
	`, score, score).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up score band: %w", err)
	}
	return limit, nil
}

// AppendDecision records an entry.
func (s *Store) AppendDecision(ctx context.Context, e domain.LedgerEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, identifier, decided_at, current_limit, requested_limit, max_allowed, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Identifier, e.Timestamp.UnixNano(), e.CurrentLimit, e.RequestedLimit, e.MaxAllowed, string(e.Status))
	if err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

// ListDecisions returns entries in append order; an empty id lists everything.
func (s *Store) ListDecisions(ctx context.Context, id string) ([]domain.LedgerEntry, error) {
	query := `SELECT id, identifier, decided_at, current_limit, requested_limit, max_allowed, status FROM decisions`
	var args []any
	if id = identity.Normalize(id); id != "" {
		query += ` WHERE identifier = ?`
		args = append(args, id)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	out := []domain.LedgerEntry{}
	for rows.Next() {
		var (
			e      domain.LedgerEntry
			nanos  int64
			status string
		)
		if err := rows.Scan(&e.ID, &e.Identifier, &nanos, &e.CurrentLimit, &e.RequestedLimit, &e.MaxAllowed, &status); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, nanos).UTC()
		e.Status = domain.DecisionStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
