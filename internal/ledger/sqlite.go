package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every settled round in SQLite with the totals in a
// single-row table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" {
		if parent := filepath.Dir(path); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{`PRAGMA busy_timeout = 5000;`, `PRAGMA journal_mode = WAL;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS ledger_rounds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    round_id TEXT NOT NULL UNIQUE,
    settled_at_ms INTEGER NOT NULL,
    outcomes_json TEXT NOT NULL DEFAULT '[]',
    dealer_value INTEGER NOT NULL,
    staked INTEGER NOT NULL,
    paid INTEGER NOT NULL,
    balance INTEGER NOT NULL,
    anonymous INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_rounds_settled_at ON ledger_rounds(settled_at_ms DESC, id DESC)`,
		`
CREATE TABLE IF NOT EXISTS ledger_totals (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    rounds INTEGER NOT NULL DEFAULT 0,
    hands INTEGER NOT NULL DEFAULT 0,
    wins INTEGER NOT NULL DEFAULT 0,
    losses INTEGER NOT NULL DEFAULT 0,
    pushes INTEGER NOT NULL DEFAULT 0,
    blackjacks INTEGER NOT NULL DEFAULT 0,
    staked INTEGER NOT NULL DEFAULT 0,
    paid INTEGER NOT NULL DEFAULT 0,
    balance INTEGER NOT NULL DEFAULT 0,
    updated_at_ms INTEGER NOT NULL DEFAULT 0
)`,
		`INSERT INTO ledger_totals (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadTotals(ctx context.Context, q querier) (Totals, error) {
	var t Totals
	var updatedAtMs int64
	err := q.QueryRowContext(ctx, `
SELECT rounds, hands, wins, losses, pushes, blackjacks, staked, paid, balance, updated_at_ms
FROM ledger_totals
WHERE id = 1
`).Scan(&t.Rounds, &t.Hands, &t.Wins, &t.Losses, &t.Pushes, &t.Blackjacks, &t.Staked, &t.Paid, &t.Balance, &updatedAtMs)
	if err != nil {
		return Totals{}, err
	}
	if updatedAtMs != 0 {
		t.UpdatedAt = time.UnixMilli(updatedAtMs).UTC()
	}
	return t, nil
}

func (s *SQLiteStore) Totals(ctx context.Context) (Totals, error) {
	return loadTotals(ctx, s.db)
}

func (s *SQLiteStore) Record(ctx context.Context, entry Entry) (Totals, error) {
	outcomes, err := json.Marshal(entry.Outcomes)
	if err != nil {
		return Totals{}, fmt.Errorf("marshal outcomes: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Totals{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO ledger_rounds (round_id, settled_at_ms, outcomes_json, dealer_value, staked, paid, balance, anonymous)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (round_id) DO NOTHING
`, entry.RoundID, entry.SettledAt.UTC().UnixMilli(), string(outcomes), entry.DealerValue, entry.Staked, entry.Paid, entry.Balance, entry.Anonymous)
	if err != nil {
		return Totals{}, fmt.Errorf("insert round %s: %w", entry.RoundID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Totals{}, err
	} else if n == 0 {
		return loadTotals(ctx, tx)
	}

	totals, err := loadTotals(ctx, tx)
	if err != nil {
		return Totals{}, err
	}
	totals.apply(entry)

	_, err = tx.ExecContext(ctx, `
UPDATE ledger_totals
SET rounds = ?, hands = ?, wins = ?, losses = ?, pushes = ?, blackjacks = ?,
    staked = ?, paid = ?, balance = ?, updated_at_ms = ?
WHERE id = 1
`, totals.Rounds, totals.Hands, totals.Wins, totals.Losses, totals.Pushes, totals.Blackjacks,
		totals.Staked, totals.Paid, totals.Balance, totals.UpdatedAt.UnixMilli())
	if err != nil {
		return Totals{}, fmt.Errorf("update totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Totals{}, err
	}
	return totals, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT round_id, settled_at_ms, outcomes_json, dealer_value, staked, paid, balance, anonymous
FROM ledger_rounds
ORDER BY settled_at_ms DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var settledAtMs int64
		var outcomesRaw []byte
		if err := rows.Scan(&e.RoundID, &settledAtMs, &outcomesRaw, &e.DealerValue, &e.Staked, &e.Paid, &e.Balance, &e.Anonymous); err != nil {
			return nil, err
		}
		e.SettledAt = time.UnixMilli(settledAtMs).UTC()
		if err := json.Unmarshal(outcomesRaw, &e.Outcomes); err != nil {
			return nil, fmt.Errorf("decode outcomes for %s: %w", e.RoundID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}
