package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rounds (
  round_id     TEXT PRIMARY KEY,
  table_id     TEXT NOT NULL,
  resolved_at  INTEGER NOT NULL,
  dealer_cards TEXT NOT NULL,
  dealer_total INTEGER NOT NULL,
  dealer_bust  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS rounds_table_resolved ON rounds(table_id, resolved_at DESC);
CREATE TABLE IF NOT EXISTS seat_results (
  round_id TEXT NOT NULL REFERENCES rounds(round_id) ON DELETE CASCADE,
  seat     INTEGER NOT NULL,
  cards    TEXT NOT NULL,
  total    INTEGER NOT NULL,
  bust     INTEGER NOT NULL,
  outcome  TEXT NOT NULL,
  PRIMARY KEY (round_id, seat)
);
`

// SQLiteStore stores rounds in a SQLite database file
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) a SQLite database. Use ":memory:"
// for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" {
		if parent := filepath.Dir(path); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record stores a round and its seat results in one transaction
func (s *SQLiteStore) Record(ctx context.Context, r Round) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rounds(round_id, table_id, resolved_at, dealer_cards, dealer_total, dealer_bust)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.RoundID, r.TableID, r.ResolvedAt.UnixMilli(), r.DealerCards, r.DealerTotal, r.DealerBust); err != nil {
		return fmt.Errorf("insert round %s: %w", r.RoundID, err)
	}

	for _, seat := range r.Seats {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO seat_results(round_id, seat, cards, total, bust, outcome)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.RoundID, seat.Seat, seat.Cards, seat.Total, seat.Bust, seat.Outcome); err != nil {
			return fmt.Errorf("insert seat %d of %s: %w", seat.Seat, r.RoundID, err)
		}
	}
	return tx.Commit()
}

// Recent returns the latest rounds for a table, newest first
func (s *SQLiteStore) Recent(ctx context.Context, tableID string, limit int) ([]Round, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT round_id, table_id, resolved_at, dealer_cards, dealer_total, dealer_bust
		  FROM rounds
		 WHERE table_id = ?
		 ORDER BY resolved_at DESC, round_id DESC
		 LIMIT ?
	`, tableID, limit)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		var r Round
		var resolvedAt int64
		if err := rows.Scan(&r.RoundID, &r.TableID, &resolvedAt, &r.DealerCards, &r.DealerTotal, &r.DealerBust); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.ResolvedAt = time.UnixMilli(resolvedAt).UTC()
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rounds {
		seats, err := s.seats(ctx, rounds[i].RoundID)
		if err != nil {
			return nil, err
		}
		rounds[i].Seats = seats
	}
	return rounds, nil
}

func (s *SQLiteStore) seats(ctx context.Context, roundID string) ([]SeatRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seat, cards, total, bust, outcome
		  FROM seat_results
		 WHERE round_id = ?
		 ORDER BY seat
	`, roundID)
	if err != nil {
		return nil, fmt.Errorf("query seats of %s: %w", roundID, err)
	}
	defer rows.Close()

	var seats []SeatRecord
	for rows.Next() {
		var sr SeatRecord
		if err := rows.Scan(&sr.Seat, &sr.Cards, &sr.Total, &sr.Bust, &sr.Outcome); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, sr)
	}
	return seats, rows.Err()
}
