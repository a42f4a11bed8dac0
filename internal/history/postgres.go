package history

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresStore stores rounds in Postgres through a connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and migrates
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Record stores a round and its seat results in one transaction
func (s *PostgresStore) Record(ctx context.Context, r Round) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO rounds(round_id, table_id, resolved_at, dealer_cards, dealer_total, dealer_bust)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, r.RoundID, r.TableID, r.ResolvedAt, r.DealerCards, r.DealerTotal, r.DealerBust); err != nil {
			return fmt.Errorf("insert round %s: %w", r.RoundID, err)
		}

		batch := &pgx.Batch{}
		for _, seat := range r.Seats {
			batch.Queue(`
				INSERT INTO seat_results(round_id, seat, cards, total, bust, outcome)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, r.RoundID, seat.Seat, seat.Cards, seat.Total, seat.Bust, seat.Outcome)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert seats of %s: %w", r.RoundID, err)
		}
		return nil
	})
}

// Recent returns the latest rounds for a table, newest first
func (s *PostgresStore) Recent(ctx context.Context, tableID string, limit int) ([]Round, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.round_id, r.table_id, r.resolved_at, r.dealer_cards, r.dealer_total, r.dealer_bust,
		       s.seat, s.cards, s.total, s.bust, s.outcome
		  FROM (SELECT * FROM rounds WHERE table_id = $1
		         ORDER BY resolved_at DESC, round_id DESC LIMIT $2) r
		  JOIN seat_results s ON s.round_id = r.round_id
		 ORDER BY r.resolved_at DESC, r.round_id DESC, s.seat
	`, tableID, limit)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		var r Round
		var sr SeatRecord
		if err := rows.Scan(&r.RoundID, &r.TableID, &r.ResolvedAt, &r.DealerCards, &r.DealerTotal, &r.DealerBust,
			&sr.Seat, &sr.Cards, &sr.Total, &sr.Bust, &sr.Outcome); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if n := len(rounds); n > 0 && rounds[n-1].RoundID == r.RoundID {
			rounds[n-1].Seats = append(rounds[n-1].Seats, sr)
			continue
		}
		r.Seats = []SeatRecord{sr}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}
