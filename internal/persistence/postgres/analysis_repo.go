// Package postgres implements the analysis audit repository on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tradeforge/conviction/internal/domain"
	"github.com/tradeforge/conviction/internal/persistence"
)

// Schema for the audit table. Applied by operators, not by the service.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id         UUID PRIMARY KEY,
    symbol     TEXT NOT NULL,
    as_of      TIMESTAMPTZ NOT NULL,
    signal     TEXT NOT NULL,
    score      DOUBLE PRECISION NOT NULL,
    result     JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS analyses_symbol_idx ON analyses (symbol, created_at DESC);
`

type analysisRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Connect opens a PostgreSQL connection pool for the audit store.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	return db, nil
}

// NewAnalysisRepo creates the PostgreSQL audit repository.
func NewAnalysisRepo(db *sqlx.DB, timeout time.Duration) persistence.AnalysisRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &analysisRepo{db: db, timeout: timeout}
}

func (r *analysisRepo) Insert(ctx context.Context, rec persistence.AnalysisRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal analysis result: %w", err)
	}

	const query = `
		INSERT INTO analyses (id, symbol, as_of, signal, score, result)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Symbol, rec.AsOf, rec.Signal, rec.Score, payload); err != nil {
		return fmt.Errorf("insert analysis %s: %w", rec.ID, err)
	}
	return nil
}

func (r *analysisRepo) RecentBySymbol(ctx context.Context, symbol string, limit int) ([]persistence.AnalysisRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, symbol, as_of, signal, score, result, created_at
		FROM analyses
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryxContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []persistence.AnalysisRecord
	for rows.Next() {
		var rec persistence.AnalysisRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.AsOf, &rec.Signal, &rec.Score, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		var result domain.AnalysisResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("decode analysis %s: %w", rec.ID, err)
		}
		rec.Result = result
		out = append(out, rec)
	}
	return out, rows.Err()
}
