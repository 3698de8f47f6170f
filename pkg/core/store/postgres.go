package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"intrinseco/pkg/core/calc"
	"intrinseco/pkg/core/logging"
)

// DB is the subset of *pgxpool.Pool used by PGRepository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS finances (
	id         UUID PRIMARY KEY,
	ticker     TEXT NOT NULL,
	period     TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (ticker, period)
)`

// PGRepository stores finances in the finances table.
type PGRepository struct {
	db DB
}

// NewPGRepository wraps db.
func NewPGRepository(db DB) *PGRepository {
	return &PGRepository{db: db}
}

// EnsureSchema creates the finances table if needed.
func (r *PGRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create finances table: %w", err)
	}
	return nil
}

func (r *PGRepository) CountTickers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT ticker) FROM finances`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tickers: %w", err)
	}
	return n, nil
}

func (r *PGRepository) ListTickers(ctx context.Context, page, pageSize int) ([]TickerSummary, error) {
	offset, limit := pageBounds(page, pageSize)
	query := `
		SELECT ticker, array_agg(period ORDER BY period), MAX(updated_at)
		FROM finances
		GROUP BY ticker
		ORDER BY ticker
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	out := []TickerSummary{}
	for rows.Next() {
		var s TickerSummary
		if err := rows.Scan(&s.Ticker, &s.Periods, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		calc.SortPeriods(s.Periods)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepository) GetTicker(ctx context.Context, ticker string) (map[string]calc.Finances, error) {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT period, data FROM finances WHERE ticker = $1`, t)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", t, err)
	}
	defer rows.Close()

	out := make(map[string]calc.Finances)
	for rows.Next() {
		var (
			period string
			data   []byte
		)
		if err := rows.Scan(&period, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t, err)
		}
		var f calc.Finances
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode %s %s: %w", t, period, err)
		}
		out[period] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: ticker %s", ErrNotFound, t)
	}
	return out, nil
}

func (r *PGRepository) AddFinances(ctx context.Context, ticker, period string, f calc.Finances) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if err := ValidatePeriod(period); err != nil {
		return err
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal finances: %w", err)
	}

	query := `
		INSERT INTO finances (id, ticker, period, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker, period)
		DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, uuid.New(), t, period, data); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", t, period, err)
	}
	logging.Named("store").Debug("finances saved", zap.String("ticker", t), zap.String("period", period))
	return nil
}

func (r *PGRepository) DeletePeriod(ctx context.Context, ticker, period string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM finances WHERE ticker = $1 AND period = $2`, t, period)
	return deleted(tag, err, t+" "+period)
}

func (r *PGRepository) DeleteTicker(ctx context.Context, ticker string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM finances WHERE ticker = $1`, t)
	return deleted(tag, err, t)
}

func deleted(tag pgconn.CommandTag, err error, what string) error {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, what)
		}
		return fmt.Errorf("failed to delete %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}
