// Package store persists extracted finances per ticker and period. Postgres
// is used when a pool is available, otherwise one JSON file per ticker.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"intrinseco/pkg/core/calc"
)

var (
	// ErrNotFound is returned when a ticker or period does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for malformed tickers or periods.
	ErrInvalid = errors.New("invalid argument")
)

// DefaultPageSize applies when ListTickers gets a non-positive page size.
const DefaultPageSize = 20

var (
	tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,15}$`)
	periodPattern = regexp.MustCompile(`^\d{4}-[A-Za-z0-9]+$`)
)

// TickerSummary is one row of the ticker listing.
type TickerSummary struct {
	Ticker    string    `json:"ticker"`
	Periods   []string  `json:"periods"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository stores finances keyed by ticker and period ("2024-FY").
type Repository interface {
	CountTickers(ctx context.Context) (int, error)
	ListTickers(ctx context.Context, page, pageSize int) ([]TickerSummary, error)
	GetTicker(ctx context.Context, ticker string) (map[string]calc.Finances, error)
	AddFinances(ctx context.Context, ticker, period string, f calc.Finances) error
	DeletePeriod(ctx context.Context, ticker, period string) error
	DeleteTicker(ctx context.Context, ticker string) error
}

// NewRepository returns a Postgres repository when pool is set, otherwise a
// file repository rooted at dir.
func NewRepository(ctx context.Context, pool *pgxpool.Pool, dir string) (Repository, error) {
	if pool != nil {
		repo := NewPGRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	}
	return NewFileRepository(dir)
}

// NormalizeTicker upper-cases and validates a ticker symbol.
func NormalizeTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: ticker %q", ErrInvalid, ticker)
	}
	return t, nil
}

// ValidatePeriod checks the "YYYY-P" period format.
func ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return fmt.Errorf("%w: period %q", ErrInvalid, period)
	}
	return nil
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page * pageSize, pageSize
}
