package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"intrinseco/pkg/core/calc"
)

// DefaultDir is used by NewFileRepository when no directory is given.
var DefaultDir = filepath.Join(".cache", "intrinseco", "finances")

// record is one stored period.
type record struct {
	ID        string        `json:"id"`
	Finances  calc.Finances `json:"finances"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// tickerFile is the on-disk layout of <dir>/<TICKER>.json.
type tickerFile struct {
	Ticker  string            `json:"ticker"`
	Periods map[string]record `json:"periods"`
}

// FileRepository keeps one JSON file per ticker.
type FileRepository struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// NewFileRepository creates dir if needed.
func NewFileRepository(dir string) (*FileRepository, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	return &FileRepository{dir: dir, now: time.Now}, nil
}

func (r *FileRepository) CountTickers(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.tickers()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

func (r *FileRepository) ListTickers(ctx context.Context, page, pageSize int) ([]TickerSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.tickers()
	if err != nil {
		return nil, err
	}
	offset, limit := pageBounds(page, pageSize)
	if offset >= len(names) {
		return []TickerSummary{}, nil
	}
	names = names[offset:min(offset+limit, len(names))]

	out := make([]TickerSummary, 0, len(names))
	for _, name := range names {
		tf, err := r.load(name)
		if err != nil {
			return nil, err
		}
		s := TickerSummary{Ticker: tf.Ticker, Periods: make([]string, 0, len(tf.Periods))}
		for period, rec := range tf.Periods {
			s.Periods = append(s.Periods, period)
			if rec.UpdatedAt.After(s.UpdatedAt) {
				s.UpdatedAt = rec.UpdatedAt
			}
		}
		calc.SortPeriods(s.Periods)
		out = append(out, s)
	}
	return out, nil
}

func (r *FileRepository) GetTicker(ctx context.Context, ticker string) (map[string]calc.Finances, error) {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tf, err := r.load(t)
	if err != nil {
		return nil, err
	}
	out := make(map[string]calc.Finances, len(tf.Periods))
	for period, rec := range tf.Periods {
		out[period] = rec.Finances
	}
	return out, nil
}

func (r *FileRepository) AddFinances(ctx context.Context, ticker, period string, f calc.Finances) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if err := ValidatePeriod(period); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tf, err := r.load(t)
	if errors.Is(err, ErrNotFound) {
		tf = &tickerFile{Ticker: t, Periods: make(map[string]record)}
	} else if err != nil {
		return err
	}

	rec, ok := tf.Periods[period]
	if !ok {
		rec.ID = uuid.NewString()
	}
	rec.Finances = f
	rec.UpdatedAt = r.now().UTC()
	tf.Periods[period] = rec
	return r.save(tf)
}

func (r *FileRepository) DeletePeriod(ctx context.Context, ticker, period string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tf, err := r.load(t)
	if err != nil {
		return err
	}
	if _, ok := tf.Periods[period]; !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, t, period)
	}
	delete(tf.Periods, period)
	if len(tf.Periods) == 0 {
		return os.Remove(r.path(t))
	}
	return r.save(tf)
}

func (r *FileRepository) DeleteTicker(ctx context.Context, ticker string) error {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path(t)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: ticker %s", ErrNotFound, t)
		}
		return fmt.Errorf("failed to delete %s: %w", t, err)
	}
	return nil
}

func (r *FileRepository) path(ticker string) string {
	return filepath.Join(r.dir, ticker+".json")
}

// tickers returns the stored tickers in sorted order.
func (r *FileRepository) tickers() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (r *FileRepository) load(ticker string) (*tickerFile, error) {
	data, err := os.ReadFile(r.path(ticker))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: ticker %s", ErrNotFound, ticker)
		}
		return nil, fmt.Errorf("failed to read %s: %w", ticker, err)
	}
	var tf tickerFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", ticker, err)
	}
	if tf.Periods == nil {
		tf.Periods = make(map[string]record)
	}
	if tf.Ticker == "" {
		tf.Ticker = ticker
	}
	return &tf, nil
}

// save replaces the ticker file atomically.
func (r *FileRepository) save(tf *tickerFile) error {
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", tf.Ticker, err)
	}
	tmp, err := os.CreateTemp(r.dir, tf.Ticker+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", tf.Ticker, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", tf.Ticker, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", tf.Ticker, err)
	}
	if err := os.Rename(tmp.Name(), r.path(tf.Ticker)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", tf.Ticker, err)
	}
	return nil
}
