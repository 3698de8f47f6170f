package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinseco/pkg/core/calc"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs    []execCall
	execTag  pgconn.CommandTag
	execErr  error
	rows     [][]any
	row      []any
	rowErr   error
	queryErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return f.execTag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{rows: f.rows, pos: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeRow{vals: f.row, err: f.rowErr}
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.vals, dest)
}

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.pos], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.rows[r.pos], dest)
}

func assign(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan: %d values for %d targets", len(vals), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = vals[i].(string)
		case *int:
			*p = vals[i].(int)
		case *[]byte:
			*p = vals[i].([]byte)
		case *[]string:
			*p = append([]string(nil), vals[i].([]string)...)
		case *time.Time:
			*p = vals[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}

func TestPGRepositoryAddFinances(t *testing.T) {
	db := &fakeDB{}
	repo := NewPGRepository(db)

	err := repo.AddFinances(context.Background(), "aapl", "2024-FY", calc.Finances{Revenue: calc.Float(10)})
	require.NoError(t, err)

	require.Len(t, db.execs, 1)
	call := db.execs[0]
	assert.Contains(t, call.sql, "ON CONFLICT (ticker, period)")
	require.Len(t, call.args, 4)
	assert.Equal(t, "AAPL", call.args[1])
	assert.Equal(t, "2024-FY", call.args[2])

	var stored calc.Finances
	require.NoError(t, json.Unmarshal(call.args[3].([]byte), &stored))
	assert.Equal(t, 10.0, *stored.Revenue)

	assert.ErrorIs(t, repo.AddFinances(context.Background(), "AAPL", "bad", calc.Finances{}), ErrInvalid)
}

func TestPGRepositoryGetTicker(t *testing.T) {
	db := &fakeDB{rows: [][]any{
		{"2024-FY", []byte(`{"revenue": 400, "eps": 2}`)},
		{"2023-FY", []byte(`{"revenue": 300}`)},
	}}
	repo := NewPGRepository(db)

	got, err := repo.GetTicker(context.Background(), "aapl")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 400.0, *got["2024-FY"].Revenue)

	db.rows = nil
	_, err = repo.GetTicker(context.Background(), "aapl")
	assert.ErrorIs(t, err, ErrNotFound)

	db.queryErr = errors.New("connection reset")
	_, err = repo.GetTicker(context.Background(), "aapl")
	assert.ErrorContains(t, err, "connection reset")
}

func TestPGRepositoryListAndCount(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{
		row:  []any{2},
		rows: [][]any{{"AAPL", []string{"2024-FY", "2023-FY"}, stamp}},
	}
	repo := NewPGRepository(db)

	n, err := repo.CountTickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := repo.ListTickers(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"2023-FY", "2024-FY"}, list[0].Periods)
	assert.Equal(t, stamp, list[0].UpdatedAt)
}

func TestPGRepositoryDelete(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("DELETE 0")}
	repo := NewPGRepository(db)

	assert.ErrorIs(t, repo.DeleteTicker(context.Background(), "AAPL"), ErrNotFound)

	db.execTag = pgconn.NewCommandTag("DELETE 3")
	require.NoError(t, repo.DeleteTicker(context.Background(), "AAPL"))
	require.NoError(t, repo.DeletePeriod(context.Background(), "AAPL", "2024-FY"))
	assert.True(t, strings.Contains(db.execs[len(db.execs)-1].sql, "period = $2"))
}

func TestPGRepositoryEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewPGRepository(db).EnsureSchema(context.Background()))
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS finances")

	db.execErr = errors.New("permission denied")
	assert.Error(t, NewPGRepository(db).EnsureSchema(context.Background()))
}
