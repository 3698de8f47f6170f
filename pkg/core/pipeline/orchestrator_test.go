package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinseco/pkg/core/calc"
	"intrinseco/pkg/core/chunker"
	"intrinseco/pkg/core/clean"
	"intrinseco/pkg/core/extract"
	"intrinseco/pkg/core/ingest"
	"intrinseco/pkg/core/store"
	"intrinseco/pkg/core/utils"
)

// --- Mocks ---

type mockLoader struct {
	text string
	err  error
}

func (m *mockLoader) Load(_ context.Context, path, _, _ string) (ingest.Document, error) {
	if m.err != nil {
		return ingest.Document{}, m.err
	}
	if strings.Contains(path, "broken") {
		return ingest.Document{}, ingest.ErrNoText
	}
	return ingest.Document{Name: path, Format: ingest.FormatHTML, Text: m.text}, nil
}

type mockChunker struct {
	out chunker.Output
	err error
}

func (m *mockChunker) GetChunks(context.Context, string, int) (chunker.Output, error) {
	return m.out, m.err
}

type mockExtractor struct {
	mu      sync.Mutex
	calls   int
	minHits int
	cleaned map[chunker.Category]clean.CleanedChunk
	result  extract.Result
	err     error
}

func (m *mockExtractor) Run(_ context.Context, cleaned map[chunker.Category]clean.CleanedChunk, _ map[chunker.Category]int, minHits int, _ string) (extract.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.minHits = minHits
	m.cleaned = cleaned
	return m.result, m.err
}

type mockRepo struct {
	store.Repository
	mu    sync.Mutex
	saved map[string]calc.Finances
}

func (m *mockRepo) AddFinances(_ context.Context, ticker, period string, f calc.Finances) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]calc.Finances)
	}
	m.saved[ticker+"/"+period] = f
	return nil
}

func chunkOutput(hits int) chunker.Output {
	return chunker.Output{
		Language: chunker.EN,
		Balance:  chunker.ChunkResult{Chunk: "Balance sheet (in millions)", Hits: hits},
		Income:   chunker.ChunkResult{Chunk: "Income statement", Hits: hits},
		CashFlow: chunker.ChunkResult{Chunk: "Cash flows", Hits: 1},
	}
}

func extractedResult() extract.Result {
	res := extract.NewResult()
	res.Balance["units"] = calc.Float(1e6)
	res.Balance["current_assets"] = calc.Float(100)
	res.Balance["non_current_assets"] = calc.Float(300)
	res.Balance["total_assets"] = calc.Float(400)
	res.Balance["current_liabilities"] = calc.Float(50)
	res.Balance["non_current_liabilities"] = calc.Float(150)
	res.Balance["total_liabilities"] = calc.Float(200)
	res.Balance["equity"] = calc.Float(200)
	res.Income["net_income"] = calc.Float(40e6)
	res.Income["eps"] = calc.Float(2)
	return res
}

// --- Tests ---

func TestProcess(t *testing.T) {
	ext := &mockExtractor{result: extractedResult()}
	repo := &mockRepo{}
	o := NewOrchestrator(&mockLoader{text: "normalized"}, &mockChunker{out: chunkOutput(5)}, ext, WithRepository(repo))

	report, err := o.Process(context.Background(), Job{Path: "annual.html", Ticker: "msft", Period: "2024-FY"})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "MSFT", report.Job.Ticker)
	assert.Equal(t, chunker.EN, report.Language)
	assert.Equal(t, []chunker.Category{chunker.CashFlow}, report.Skipped)
	assert.Equal(t, clean.UnitsMillions, report.Units[chunker.Balance])
	assert.Equal(t, chunker.DefaultMinHits, ext.minHits)
	assert.Equal(t, "Balance sheet (in millions)", ext.cleaned[chunker.Balance].Text)
	assert.Empty(t, report.Warnings)
	assert.True(t, report.Stored)

	require.NotNil(t, report.Derived)
	assert.Equal(t, 4e8, *report.Derived.TotalAssets)
	assert.Equal(t, 20e6, *report.Derived.Shares)

	saved := repo.saved["MSFT/2024-FY"]
	require.NotNil(t, saved.CurrentAssets)
	assert.Equal(t, 1e8, *saved.CurrentAssets)
}

func TestProcessLowConfidence(t *testing.T) {
	ext := &mockExtractor{}
	o := NewOrchestrator(&mockLoader{text: "x"}, &mockChunker{out: chunkOutput(1)}, ext)

	report, err := o.Process(context.Background(), Job{Path: "a.html", Ticker: "X", Period: "2024-FY", MinHits: 2})
	assert.ErrorIs(t, err, ErrLowConfidence)
	assert.Equal(t, 0, ext.calls)
	assert.Len(t, report.Skipped, 3)
	assert.NotEmpty(t, report.Error)
}

func TestProcessValidation(t *testing.T) {
	res := extractedResult()
	res.Balance["total_assets"] = calc.Float(500)

	t.Run("warns", func(t *testing.T) {
		o := NewOrchestrator(&mockLoader{text: "x"}, &mockChunker{out: chunkOutput(5)}, &mockExtractor{result: res})
		report, err := o.Process(context.Background(), Job{Path: "a.html", Period: "2024-FY"})
		require.NoError(t, err)
		require.Len(t, report.Warnings, 2)
		assert.Contains(t, report.Warnings[0], "Total Assets")
		assert.Contains(t, report.Warnings[1], "Balance Sheet Equation")
	})

	t.Run("strict fails", func(t *testing.T) {
		repo := &mockRepo{}
		o := NewOrchestrator(&mockLoader{text: "x"}, &mockChunker{out: chunkOutput(5)}, &mockExtractor{result: res},
			WithRepository(repo),
			WithValidationConfig(ValidationConfig{EnableStrictValidation: true, BalanceSheetTolerance: 0.1}))
		report, err := o.Process(context.Background(), Job{Path: "a.html", Ticker: "X", Period: "2024-FY"})
		assert.ErrorIs(t, err, ErrValidation)
		assert.False(t, report.Stored)
		assert.Empty(t, repo.saved)
	})
}

func TestProcessStageErrors(t *testing.T) {
	tests := []struct {
		name string
		o    *Orchestrator
		job  Job
		want error
	}{
		{
			name: "bad period",
			o:    NewOrchestrator(&mockLoader{}, &mockChunker{}, &mockExtractor{}),
			job:  Job{Path: "a.html", Period: "last year"},
			want: store.ErrInvalid,
		},
		{
			name: "bad ticker with repository",
			o:    NewOrchestrator(&mockLoader{}, &mockChunker{}, &mockExtractor{}, WithRepository(&mockRepo{})),
			job:  Job{Path: "a.html", Ticker: "", Period: "2024-FY"},
			want: store.ErrInvalid,
		},
		{
			name: "load",
			o:    NewOrchestrator(&mockLoader{err: ingest.ErrUnsupported}, &mockChunker{}, &mockExtractor{}),
			job:  Job{Path: "a.xlsx", Period: "2024-FY"},
			want: ingest.ErrUnsupported,
		},
		{
			name: "chunks",
			o:    NewOrchestrator(&mockLoader{text: "x"}, &mockChunker{err: chunker.ErrChunker}, &mockExtractor{}),
			job:  Job{Path: "a.html", Period: "2024-FY"},
			want: chunker.ErrChunker,
		},
		{
			name: "extract",
			o:    NewOrchestrator(&mockLoader{text: "x"}, &mockChunker{out: chunkOutput(5)}, &mockExtractor{err: extract.ErrExtraction}),
			job:  Job{Path: "a.html", Period: "2024-FY"},
			want: extract.ErrExtraction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := tt.o.Process(context.Background(), tt.job)
			assert.ErrorIs(t, err, tt.want)
			require.NotNil(t, report)
			assert.NotEmpty(t, report.Error)
		})
	}
}

func TestRunBatch(t *testing.T) {
	repo := &mockRepo{}
	o := NewOrchestrator(&mockLoader{text: "x"}, &mockChunker{out: chunkOutput(5)}, &mockExtractor{result: extractedResult()}, WithRepository(repo))

	jobs := []Job{
		{Path: "a.html", Ticker: "AAA", Period: "2024-FY"},
		{Path: "broken.html", Ticker: "BBB", Period: "2024-FY"},
		{Path: "c.html", Ticker: "CCC", Period: "2023-FY"},
	}

	reports, err := o.RunBatch(context.Background(), jobs, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingest.ErrNoText))
	assert.Contains(t, err.Error(), "broken.html")

	require.Len(t, reports, 3)
	assert.True(t, reports[0].Stored)
	assert.False(t, reports[1].Stored)
	assert.True(t, reports[2].Stored)
	assert.Len(t, repo.saved, 2)
}

func TestRunBatchDumps(t *testing.T) {
	dir := t.TempDir()
	o := NewOrchestrator(&mockLoader{text: "normalized text"}, &mockChunker{out: chunkOutput(5)},
		&mockExtractor{result: extractedResult()}, WithDumpWriter(utils.NewDumpWriter(dir)))

	jobs := []Job{
		{Path: "a.html", Ticker: "AAA", Period: "2024-FY"},
		{Path: "b.html", Ticker: "BBB", Period: "2024-FY"},
		{Path: "c.html", Period: "2023-FY"},
	}
	reports, err := o.RunBatch(context.Background(), jobs, 3)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	for _, prefix := range []string{"AAA_2024-FY", "BBB_2024-FY", reports[2].RunID} {
		for _, name := range []string{"normalized", "balance_chunk", "income_chunk", "cashFlow_chunk"} {
			assert.FileExists(t, filepath.Join(dir, prefix+"_"+name+".txt"))
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "AAA_2024-FY_balance_chunk.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Balance sheet (in millions)", string(data))
}
