package chunker

import (
	"errors"
	"fmt"
)

// Language identifies which indicator dictionary produced a result.
type Language string

const (
	EN Language = "EN"
	ES Language = "ES"
)

// Category is a financial statement the locator searches for.
type Category string

const (
	Balance  Category = "balance"
	Income   Category = "income"
	CashFlow Category = "cashFlow"
)

// Categories lists every category in output order.
var Categories = []Category{Balance, Income, CashFlow}

// ErrChunker is the single failure surfaced by GetChunks. Every error
// returned by the dispatcher wraps it.
var ErrChunker = errors.New("chunker failed")

// ChunkResult is the best-scoring region found for one category.
type ChunkResult struct {
	Chunk      string   `json:"chunk"`
	Hits       int      `json:"hits"`
	Indicators []string `json:"indicators"`
}

// Output is the result of one GetChunks call. All three categories always
// come from the same language pass.
type Output struct {
	Language Language    `json:"language"`
	Balance  ChunkResult `json:"balance"`
	Income   ChunkResult `json:"income"`
	CashFlow ChunkResult `json:"cashFlow"`
}

// Result returns the chunk for category c.
func (o Output) Result(c Category) ChunkResult {
	switch c {
	case Balance:
		return o.Balance
	case Income:
		return o.Income
	case CashFlow:
		return o.CashFlow
	}
	return ChunkResult{Indicators: []string{}}
}

// Hits returns the hit count of every category.
func (o Output) Hits() map[Category]int {
	return map[Category]int{
		Balance:  o.Balance.Hits,
		Income:   o.Income.Hits,
		CashFlow: o.CashFlow.Hits,
	}
}

// MinHits returns the lowest hit count across the three categories.
func (o Output) MinHits() int {
	return min(o.Balance.Hits, o.Income.Hits, o.CashFlow.Hits)
}

// ScanParameters control the sliding window. All sizes are in code points.
type ScanParameters struct {
	WindowSize      int `yaml:"window_size" json:"window_size"`
	OverlapStride   int `yaml:"overlap_stride" json:"overlap_stride"`
	BufferSize      int `yaml:"buffer_size" json:"buffer_size"`
	OutputChunkSize int `yaml:"output_chunk_size" json:"output_chunk_size"`
}

// Default scan parameters.
const (
	DefaultWindowSize      = 4000
	DefaultOverlapStride   = 1000
	DefaultBufferSize      = 1500
	DefaultOutputChunkSize = 12000
	DefaultMinHits         = 3
	DefaultWorkers         = 3
)

// DefaultScanParameters returns the process-wide defaults.
func DefaultScanParameters() ScanParameters {
	return ScanParameters{
		WindowSize:      DefaultWindowSize,
		OverlapStride:   DefaultOverlapStride,
		BufferSize:      DefaultBufferSize,
		OutputChunkSize: DefaultOutputChunkSize,
	}
}

// Validate checks that every size is positive and that windows overlap.
func (p ScanParameters) Validate() error {
	switch {
	case p.WindowSize <= 0:
		return fmt.Errorf("window size must be positive, got %d", p.WindowSize)
	case p.OverlapStride <= 0:
		return fmt.Errorf("overlap stride must be positive, got %d", p.OverlapStride)
	case p.OverlapStride >= p.WindowSize:
		return fmt.Errorf("overlap stride %d must be smaller than window size %d", p.OverlapStride, p.WindowSize)
	case p.BufferSize < 0:
		return fmt.Errorf("buffer size must not be negative, got %d", p.BufferSize)
	case p.OutputChunkSize <= 0:
		return fmt.Errorf("output chunk size must be positive, got %d", p.OutputChunkSize)
	}
	return nil
}
