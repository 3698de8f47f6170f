package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLocator(t *testing.T, window, stride, buffer, output int) *Locator {
	t.Helper()
	l, err := NewLocator(ScanParameters{
		WindowSize:      window,
		OverlapStride:   stride,
		BufferSize:      buffer,
		OutputChunkSize: output,
	})
	require.NoError(t, err)
	return l
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Situación FINANCIERA", "situacion financiera"},
		{"Ñandú", "nandu"},
		{"Balance Sheet", "balance sheet"},
		{"Pérdidas y Ganancias", "perdidas y ganancias"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestPrepare_LowerMatchesNormalizeText(t *testing.T) {
	content := "Estado de Situación Financiera: ACTIVO NO CORRIENTE 한국 ﬁnal"
	src := Prepare(content)

	assert.Equal(t, content, src.Content)
	assert.Equal(t, NormalizeText(content), src.Lower)
	assert.Equal(t, utf8.RuneCountInString(src.Lower), src.runes())
	assert.Equal(t, utf8.RuneCountInString(content), src.contentRunes())
}

func TestFindChunk_TieKeepsEarliestWindow(t *testing.T) {
	content := "alpha beta" + strings.Repeat("x", 100) + "alpha beta" + strings.Repeat("y", 100)
	l := testLocator(t, 20, 10, 0, 15)

	got := l.FindChunk(Prepare(content), []string{"alpha", "beta"})

	assert.Equal(t, 2, got.Hits)
	assert.Equal(t, []string{"alpha", "beta"}, got.Indicators)
	assert.Equal(t, content[:15], got.Chunk)
}

func TestFindChunk_StrictlyBetterWindowWins(t *testing.T) {
	content := "alpha" + strings.Repeat("x", 100) + "alpha beta" + strings.Repeat("y", 100)
	l := testLocator(t, 20, 10, 5, 15)

	got := l.FindChunk(Prepare(content), []string{"alpha", "beta"})

	assert.Equal(t, 2, got.Hits)
	// Best window starts at 100; the buffer moves the chunk back 5 runes.
	assert.Equal(t, content[95:110], got.Chunk)
}

func TestFindChunk_DistinctHitsOnly(t *testing.T) {
	l := testLocator(t, 100, 50, 0, 100)

	got := l.FindChunk(Prepare("revenue revenue revenue"), []string{"revenue", "net income"})

	assert.Equal(t, 1, got.Hits)
	assert.Equal(t, []string{"revenue"}, got.Indicators)
}

func TestFindChunk_AccentsAndCase(t *testing.T) {
	l := testLocator(t, 100, 50, 0, 100)
	content := "CUENTA DE PÉRDIDAS Y GANANCIAS del ejercicio"

	got := l.FindChunk(Prepare(content), []string{"cuenta de perdidas y ganancias"})

	assert.Equal(t, 1, got.Hits)
	assert.Equal(t, content, got.Chunk)
}

func TestFindChunk_MultibyteOffsetsMapToContent(t *testing.T) {
	content := strings.Repeat("Ñ", 50) + "TOTAL ASSETS" + strings.Repeat("é", 50)
	l := testLocator(t, 20, 10, 5, 20)

	got := l.FindChunk(Prepare(content), []string{"total assets"})

	require.Equal(t, 1, got.Hits)
	assert.Equal(t, strings.Repeat("Ñ", 5)+"TOTAL ASSETS"+strings.Repeat("é", 3), got.Chunk)
}

func TestFindChunk_ExpandingDecomposition(t *testing.T) {
	// Each Hangul syllable decomposes into three jamo in the matching view.
	content := strings.Repeat("한", 30) + "TOTAL ASSETS"
	l := testLocator(t, 20, 10, 0, 12)

	got := l.FindChunk(Prepare(content), []string{"total assets"})

	require.Equal(t, 1, got.Hits)
	assert.Equal(t, "TOTAL ASSETS", got.Chunk)
}

func TestFindChunk_NoHits(t *testing.T) {
	l := testLocator(t, 10, 5, 3, 8)
	content := "nothing relevant in here at all"

	got := l.FindChunk(Prepare(content), []string{"goodwill"})

	assert.Equal(t, 0, got.Hits)
	assert.NotNil(t, got.Indicators)
	assert.Empty(t, got.Indicators)
	assert.Equal(t, content[:8], got.Chunk)
}

func TestFindChunk_EmptyContent(t *testing.T) {
	l := testLocator(t, 10, 5, 3, 8)

	got := l.FindChunk(Prepare(""), []string{"goodwill"})

	assert.Equal(t, ChunkResult{Chunk: "", Hits: 0, Indicators: []string{}}, got)
}

func TestFindChunk_BoundsAndDeterminism(t *testing.T) {
	terms := []string{"total assets", "net income", "goodwill", "revenue", "borrowings"}
	l := testLocator(t, 40, 15, 25, 60)

	for seed := 1; seed <= 20; seed++ {
		var sb strings.Builder
		for i := 0; i < seed*7; i++ {
			fmt.Fprintf(&sb, "línea %d ", i*seed)
			if i%seed == 0 {
				sb.WriteString(terms[i%len(terms)])
				sb.WriteByte(' ')
			}
		}
		content := sb.String()
		src := Prepare(content)

		first := l.FindChunk(src, terms)
		second := l.FindChunk(Prepare(content), terms)

		assert.Equal(t, first, second, "seed %d", seed)
		assert.True(t, strings.Contains(content, first.Chunk), "seed %d", seed)
		assert.LessOrEqual(t, utf8.RuneCountInString(first.Chunk), 60, "seed %d", seed)
		assert.Len(t, first.Indicators, first.Hits, "seed %d", seed)
	}
}

func TestFindChunk_HitsEqualBestWindow(t *testing.T) {
	terms := []string{"a1", "b2", "c3", "d4"}
	content := "a1 ...................... b2 c3 d4 ...................... a1 b2"
	l := testLocator(t, 16, 4, 0, 64)

	got := l.FindChunk(Prepare(content), terms)

	best := 0
	src := Prepare(content)
	for start := 0; start < src.runes(); start += 4 {
		best = max(best, len(matchTerms(src.window(start, min(start+16, src.runes())), terms)))
	}
	assert.Equal(t, best, got.Hits)
	assert.Equal(t, 3, got.Hits)
}

func TestScanParameters_Validate(t *testing.T) {
	assert.NoError(t, DefaultScanParameters().Validate())

	bad := []ScanParameters{
		{WindowSize: 0, OverlapStride: 1, BufferSize: 0, OutputChunkSize: 1},
		{WindowSize: 10, OverlapStride: 0, BufferSize: 0, OutputChunkSize: 1},
		{WindowSize: 10, OverlapStride: 10, BufferSize: 0, OutputChunkSize: 1},
		{WindowSize: 10, OverlapStride: 5, BufferSize: -1, OutputChunkSize: 1},
		{WindowSize: 10, OverlapStride: 5, BufferSize: 0, OutputChunkSize: 0},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate(), "%+v", p)
		_, err := NewLocator(p)
		assert.Error(t, err)
	}
}
