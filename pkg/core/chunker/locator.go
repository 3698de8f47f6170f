package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Source is a document prepared for scanning. Lower is the matching view:
// lowercased, NFD-decomposed, with combining diacritics (U+0300-U+036F)
// removed. Every rune of Lower remembers which rune of Content it came from,
// so offsets found in Lower map back onto the original text.
type Source struct {
	Content string
	Lower   string

	lowerStarts   []int32 // byte offset of each Lower rune, plus len(Lower)
	origins       []int32 // Content rune index of each Lower rune
	contentStarts []int32 // byte offset of each Content rune, plus len(Content)
}

// Prepare builds the matching view of content.
func Prepare(content string) *Source {
	src := &Source{
		Content:       content,
		lowerStarts:   make([]int32, 0, len(content)+1),
		origins:       make([]int32, 0, len(content)),
		contentStarts: make([]int32, 0, len(content)+1),
	}

	var lower strings.Builder
	lower.Grow(len(content))

	var idx int32
	for off, r := range content {
		src.contentStarts = append(src.contentStarts, int32(off))
		foldRune(r, func(f rune) {
			src.lowerStarts = append(src.lowerStarts, int32(lower.Len()))
			src.origins = append(src.origins, idx)
			lower.WriteRune(f)
		})
		idx++
	}
	src.contentStarts = append(src.contentStarts, int32(len(content)))
	src.lowerStarts = append(src.lowerStarts, int32(lower.Len()))
	src.Lower = lower.String()
	return src
}

// NormalizeText returns the matching view of content: lowercase, canonical
// decomposition, combining diacritics stripped.
func NormalizeText(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		foldRune(r, func(f rune) { sb.WriteRune(f) })
	}
	return sb.String()
}

// foldRune lowercases r, decomposes it and emits every rune that is not a
// combining diacritic.
func foldRune(r rune, emit func(rune)) {
	r = unicode.ToLower(r)
	if r < utf8.RuneSelf {
		emit(r)
		return
	}
	for _, d := range norm.NFD.String(string(r)) {
		if d >= 0x0300 && d <= 0x036F {
			continue
		}
		emit(d)
	}
}

// runes returns the number of runes in the matching view.
func (s *Source) runes() int {
	return len(s.origins)
}

// window returns Lower runes [from, to).
func (s *Source) window(from, to int) string {
	return s.Lower[s.lowerStarts[from]:s.lowerStarts[to]]
}

// contentRunes returns the number of runes in Content.
func (s *Source) contentRunes() int {
	return len(s.contentStarts) - 1
}

// slice returns Content runes [from, to).
func (s *Source) slice(from, to int) string {
	return s.Content[s.contentStarts[from]:s.contentStarts[to]]
}

// Locator finds the window with the widest indicator coverage.
type Locator struct {
	params ScanParameters
}

// NewLocator validates params and returns a Locator.
func NewLocator(params ScanParameters) (*Locator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Locator{params: params}, nil
}

// FindChunk slides a WindowSize window over src.Lower in OverlapStride steps
// and scores each window by the number of distinct terms it contains. The
// first window with the highest score wins. The returned chunk starts
// BufferSize runes before that window in src.Content and holds at most
// OutputChunkSize runes.
func (l *Locator) FindChunk(src *Source, terms []string) ChunkResult {
	n := src.runes()
	bestStart, bestHits := 0, 0
	var bestTerms []string

	for start := 0; start < n; start += l.params.OverlapStride {
		end := min(start+l.params.WindowSize, n)
		found := matchTerms(src.window(start, end), terms)
		if len(found) > bestHits {
			bestStart, bestHits, bestTerms = start, len(found), found
		}
	}

	from := 0
	if n > 0 {
		from = max(0, int(src.origins[bestStart])-l.params.BufferSize)
	}
	to := from + min(l.params.OutputChunkSize, src.contentRunes()-from)

	if bestTerms == nil {
		bestTerms = []string{}
	}
	return ChunkResult{
		Chunk:      src.slice(from, to),
		Hits:       bestHits,
		Indicators: bestTerms,
	}
}

// matchTerms returns the terms present in window, in dictionary order.
func matchTerms(window string, terms []string) []string {
	var found []string
	for _, t := range terms {
		if strings.Contains(window, t) {
			found = append(found, t)
		}
	}
	return found
}
