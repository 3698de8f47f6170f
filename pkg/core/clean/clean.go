// Package clean tidies located chunks before structured extraction and
// detects the unit scale the statement is reported in.
package clean

import (
	"regexp"
	"strings"

	"intrinseco/pkg/core/chunker"
	"intrinseco/pkg/core/normalize"
)

// Unit scales.
const (
	UnitsUnknown   int64 = 0
	UnitsOnes      int64 = 1
	UnitsThousands int64 = 1_000
	UnitsMillions  int64 = 1_000_000
	UnitsBillions  int64 = 1_000_000_000
)

// CleanedChunk is a chunk ready for the extraction prompts. Units is 0 when
// the scale could not be determined.
type CleanedChunk struct {
	Text  string `json:"text"`
	Units int64  `json:"units"`
}

// unitPatterns are checked in order; the first match wins. Patterns run on
// the accent-stripped lowercase view.
var unitPatterns = []struct {
	re    *regexp.Regexp
	units int64
}{
	{regexp.MustCompile(`\b(in|expressed in|amounts in)\s+(usd\s+|us\$\s+|\$\s*|eur\s+|euros?\s+)?billions?\b|\(\s*(in\s+)?billions?\b|miles de millones`), UnitsBillions},
	{regexp.MustCompile(`\b(in|expressed in|amounts in)\s+(usd\s+|us\$\s+|\$\s*|eur\s+|euros?\s+)?millions?\b|\(\s*(in\s+)?millions?\b|\ben millones\b|\bmillones de (euros|dolares)\b|\(\s*millones\b`), UnitsMillions},
	{regexp.MustCompile(`\b(in|expressed in|amounts in)\s+(usd\s+|us\$\s+|\$\s*|eur\s+|euros?\s+)?thousands?\b|\(\s*(in\s+)?thousands?\b|\ben miles\b|\bmiles de (euros|dolares)\b|\(\s*miles\b|\bexpresad[oa]s? en miles\b`), UnitsThousands},
	{regexp.MustCompile(`\b(in|expressed in)\s+(usd|us dollars|euros?|dollars)\b|\ben euros\b`), UnitsOnes},
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\v\x{00A0}]{2,}`)
	blankLines = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Clean collapses runs of horizontal whitespace, trims lines, squeezes blank
// line runs and drops the page-break delimiter, then detects the unit scale.
func Clean(chunk string) CleanedChunk {
	text := strings.ReplaceAll(chunk, normalize.PageBreak, "\n\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	return CleanedChunk{Text: text, Units: DetectUnits(text)}
}

// DetectUnits returns the reporting scale announced in text (English or
// Spanish phrasing), or UnitsUnknown.
func DetectUnits(text string) int64 {
	lower := chunker.NormalizeText(text)
	for _, p := range unitPatterns {
		if p.re.MatchString(lower) {
			return p.units
		}
	}
	return UnitsUnknown
}

// All cleans every category of out.
func All(out chunker.Output) map[chunker.Category]CleanedChunk {
	cleaned := make(map[chunker.Category]CleanedChunk, len(chunker.Categories))
	for _, cat := range chunker.Categories {
		cleaned[cat] = Clean(out.Result(cat).Chunk)
	}
	return cleaned
}
