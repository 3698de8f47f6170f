package ingest

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// lineTolerance is the height, in points, of the bands text runs are
// grouped into when rebuilding lines.
const lineTolerance = 2.0

func line(y float64) float64 {
	return math.Round(y / lineTolerance)
}

// ReadPDFPages extracts the text of each page. Pages the library cannot
// decode come back empty so page numbers stay aligned.
func ReadPDFPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	n := reader.NumPage()
	if n <= 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		pages[i-1] = pageText(reader, i)
	}
	return pages, nil
}

func pageText(reader *pdf.Reader, i int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	page := reader.Page(i)
	if page.V.IsNull() {
		return ""
	}
	return layoutLines(page.Content().Text)
}

// layoutLines rebuilds reading order: top to bottom, then left to right,
// breaking lines where the baseline moves.
func layoutLines(runs []pdf.Text) string {
	if len(runs) == 0 {
		return ""
	}
	sorted := append([]pdf.Text(nil), runs...)
	sort.SliceStable(sorted, func(a, b int) bool {
		la, lb := line(sorted[a].Y), line(sorted[b].Y)
		if la != lb {
			return la > lb
		}
		return sorted[a].X < sorted[b].X
	})

	var b strings.Builder
	lastLine := line(sorted[0].Y)
	lastEnd := sorted[0].X
	for i, t := range sorted {
		if i > 0 {
			switch {
			case line(t.Y) != lastLine:
				b.WriteByte('\n')
			case t.X-lastEnd > t.FontSize*0.3:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		lastLine = line(t.Y)
		lastEnd = t.X + t.W
	}
	return strings.TrimSpace(b.String())
}
