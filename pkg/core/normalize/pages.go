package normalize

import (
	"strconv"
	"strings"
)

// PageBreak separates selected pages in paginated output.
const PageBreak = "\n\n=== PAGE BREAK ===\n\n"

// ParsePageNumber parses a freeform 1-based page number. Leading zeros are
// ignored; empty, non-numeric, longer than four digits, or zero values are
// reported as absent.
func ParsePageNumber(value string) (int, bool) {
	trimmed := strings.TrimLeft(strings.TrimSpace(value), "0")
	if trimmed == "" || len(trimmed) > 4 {
		return 0, false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] < '0' || trimmed[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SelectPages applies a page range to pages:
//   - start and end (end >= start): pages[start-1 : end]
//   - start only: pages[start-1 :]
//   - end only: pages[: end]
//   - neither, or end < start: all pages
//
// Bounds beyond the page count are clamped; a start past the last page
// selects nothing.
func SelectPages(pages []string, startPage, endPage string) []string {
	start, hasStart := ParsePageNumber(startPage)
	end, hasEnd := ParsePageNumber(endPage)

	lo, hi := 0, len(pages)
	switch {
	case hasStart && hasEnd:
		if end >= start {
			lo, hi = start-1, min(end, len(pages))
		}
	case hasStart:
		lo = start - 1
	case hasEnd:
		hi = min(end, len(pages))
	}

	if lo >= hi {
		return []string{}
	}
	return pages[lo:hi]
}

// JoinPages joins pages with PageBreak.
func JoinPages(pages []string) string {
	return strings.Join(pages, PageBreak)
}
