package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	tableStartToken = "Table:"
	tableEndToken   = "End of table"
)

// namedEntities are the references decoded literally. The doubled nbsp forms
// show up in exports that escape their own entities.
var namedEntities = map[string]string{
	"&quot;":       `"`,
	"&apos;":       "'",
	"&amp;":        "&",
	"&lt;":         "<",
	"&gt;":         ">",
	"&#160;":       " ",
	"&nbsp;":       " ",
	"&nbsp;nbsp;":  " ",
	"&nbsp;&nbsp;": " ",
	"&#8217;":      "'",
}

var (
	// Alternatives are tried left to right, so the doubled nbsp forms and the
	// fixed table win over the generic numeric references.
	entityPattern = regexp.MustCompile(
		`&nbsp;&nbsp;|&nbsp;nbsp;|&(?:quot|apos|amp|lt|gt|nbsp|#160|#8217);|&#[0-9]+;|&#[xX][0-9a-fA-F]+;`)
	numberPattern = regexp.MustCompile(`-?(\d+(\.\d*)?|\.\d+)`)
)

// Postprocess decodes entities, drops tables that carry at most one number,
// and collapses runs of three or more newlines to two.
func Postprocess(input string) string {
	if input == "" {
		return ""
	}
	return CleanOutput(DecodeEntities(input))
}

// DecodeEntities replaces the fixed named entities and numeric (&#NNN;) and
// hexadecimal (&#xHHHH;) character references in one left-to-right pass, so
// decoded text is never decoded again. References to invalid code points are
// kept as written.
func DecodeEntities(input string) string {
	if !strings.Contains(input, "&") {
		return input
	}
	return entityPattern.ReplaceAllStringFunc(input, func(ref string) string {
		if lit, ok := namedEntities[ref]; ok {
			return lit
		}
		digits, base := ref[2:len(ref)-1], 10
		if digits[0] == 'x' || digits[0] == 'X' {
			digits, base = digits[1:], 16
		}
		code, err := strconv.ParseInt(digits, base, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return ref
		}
		return string(rune(code))
	})
}

// CleanOutput removes "Table:" ... "End of table" sections holding fewer than
// two numeric tokens, keeps everything outside table markers, and caps
// consecutive newlines at two. A table start without an end marker is kept
// as ordinary text.
func CleanOutput(input string) string {
	if input == "" {
		return ""
	}

	w := newlineCapper{}
	w.out.Grow(len(input))

	pos, last := 0, 0
	for {
		rel := strings.Index(input[pos:], tableStartToken)
		if rel == -1 {
			break
		}
		start := pos + rel
		endRel := strings.Index(input[start:], tableEndToken)
		if endRel == -1 {
			break
		}
		end := start + endRel + len(tableEndToken)

		w.write(input[last:start])
		if section := input[start:end]; CountNumbers(section) > 1 {
			w.write(section)
		}
		pos, last = end, end
	}
	w.write(input[last:])

	return w.out.String()
}

// CountNumbers counts signed integer and decimal tokens in text.
func CountNumbers(text string) int {
	return len(numberPattern.FindAllStringIndex(text, -1))
}

// newlineCapper streams text while allowing at most two newlines in a row
// across successive writes.
type newlineCapper struct {
	out      strings.Builder
	newlines int
}

func (w *newlineCapper) write(s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if w.newlines < 2 {
				w.out.WriteByte('\n')
				w.newlines++
			}
			continue
		}
		w.out.WriteByte(s[i])
		w.newlines = 0
	}
}
