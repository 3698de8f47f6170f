package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// mimeSniffLimit bounds how much of the input is inspected for MIME headers.
const mimeSniffLimit = 8192

var (
	boundaryPattern = regexp.MustCompile(`(?i)boundary="([^"]+)"`)
	charsetPattern  = regexp.MustCompile(`(?i)charset="?([a-z0-9_\-]+)"?`)
)

// IsMIME reports whether content looks like a multipart MIME message
// (e.g. a browser "save as web archive" export). Only the head of the
// document is inspected.
func IsMIME(content string) bool {
	head := strings.ToLower(truncateRunes(content, mimeSniffLimit))
	return strings.Contains(head, "mime-version: 1.0") &&
		strings.Contains(head, "content-type: multipart/")
}

// ExtractHTML concatenates, in document order, the bodies of every
// text/html part of a multipart message. Quoted-printable parts are decoded.
// Each part is followed by a newline. A message without a boundary header
// yields "".
func ExtractHTML(content string) string {
	m := boundaryPattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}

	var result strings.Builder
	for _, part := range strings.Split(content, "--"+m[1]) {
		headers, body := splitPart(part)
		lowerHeaders := strings.ToLower(headers)
		if !strings.Contains(lowerHeaders, "content-type: text/html") {
			continue
		}
		if strings.Contains(lowerHeaders, "content-transfer-encoding: quoted-printable") {
			body = DecodeQuotedPrintable(body)
		}
		result.WriteString(toUTF8(lowerHeaders, body))
		result.WriteByte('\n')
	}
	return result.String()
}

// splitPart separates a MIME part into its header block and body. The body
// starts after the first blank line (CRLF or LF). Without a blank line the
// whole part is treated as both headers and body.
func splitPart(part string) (headers, body string) {
	if i := strings.Index(part, "\r\n\r\n"); i != -1 {
		return part[:i], part[i+4:]
	}
	if i := strings.Index(part, "\n\n"); i != -1 {
		return part[:i], part[i+2:]
	}
	return part, part
}

// DecodeQuotedPrintable decodes =XX escapes to the raw byte they name and
// drops soft line breaks (=\r\n and =\n). Anything else, including a
// malformed escape, is copied through unchanged.
func DecodeQuotedPrintable(input string) string {
	var out strings.Builder
	out.Grow(len(input))

	for i := 0; i < len(input); i++ {
		c := input[i]
		if c != '=' {
			out.WriteByte(c)
			continue
		}
		rest := input[i+1:]
		switch {
		case strings.HasPrefix(rest, "\r\n"):
			i += 2
		case strings.HasPrefix(rest, "\n"):
			i++
		case len(rest) >= 2 && isHex(rest[0]) && isHex(rest[1]):
			out.WriteByte(unhex(rest[0])<<4 | unhex(rest[1]))
			i += 2
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// toUTF8 decodes a part body using the charset its headers declare. Without
// a declaration, bodies that are not valid UTF-8 are read as Windows-1252,
// which covers decoded quoted-printable bytes from Latin-1 exports (=E9).
func toUTF8(lowerHeaders, body string) string {
	var enc encoding.Encoding
	if m := charsetPattern.FindStringSubmatch(lowerHeaders); m != nil {
		if e, err := htmlindex.Get(m[1]); err == nil {
			enc = e
		}
	}
	switch {
	case enc == unicode.UTF8:
		return strings.ToValidUTF8(body, "\uFFFD")
	case enc == nil && utf8.ValidString(body):
		return body
	case enc == nil:
		enc = charmap.Windows1252
	}
	decoded, err := enc.NewDecoder().String(body)
	if err != nil {
		return strings.ToValidUTF8(body, "\uFFFD")
	}
	return decoded
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// truncateRunes returns at most n code points of s.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
