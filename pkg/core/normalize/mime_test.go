package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const webArchive = "MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/related; boundary=\"----=_NextPart_01\"\r\n" +
	"\r\n" +
	"------=_NextPart_01\r\n" +
	"Content-Type: text/html; charset=\"windows-1252\"\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"<html><body><p>Caf=E9 =\r\nBalance</p></body></html>\r\n" +
	"------=_NextPart_01\r\n" +
	"Content-Type: image/png\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"iVBORw0KGgo=\r\n" +
	"------=_NextPart_01\n" +
	"Content-Type: text/html\n" +
	"\n" +
	"<html><body><p>Second part</p></body></html>\n" +
	"------=_NextPart_01--\r\n"

func TestDecodeQuotedPrintable(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"hex escape to raw byte", "Caf=E9", "Caf\xe9"},
		{"lowercase hex", "Caf=e9", "Caf\xe9"},
		{"CRLF soft break", "text=\r\nmore", "textmore"},
		{"LF soft break", "text=\nmore", "textmore"},
		{"escaped equals followed by newline", "a=3D\nb", "a=\nb"},
		{"malformed escape kept", "x=ZZ", "x=ZZ"},
		{"trailing equals kept", "end=", "end="},
		{"utf-8 pair", "Caf=C3=A9", "Café"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeQuotedPrintable(tt.input))
		})
	}
}

func TestIsMIME(t *testing.T) {
	assert.True(t, IsMIME(webArchive))
	assert.True(t, IsMIME(strings.ToLower(webArchive)))
	assert.False(t, IsMIME("<html><body>MIME-Version: 1.0</body></html>"))
	assert.False(t, IsMIME(""))

	// Headers past the sniffing window are not considered.
	late := strings.Repeat("x", mimeSniffLimit) + webArchive
	assert.False(t, IsMIME(late))
}

func TestExtractHTML(t *testing.T) {
	got := ExtractHTML(webArchive)

	assert.Contains(t, got, "<p>Café Balance</p>")
	assert.Contains(t, got, "<p>Second part</p>")
	assert.NotContains(t, got, "iVBORw0KGgo")
	assert.Less(t, strings.Index(got, "Café"), strings.Index(got, "Second part"))
}

func TestToUTF8(t *testing.T) {
	tests := []struct {
		name    string
		headers string
		body    string
		want    string
	}{
		{"declared utf-8 with stray byte", `content-type: text/html; charset="utf-8"`, "Caf\xc3\xa9 \xff", "Café \uFFFD"},
		{"declared latin1", "content-type: text/html; charset=iso-8859-1", "Caf\xe9", "Café"},
		{"declared latin1 over valid utf-8 bytes", "content-type: text/html; charset=iso-8859-1", "\xc3\xa9", "Ã©"},
		{"declared windows-1252", `content-type: text/html; charset="windows-1252"`, "\x80 100", "€ 100"},
		{"undeclared valid utf-8", "content-type: text/html", "Situación", "Situación"},
		{"undeclared invalid utf-8", "content-type: text/html", "Situaci\xf3n", "Situación"},
		{"unknown charset falls back", "content-type: text/html; charset=x-bogus", "Situaci\xf3n", "Situación"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toUTF8(tt.headers, tt.body))
		})
	}
}

func TestExtractHTML_NoBoundary(t *testing.T) {
	msg := "MIME-Version: 1.0\nContent-Type: multipart/related\n\n<html></html>"
	assert.Equal(t, "", ExtractHTML(msg))
}

func TestNormalize_WebArchive(t *testing.T) {
	n := New()
	got := n.Normalize(webArchive, "", "")

	assert.Contains(t, got, "Café Balance")
	assert.Contains(t, got, "Second part")
}
