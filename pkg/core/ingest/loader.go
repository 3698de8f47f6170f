// Package ingest loads filings from disk and turns them into normalized
// text ready for the section locator.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"intrinseco/pkg/core/logging"
	"intrinseco/pkg/core/normalize"
)

// ErrUnsupported is returned for file extensions the loader cannot read.
var ErrUnsupported = errors.New("unsupported document format")

// ErrNoText is returned when a document yields no text at all.
var ErrNoText = errors.New("document has no extractable text")

// MaxFileSize bounds the size of a single filing.
const MaxFileSize = 256 << 20

// Format is the kind of document, derived from its extension.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
	FormatMIME Format = "mhtml"
	FormatText Format = "txt"
)

var formats = map[string]Format{
	".pdf":   FormatPDF,
	".html":  FormatHTML,
	".htm":   FormatHTML,
	".xhtml": FormatHTML,
	".xml":   FormatHTML,
	".mht":   FormatMIME,
	".mhtml": FormatMIME,
	".txt":   FormatText,
}

// Extensions lists the supported file extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(formats))
	for ext := range formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// FormatOf returns the format for name's extension.
func FormatOf(name string) (Format, error) {
	f, ok := formats[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, filepath.Ext(name), strings.Join(Extensions(), " "))
	}
	return f, nil
}

// Document is a loaded filing.
type Document struct {
	Name   string `json:"name"`
	Format Format `json:"format"`
	Text   string `json:"text"`
}

// PageReader returns the text of every page of a PDF, in order.
type PageReader func(data []byte) ([]string, error)

// Loader reads filings and normalizes them.
type Loader struct {
	normalizer *normalize.Normalizer
	readPages  PageReader
	log        *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithPageReader swaps the PDF page reader.
func WithPageReader(r PageReader) Option {
	return func(l *Loader) { l.readPages = r }
}

// NewLoader returns a Loader using n for markup documents. A nil n uses the
// default normalizer.
func NewLoader(n *normalize.Normalizer, opts ...Option) *Loader {
	if n == nil {
		n = normalize.New()
	}
	l := &Loader{
		normalizer: n,
		readPages:  ReadPDFPages,
		log:        logging.Named("ingest"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the file at path. startPage and endPage are free-form 1-based
// page numbers; they apply to PDFs and paginated HTML exports.
func (l *Loader) Load(ctx context.Context, path, startPage, endPage string) (Document, error) {
	if _, err := FormatOf(path); err != nil {
		return Document{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return Document{}, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return l.LoadBytes(ctx, filepath.Base(path), data, startPage, endPage)
}

// LoadBytes is Load for content already in memory; name selects the format.
func (l *Loader) LoadBytes(ctx context.Context, name string, data []byte, startPage, endPage string) (Document, error) {
	format, err := FormatOf(name)
	if err != nil {
		return Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	start := time.Now()
	doc := Document{Name: name, Format: format}

	switch format {
	case FormatPDF:
		pages, err := l.readPages(data)
		if err != nil {
			return Document{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
		doc.Text = normalize.JoinPages(normalize.SelectPages(pages, startPage, endPage))
	case FormatText:
		doc.Text = strings.ReplaceAll(string(data), "\r\n", "\n")
	case FormatHTML:
		doc.Text = l.normalizer.Normalize(decodeMarkup(data), startPage, endPage)
	default:
		doc.Text = l.normalizer.Normalize(string(data), startPage, endPage)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return Document{}, fmt.Errorf("%w: %s", ErrNoText, name)
	}

	l.log.Info("document loaded",
		zap.String("name", name),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
		zap.Int("text_len", len(doc.Text)),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

// decodeMarkup converts HTML or XML to UTF-8 using the byte order mark, the
// <meta> charset declaration, or a Windows-1252 guess for invalid UTF-8.
func decodeMarkup(data []byte) string {
	enc, name, _ := charset.DetermineEncoding(data, "")
	if name == "utf-8" {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(out)
}
