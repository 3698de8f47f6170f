package normalize

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"intrinseco/pkg/core/logging"
)

// DefaultPageClass marks page containers in paginated viewer exports.
const DefaultPageClass = "pageView"

// skippableTags carry no statement content: media, form controls, metadata,
// page chrome and void/formatting elements.
var skippableTags = []string{
	"img", "meta", "button", "input", "svg", "noscript", "iframe", "link",
	"head", "nav", "header", "footer", "object", "embed", "canvas", "map",
	"area", "param", "video", "audio", "track", "source", "select", "base",
	"br", "col", "hr", "wbr",
}

var (
	inlineStyleAttr = regexp.MustCompile(`(?i)\sstyle\s*=\s*(["'][^"']*["']|[^\s>]+)`)
	styleBlock      = regexp.MustCompile(`(?is)<style.*?</style>`)
)

// Normalizer converts raw documents into plain text.
type Normalizer struct {
	parser    Parser
	pageClass string
	log       *zap.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithParser swaps the HTML parser.
func WithParser(p Parser) Option {
	return func(n *Normalizer) { n.parser = p }
}

// WithPageClass changes the class that marks page containers.
func WithPageClass(class string) Option {
	return func(n *Normalizer) { n.pageClass = class }
}

// New creates a Normalizer backed by goquery.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		parser:    GoqueryParser{},
		pageClass: DefaultPageClass,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = logging.Named("normalize")
	}
	return n
}

// Normalize returns the readable text of raw. MIME web archives are unwrapped
// to their HTML parts first. When the document is paginated, only the pages
// selected by startPage/endPage are returned, joined by PageBreak.
// Any failure yields "".
func (n *Normalizer) Normalize(raw, startPage, endPage string) (text string) {
	if raw == "" {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			n.log.Warn("normalization aborted", zap.Any("panic", r))
			text = ""
		}
	}()

	content := raw
	if IsMIME(raw) {
		content = ExtractHTML(raw)
		if content == "" {
			n.log.Debug("MIME message without HTML parts or boundary")
			return ""
		}
	}

	pages, paginated := n.extract(content)
	if !paginated {
		if len(pages) == 0 {
			return ""
		}
		return pages[0]
	}
	return JoinPages(SelectPages(pages, startPage, endPage))
}

// extract parses content and returns per-page text. paginated is false when
// no page container was found; the single element then holds the whole body.
func (n *Normalizer) extract(content string) (pages []string, paginated bool) {
	if content == "" {
		return nil, false
	}

	content = inlineStyleAttr.ReplaceAllString(content, "")
	content = styleBlock.ReplaceAllString(content, "")

	tree, err := n.parser.Parse(content)
	if err != nil {
		n.log.Debug("HTML parse failed", zap.Error(err))
		return nil, false
	}

	tree.RemoveTags(skippableTags...)
	tree.RemoveAttr("style")

	containers := tree.FindClass(n.pageClass)
	if len(containers) == 0 {
		return []string{Postprocess(ExtractFormattedText(tree.Body()))}, false
	}

	pages = make([]string, 0, len(containers))
	for _, c := range containers {
		pages = append(pages, strings.TrimSpace(Postprocess(ExtractFormattedText(c))))
	}
	n.log.Debug("paginated document", zap.Int("pages", len(pages)))
	return pages, true
}
