package normalize

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// NodeKind classifies tree nodes for the text walker.
type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
	OtherNode
)

// Node is the read-only view of a parsed document node.
type Node interface {
	Kind() NodeKind
	// Tag is the lower-case element name, "" for non-element nodes.
	Tag() string
	// Text is the data of a text node.
	Text() string
	Children() []Node
}

// Tree is a parsed, mutable document.
type Tree interface {
	// RemoveTags detaches every element with one of the given names,
	// together with its subtree.
	RemoveTags(tags ...string)
	// RemoveAttr strips an attribute from every element carrying it.
	RemoveAttr(attr string)
	// FindClass returns the elements carrying class, in document order.
	FindClass(class string) []Node
	// Body returns the <body> element, or the document root when absent.
	Body() Node
}

// Parser turns HTML text into a Tree.
type Parser interface {
	Parse(content string) (Tree, error)
}

// GoqueryParser is the default Parser, backed by goquery and x/net/html.
type GoqueryParser struct{}

var _ Parser = GoqueryParser{}

// Parse parses content as HTML.
func (GoqueryParser) Parse(content string) (Tree, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &goqueryTree{doc: doc}, nil
}

type goqueryTree struct {
	doc *goquery.Document
}

func (t *goqueryTree) RemoveTags(tags ...string) {
	if len(tags) == 0 {
		return
	}
	t.doc.Find(strings.Join(tags, ", ")).Remove()
}

func (t *goqueryTree) RemoveAttr(attr string) {
	t.doc.Find("[" + attr + "]").RemoveAttr(attr)
}

func (t *goqueryTree) FindClass(class string) []Node {
	sel := t.doc.Find("." + class)
	nodes := make([]Node, 0, sel.Length())
	for _, n := range sel.Nodes {
		nodes = append(nodes, htmlNode{n})
	}
	return nodes
}

func (t *goqueryTree) Body() Node {
	if body := t.doc.Find("body"); body.Length() > 0 {
		return htmlNode{body.Nodes[0]}
	}
	if len(t.doc.Nodes) == 0 {
		return nil
	}
	return htmlNode{t.doc.Nodes[0]}
}

// htmlNode adapts *html.Node to Node.
type htmlNode struct {
	n *html.Node
}

func (h htmlNode) Kind() NodeKind {
	switch h.n.Type {
	case html.ElementNode:
		return ElementNode
	case html.TextNode:
		return TextNode
	default:
		return OtherNode
	}
}

func (h htmlNode) Tag() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(h.n.Data)
}

func (h htmlNode) Text() string {
	if h.n.Type != html.TextNode {
		return ""
	}
	return h.n.Data
}

func (h htmlNode) Children() []Node {
	var children []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, htmlNode{c})
	}
	return children
}
