package utils

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractFencedBlock returns the content of the first fenced code block in
// a Markdown document.
func ExtractFencedBlock(input string) (string, bool) {
	source := []byte(input)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var (
		found string
		ok    bool
	)
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, isFenced := n.(*ast.FencedCodeBlock)
		if !isFenced {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		found, ok = sb.String(), true
		return ast.WalkStop, nil
	})
	return found, ok
}

// CleanMarkdown strips an outer code fence and surrounding whitespace.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)
	if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") && len(cleaned) >= 6 {
		if block, ok := ExtractFencedBlock(cleaned); ok {
			return strings.TrimSpace(block)
		}
	}
	return cleaned
}
