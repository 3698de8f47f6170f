package normalize

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_TablesAndPruning(t *testing.T) {
	html := `<html><head><title>Annual report</title></head><body>` +
		`<p>Intro</p>` +
		`<table><tr><td>Revenue</td><td>1,200</td></tr><tr><td>Costs</td><td>300</td></tr></table>` +
		`<table><tr><td>Menu</td></tr></table>` +
		`<p>Outro</p></body></html>`

	got := New().Normalize(html, "", "")

	want := "Intro \n\nTable: \n  Revenue   1,200 \n  Costs   300 \nEnd of table\n\nOutro "
	assert.Equal(t, want, got)
}

func TestNormalize_DropsNonContent(t *testing.T) {
	html := `<html><head><meta charset="utf-8"><style>p{color:red}</style></head><body>` +
		`<nav>Menu</nav><header>Top</header>` +
		`<script>var revenue = 1;</script>` +
		`<p style="font-weight:bold">Body</p><img src="logo.png" alt="Logo">` +
		`<footer>Foot</footer></body></html>`

	got := New().Normalize(html, "", "")

	assert.Equal(t, "Body ", got)
}

func TestNormalize_Pagination(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&sb, `<div class="pageView"><p>Page %d</p></div>`, i)
	}
	sb.WriteString("</body></html>")
	doc := sb.String()
	n := New()

	tests := []struct {
		name       string
		start, end string
		want       []string
	}{
		{"start and end", "2", "3", []string{"Page 2", "Page 3"}},
		{"start only", "4", "", []string{"Page 4", "Page 5"}},
		{"end only", "", "2", []string{"Page 1", "Page 2"}},
		{"inverted range keeps all", "4", "2", []string{"Page 1", "Page 2", "Page 3", "Page 4", "Page 5"}},
		{"invalid values keep all", "abc", "x", []string{"Page 1", "Page 2", "Page 3", "Page 4", "Page 5"}},
		{"end past last page", "5", "99", []string{"Page 5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(doc, tt.start, tt.end)
			assert.Equal(t, strings.Join(tt.want, PageBreak), got)
		})
	}

	pages, paginated := n.extract(doc)
	assert.True(t, paginated)
	assert.Len(t, pages, 5)
}

func TestNormalize_Degrades(t *testing.T) {
	n := New()
	assert.Equal(t, "", n.Normalize("", "", ""))

	noBoundary := "MIME-Version: 1.0\nContent-Type: multipart/related\n\n<p>lost</p>"
	assert.Equal(t, "", n.Normalize(noBoundary, "", ""))

	failing := New(WithParser(failingParser{}))
	assert.Equal(t, "", failing.Normalize("<p>text</p>", "", ""))

	panicking := New(WithParser(panickingParser{}))
	assert.Equal(t, "", panicking.Normalize("<p>text</p>", "", ""))
}

func TestExtractFormattedText_DeepNesting(t *testing.T) {
	depth := 5000
	html := strings.Repeat("<div>", depth) + "deep" + strings.Repeat("</div>", depth)

	tree, err := GoqueryParser{}.Parse(html)
	require.NoError(t, err)

	assert.Contains(t, ExtractFormattedText(tree.Body()), "deep")
}

func TestExtractFormattedText_NestedTables(t *testing.T) {
	tree, err := GoqueryParser{}.Parse(
		`<table><tr><th>Outer</th><td><table><tr><td>Inner</td></tr></table></td></tr></table>`)
	require.NoError(t, err)

	got := ExtractFormattedText(tree.Body())

	assert.Equal(t, 2, strings.Count(got, "Table: "))
	assert.Equal(t, 2, strings.Count(got, "End of table"))
	assert.Less(t, strings.Index(got, "Outer"), strings.Index(got, "Inner"))
}

type failingParser struct{}

func (failingParser) Parse(string) (Tree, error) {
	return nil, errors.New("boom")
}

type panickingParser struct{}

func (panickingParser) Parse(string) (Tree, error) {
	panic("malformed tree")
}
