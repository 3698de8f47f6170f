package normalize

import "strings"

// Table markers emitted around every <table>. The postprocessor and
// downstream prompts look for the bare "Table:" / "End of table" tokens.
const (
	TableOpenMarker  = "\n\nTable: "
	TableCloseMarker = "\nEnd of table\n\n"
)

// walkFrame is one pending step of the pre-order walk. Exit frames emit the
// closing marker of an element after all of its children were visited.
type walkFrame struct {
	node     Node
	exit     bool
	inScript bool
	inStyle  bool
	inTable  bool
}

// ExtractFormattedText walks the subtree rooted at root and returns its text:
// trimmed text nodes followed by a space, table markers, a newline per table
// row and two spaces per cell. Text under <script> or <style> is discarded.
// The walk uses an explicit stack so deeply nested markup cannot exhaust the
// goroutine stack.
func ExtractFormattedText(root Node) string {
	if root == nil {
		return ""
	}

	var sb strings.Builder
	stack := []walkFrame{{node: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.exit {
			if f.node.Tag() == "table" {
				sb.WriteString(TableCloseMarker)
			}
			continue
		}

		switch f.node.Kind() {
		case TextNode:
			if f.inScript || f.inStyle {
				continue
			}
			if text := strings.TrimSpace(f.node.Text()); text != "" {
				sb.WriteString(text)
				sb.WriteByte(' ')
			}
			continue

		case ElementNode:
			tag := f.node.Tag()
			switch tag {
			case "script":
				f.inScript = true
			case "style":
				f.inStyle = true
			case "table":
				f.inTable = true
				sb.WriteString(TableOpenMarker)
			}
			if f.inTable {
				switch tag {
				case "tr":
					sb.WriteByte('\n')
				case "td", "th":
					sb.WriteString("  ")
				}
			}
			stack = append(stack, walkFrame{node: f.node, exit: true})
		}

		if f.inScript || f.inStyle {
			continue
		}
		children := f.node.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, walkFrame{
				node:     children[i],
				inScript: f.inScript,
				inStyle:  f.inStyle,
				inTable:  f.inTable,
			})
		}
	}

	return sb.String()
}
