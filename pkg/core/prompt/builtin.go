package prompt

// Built-in prompt IDs.
const (
	ExtractCleaner   = "extract.cleaner"
	ExtractSubmitter = "extract.submitter"
)

func builtins() []*Template {
	return []*Template{
		{
			ID:       ExtractCleaner,
			Name:     "Statement cleaner",
			Category: "extract",
			Description: "Rewrites a noisy statement excerpt as a compact list of " +
				"line items for the requested period.",
			SystemPrompt: `You are a financial analyst reading excerpts of annual and interim reports.
The excerpt was extracted automatically from a filing and may contain unrelated text, broken tables and several periods side by side.
Keep only the figures of the requested statement. Output one line per item as "label: value" using the numbers exactly as printed, with negative values written with a leading minus sign.
Do not compute, estimate or convert anything. If an item is not present, omit it.`,
			UserPromptTmpl: `Statement: {{.Statement}}
{{- if .Units}}
Reported units: {{.Units}}
{{- end}}
Items of interest: {{.Fields}}

Excerpt:
{{.Text}}`,
			Variables: []Variable{
				{Name: "Statement", Type: "string", Required: true},
				{Name: "Fields", Type: "string", Required: true},
				{Name: "Units", Type: "int", Description: "unit scale, 0 when unknown"},
				{Name: "Text", Type: "string", Required: true},
			},
			Version: "1",
		},
		{
			ID:       ExtractSubmitter,
			Name:     "Statement submitter",
			Category: "extract",
			Description: "Maps cleaned line items onto the fixed JSON template " +
				"for one statement.",
			SystemPrompt: `You convert cleaned financial statement line items into JSON.
Answer with a single JSON object and nothing else. Use exactly the keys you are given. Values are plain numbers without thousands separators or currency symbols, or null when the item is missing.
"units" is the scale the figures are reported in: 1, 1000, 1000000 or 1000000000.`,
			UserPromptTmpl: `Period: {{.Period}}
Keys: {{.Fields}}

Line items:
{{.Text}}`,
			Variables: []Variable{
				{Name: "Period", Type: "string", Required: true},
				{Name: "Fields", Type: "string", Required: true},
				{Name: "Text", Type: "string", Required: true},
			},
			Version: "1",
		},
	}
}
