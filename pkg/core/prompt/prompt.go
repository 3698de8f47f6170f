// Package prompt holds the prompt library used for LLM extraction. Built-in
// prompts are registered by NewRegistry and can be overridden by JSON files
// loaded at runtime, so wording can change without a rebuild.
package prompt

// Template is a reusable prompt with metadata.
type Template struct {
	ID             string     `json:"id"`       // e.g. "extract.cleaner"
	Name           string     `json:"name"`     // human-readable name
	Category       string     `json:"category"` // folder the prompt was loaded from
	Description    string     `json:"description"`
	SystemPrompt   string     `json:"system_prompt"`
	UserPromptTmpl string     `json:"user_prompt_template"` // text/template source
	Variables      []Variable `json:"variables"`
	Version        string     `json:"version"`
}

// Variable documents a value consumed by a user prompt template.
type Variable struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default"`
}

// Context holds runtime values for template execution.
type Context struct {
	Variables map[string]interface{}
}

// NewContext creates an empty execution context.
func NewContext() *Context {
	return &Context{Variables: make(map[string]interface{})}
}

// Set adds a variable to the context.
func (c *Context) Set(key string, value interface{}) *Context {
	c.Variables[key] = value
	return c
}
