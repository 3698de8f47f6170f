package prompt

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the loaded prompts.
type Registry struct {
	prompts map[string]*Template
	mu      sync.RWMutex
}

// NewRegistry returns a registry seeded with the built-in prompts.
func NewRegistry() *Registry {
	r := &Registry{prompts: make(map[string]*Template)}
	for _, pt := range builtins() {
		r.prompts[pt.ID] = pt
	}
	return r
}

// Register adds or replaces a prompt.
func (r *Registry) Register(pt *Template) error {
	if pt.ID == "" {
		return fmt.Errorf("prompt ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts[pt.ID] = pt
	return nil
}

// GetPrompt retrieves a prompt by ID.
func (r *Registry) GetPrompt(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.prompts[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt not found: %s", id)
}

// GetSystemPrompt returns only the system prompt of id.
func (r *Registry) GetSystemPrompt(id string) (string, error) {
	pt, err := r.GetPrompt(id)
	if err != nil {
		return "", err
	}
	return pt.SystemPrompt, nil
}

// Render looks up id and executes its user template against ctx. It
// returns the system prompt alongside the rendered user prompt.
func (r *Registry) Render(id string, ctx *Context) (system, user string, err error) {
	pt, err := r.GetPrompt(id)
	if err != nil {
		return "", "", err
	}
	user, err = RenderUserPrompt(pt, ctx)
	if err != nil {
		return "", "", fmt.Errorf("render %s: %w", id, err)
	}
	return pt.SystemPrompt, user, nil
}

// ListPrompts returns all registered prompt IDs, sorted.
func (r *Registry) ListPrompts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.prompts))
	for id := range r.prompts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered prompts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts)
}
