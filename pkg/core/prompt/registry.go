package prompt

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds loaded prompts and response schemas. A nil *Registry is
// valid and behaves as an empty one.
type Registry struct {
	prompts map[string]*Template
	schemas map[string]*Schema
	mu      sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		prompts: make(map[string]*Template),
		schemas: make(map[string]*Schema),
	}
}

// Register adds a prompt, replacing any prompt with the same ID.
func (r *Registry) Register(t *Template) error {
	if t.ID == "" {
		return fmt.Errorf("prompt ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts[t.ID] = t
	return nil
}

// RegisterSchema adds a compiled response schema.
func (r *Registry) RegisterSchema(s *Schema) error {
	if s.ID == "" {
		return fmt.Errorf("schema ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemas[s.ID] = s
	return nil
}

// Prompt returns the prompt registered under id.
func (r *Registry) Prompt(id string) (*Template, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.prompts[id]
	return t, ok
}

// SystemPromptOr returns the system prompt registered under id, or fallback
// when the prompt is missing or has none.
func (r *Registry) SystemPromptOr(id, fallback string) string {
	t, ok := r.Prompt(id)
	if !ok || t.SystemPrompt == "" {
		return fallback
	}
	return t.SystemPrompt
}

// UserPromptOr renders the user prompt registered under id with vars. When no
// template is registered it returns fallback unchanged.
func (r *Registry) UserPromptOr(id string, vars map[string]interface{}, fallback string) (string, error) {
	t, ok := r.Prompt(id)
	if !ok || t.UserPromptTmpl == "" {
		return fallback, nil
	}
	return t.Render(vars)
}

// ValidateResponse checks a JSON reply to prompt id against the schema the
// prompt references. Prompts without a schema accept any reply.
func (r *Registry) ValidateResponse(id string, reply []byte) error {
	t, ok := r.Prompt(id)
	if !ok || t.ResponseSchema == "" {
		return nil
	}

	r.mu.RLock()
	s, ok := r.schemas[t.ResponseSchema]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("prompt %s references unknown schema %s", id, t.ResponseSchema)
	}
	return s.Validate(reply)
}

// ListPrompts returns the registered prompt IDs in order.
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
