// Package prompt holds prompt overrides loaded from JSON files, so the
// extraction prompts can be tuned without a rebuild.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"
)

// Prompt IDs used by the extraction pipeline.
const (
	ExtractionSystemID  = "extraction.system"
	SegmentDisclosureID = "segments.disclosure"
)

// Template is one prompt file. ID defaults to the file's path below the
// prompts directory, e.g. "segments.disclosure".
type Template struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	Description    string     `json:"description"`
	SystemPrompt   string     `json:"system_prompt"`
	UserPromptTmpl string     `json:"user_prompt_template"` // text/template
	ResponseSchema string     `json:"response_schema_ref"`  // schema ID under schemas/
	Variables      []Variable `json:"variables"`
	Version        string     `json:"version"`
}

// Variable declares one template variable.
type Variable struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default"`
}

// Render executes the user prompt template. Declared variables missing from
// vars take their default, or fail the render when required; referencing a
// variable nobody supplied is an error.
func (t *Template) Render(vars map[string]interface{}) (string, error) {
	if t.UserPromptTmpl == "" {
		return "", nil
	}

	data := make(map[string]interface{}, len(vars)+len(t.Variables))
	for k, v := range vars {
		data[k] = v
	}
	for _, v := range t.Variables {
		if _, ok := data[v.Name]; ok {
			continue
		}
		if v.Required {
			return "", fmt.Errorf("prompt %s: missing required variable %s", t.ID, v.Name)
		}
		data[v.Name] = v.Default
	}

	tmpl, err := template.New(t.ID).Option("missingkey=error").Parse(t.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", t.ID, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.ID, err)
	}
	return buf.String(), nil
}
