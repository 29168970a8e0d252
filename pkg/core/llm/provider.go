package llm

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a provider's API key is not configured.
var ErrMissingAPIKey = errors.New("llm: API key is not set")

// Document is a file sent to the model alongside the prompt.
type Document struct {
	Name     string
	MIMEType string // e.g. "application/pdf"
	Data     []byte
}

// Provider is the interface for all LLM providers.
//
// Recognised options:
//   - "model" (string): overrides the provider's default model
//   - "temperature" (float64)
//   - "response_format" (map with "type": "json_object")
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// GenerateFromDocument sends the document inline together with the prompt.
	GenerateFromDocument(ctx context.Context, prompt string, systemPrompt string, doc Document, options map[string]interface{}) (string, error)
	// Name identifies the provider and model in logs and archived runs.
	Name() string
}

func modelOption(options map[string]interface{}, fallback string) string {
	if val, ok := options["model"].(string); ok && val != "" {
		return val
	}
	return fallback
}

func temperatureOption(options map[string]interface{}, fallback float64) float64 {
	if val, ok := options["temperature"].(float64); ok {
		return val
	}
	return fallback
}

func wantsJSON(options map[string]interface{}) bool {
	if val, ok := options["response_format"].(map[string]interface{}); ok {
		return val["type"] == "json_object"
	}
	return false
}
