package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash-exp"

// GeminiAPIKey returns the configured Gemini key. EXPO_PUBLIC_GEMINI_API_KEY is
// still honoured for environments set up for the mobile client.
func GeminiAPIKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("EXPO_PUBLIC_GEMINI_API_KEY")
}

// GeminiProvider implements the Provider interface for Google's Gemini models.
type GeminiProvider struct {
	Model string // e.g. "gemini-2.0-flash-exp"

	apiKey    string
	once      sync.Once
	client    *genai.Client
	clientErr error
}

// Ensure interface compliance
var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider fails fast when no API key is configured.
func NewGeminiProvider(model string) (*GeminiProvider, error) {
	apiKey := GeminiAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{Model: model, apiKey: apiKey}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini/" + p.Model
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		p.client, p.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if p.clientErr != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", p.clientErr)
	}
	return p.client, nil
}

// GenerateResponse sends a text-only generateContent request.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return p.generate(ctx, genai.Text(prompt), systemPrompt, options)
}

// GenerateFromDocument sends the prompt followed by the document as an inline part.
func (p *GeminiProvider) GenerateFromDocument(ctx context.Context, prompt string, systemPrompt string, doc Document, options map[string]interface{}) (string, error) {
	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(doc.Data, mimeType),
		}, genai.RoleUser),
	}
	return p.generate(ctx, contents, systemPrompt, options)
}

func (p *GeminiProvider) generate(ctx context.Context, contents []*genai.Content, systemPrompt string, options map[string]interface{}) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := modelOption(options, p.Model)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperatureOption(options, 0.1))),
	}
	if wantsJSON(options) {
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	return strings.TrimSpace(result.Text()), nil
}
