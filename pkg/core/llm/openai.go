package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4.1"

// OpenAIProvider talks to the Responses API. PDFs are attached as input_file
// items carrying a base64 data URL.
type OpenAIProvider struct {
	Model  string
	client *openai.Client
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider fails fast when OPENAI_API_KEY is not configured.
func NewOpenAIProvider(model string) (*OpenAIProvider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{Model: model, client: &client}, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai/" + p.Model
}

func (p *OpenAIProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	items := p.systemItems(systemPrompt)
	items = append(items, responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser))
	return p.send(ctx, items, options)
}

func (p *OpenAIProvider) GenerateFromDocument(ctx context.Context, prompt string, systemPrompt string, doc Document, options map[string]interface{}) (string, error) {
	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)

	content := responses.ResponseInputMessageContentListParam{
		{OfInputText: &responses.ResponseInputTextParam{Text: prompt}},
		{OfInputFile: &responses.ResponseInputFileParam{
			Filename: openai.String(doc.Name),
			FileData: openai.String(dataURL),
		}},
	}

	items := p.systemItems(systemPrompt)
	items = append(items, responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser))
	return p.send(ctx, items, options)
}

func (p *OpenAIProvider) systemItems(systemPrompt string) responses.ResponseInputParam {
	if systemPrompt == "" {
		return responses.ResponseInputParam{}
	}
	return responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem),
	}
}

func (p *OpenAIProvider) params(items responses.ResponseInputParam, options map[string]interface{}) responses.ResponseNewParams {
	params := responses.ResponseNewParams{
		Model:       shared.ResponsesModel(modelOption(options, p.Model)),
		Temperature: openai.Float(temperatureOption(options, 0.1)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if wantsJSON(options) {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
		}
	}
	return params
}

func (p *OpenAIProvider) send(ctx context.Context, items responses.ResponseInputParam, options map[string]interface{}) (string, error) {
	resp, err := p.client.Responses.New(ctx, p.params(items, options))
	if err != nil {
		return "", fmt.Errorf("openai generation failed: %w", err)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return "", errors.New("openai returned an empty response")
	}
	return output, nil
}
