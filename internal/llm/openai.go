package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/veridoc-io/reportlint/internal/review"
)

// OpenAIProvider reviews content through the OpenAI chat completion API,
// or through any OpenAI-compatible endpoint (DashScope's compatible mode
// serves the Qwen vision models this way).
type OpenAIProvider struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(cfg ClientConfig) *OpenAIProvider {
	return newOpenAICompatible("openai", cfg, "gpt-4o")
}

// NewQwenProvider creates a provider for the Qwen vision models behind
// DashScope's OpenAI-compatible endpoint.
func NewQwenProvider(cfg ClientConfig) *OpenAIProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	return newOpenAICompatible("qwen", cfg, "qwen-vl-max")
}

func newOpenAICompatible(name string, cfg ClientConfig, defaultModel string) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &OpenAIProvider{
		name:   name,
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Validate() error {
	if p.client == nil {
		return fmt.Errorf("%s: client not initialized", p.name)
	}
	return nil
}

func (p *OpenAIProvider) Review(ctx context.Context, units []review.ContentUnit, opts ReviewOptions) ([]review.Issue, error) {
	parts, err := p.contentParts(units)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(opts)},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty response", p.name)
	}
	return parseIssues(resp.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) contentParts(units []review.ContentUnit) ([]openai.ChatMessagePart, error) {
	var parts []openai.ChatMessagePart
	for _, u := range units {
		if u.Kind == review.UnitImage {
			uri, err := imageDataURI(u.Payload)
			if err != nil {
				return nil, err
			}
			parts = append(parts,
				openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: fmt.Sprintf("[ID: %d] Image:", u.ID),
				},
				openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: uri},
				})
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: unitText(u),
		})
	}
	return parts, nil
}
