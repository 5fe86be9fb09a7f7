package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/veridoc-io/reportlint/internal/review"
)

// AnthropicProvider reviews content through the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates an Anthropic-backed provider.
func NewAnthropicProvider(cfg ClientConfig) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Validate() error {
	if p.model == "" {
		return fmt.Errorf("anthropic: model not configured")
	}
	return nil
}

func (p *AnthropicProvider) Review(ctx context.Context, units []review.ContentUnit, opts ReviewOptions) ([]review.Issue, error) {
	blocks, err := p.contentBlocks(units)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(opts.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(opts)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return parseIssues(sb.String()), nil
}

func (p *AnthropicProvider) contentBlocks(units []review.ContentUnit) ([]anthropic.ContentBlockParamUnion, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, u := range units {
		if u.Kind == review.UnitImage {
			data, mime, err := imageBytes(u.Payload)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks,
				anthropic.NewTextBlock(fmt.Sprintf("[ID: %d] Image:", u.ID)),
				anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(data)))
			continue
		}
		blocks = append(blocks, anthropic.NewTextBlock(unitText(u)))
	}
	return blocks, nil
}
