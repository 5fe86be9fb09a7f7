package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/veridoc-io/reportlint/internal/review"
)

// GeminiProvider reviews content through the Gemini API. The client is
// constructed lazily because the SDK requires a context to dial.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(cfg ClientConfig) *GeminiProvider {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		apiKey: cfg.APIKey,
		model:  model,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Validate() error {
	if p.apiKey == "" {
		return fmt.Errorf("gemini: API key not configured")
	}
	return nil
}

func (p *GeminiProvider) Review(ctx context.Context, units []review.ContentUnit, opts ReviewOptions) ([]review.Issue, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	parts, err := p.contentParts(units)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(opts), genai.RoleUser),
		MaxOutputTokens:   int32(opts.MaxTokens),
		Temperature:       genai.Ptr(float32(opts.Temperature)),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	return parseIssues(resp.Text()), nil
}

func (p *GeminiProvider) contentParts(units []review.ContentUnit) ([]*genai.Part, error) {
	var parts []*genai.Part
	for _, u := range units {
		if u.Kind == review.UnitImage {
			data, mime, err := imageBytes(u.Payload)
			if err != nil {
				return nil, err
			}
			parts = append(parts,
				genai.NewPartFromText(fmt.Sprintf("[ID: %d] Image:", u.ID)),
				genai.NewPartFromBytes(data, mime))
			continue
		}
		parts = append(parts, genai.NewPartFromText(unitText(u)))
	}
	return parts, nil
}
