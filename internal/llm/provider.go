// Package llm provides the review-model provider interface, the provider
// registry and the batching analyzer that drives a full document review.
package llm

import (
	"context"

	"github.com/veridoc-io/reportlint/internal/review"
)

// Provider is the interface all review-model providers implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string

	// Review sends a batch of content units to the model and returns the
	// issues it found. A malformed model response yields an empty issue
	// list, not an error; errors are reserved for transport failures.
	Review(ctx context.Context, units []review.ContentUnit, opts ReviewOptions) ([]review.Issue, error)

	// Validate checks whether the provider is properly configured.
	Validate() error
}

// ReviewOptions contains options for one review call.
type ReviewOptions struct {
	Language    string  `json:"language,omitempty"`    // output language for descriptions and suggestions
	Rules       string  `json:"rules,omitempty"`       // review rule text injected into the system prompt
	MaxTokens   int     `json:"max_tokens,omitempty"`  // maximum tokens for the response
	Temperature float64 `json:"temperature,omitempty"` // sampling temperature
}

// DefaultReviewOptions returns the default review options.
func DefaultReviewOptions() ReviewOptions {
	return ReviewOptions{
		Language:    "en",
		MaxTokens:   2000,
		Temperature: 0.2,
	}
}

// ClientConfig carries the connection settings shared by all providers.
type ClientConfig struct {
	APIKey   string
	Model    string
	Endpoint string // custom base URL, for OpenAI-compatible gateways
}
