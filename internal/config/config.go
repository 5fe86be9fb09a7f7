// Package config manages application configuration.
package config

// Config represents the application configuration.
type Config struct {
	DefaultProvider string              `yaml:"default_provider"`
	Providers       map[string]Provider `yaml:"providers"`
	Review          ReviewConfig        `yaml:"review"`
	Server          ServerConfig        `yaml:"server"`
}

// Provider represents a review-model provider configuration.
type Provider struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Endpoint  string `yaml:"endpoint,omitempty"` // for OpenAI-compatible gateways
}

// ReviewConfig contains review options.
type ReviewConfig struct {
	Language    string  `yaml:"language"`
	RulesPath   string  `yaml:"rules_path,omitempty"`
	Temperature float64 `yaml:"temperature"`
	BatchSize   int     `yaml:"batch_size"`
	Concurrency int     `yaml:"concurrency"`
	Author      string  `yaml:"author"`
	Initials    string  `yaml:"initials"`
}

// ServerConfig contains the review server settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	UploadDir string `yaml:"upload_dir"`
	DataDir   string `yaml:"data_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultProvider: "qwen",
		Providers: map[string]Provider{
			"qwen": {
				APIKey:    "${DASHSCOPE_API_KEY}",
				Model:     "qwen-vl-max",
				MaxTokens: 2000,
				Endpoint:  "https://dashscope.aliyuncs.com/compatible-mode/v1",
			},
			"openai": {
				APIKey:    "${OPENAI_API_KEY}",
				Model:     "gpt-4o",
				MaxTokens: 2000,
			},
			"anthropic": {
				APIKey:    "${ANTHROPIC_API_KEY}",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 2000,
			},
			"gemini": {
				APIKey:    "${GOOGLE_API_KEY}",
				Model:     "gemini-2.0-flash",
				MaxTokens: 2000,
			},
		},
		Review: ReviewConfig{
			Language:    "en",
			Temperature: 0.2,
			BatchSize:   40,
			Concurrency: 3,
			Author:      "Reviewer",
			Initials:    "RV",
		},
		Server: ServerConfig{
			Addr:      ":8080",
			UploadDir: "uploads",
			DataDir:   "data",
		},
	}
}

// GetProvider returns the provider configuration by name.
func (c *Config) GetProvider(name string) (*Provider, bool) {
	p, ok := c.Providers[name]
	if !ok {
		return nil, false
	}
	return &p, true
}

// GetDefaultProvider returns the default provider configuration.
func (c *Config) GetDefaultProvider() (*Provider, bool) {
	return c.GetProvider(c.DefaultProvider)
}
