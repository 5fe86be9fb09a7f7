package cli

import (
	"fmt"
	"os"

	"github.com/veridoc-io/reportlint/internal/config"
	"github.com/veridoc-io/reportlint/internal/docx"
	"github.com/veridoc-io/reportlint/internal/llm"
)

// openPackage validates the file format and opens the document.
func openPackage(path string) (*docx.Package, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	format, err := docx.DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("detect format: %w", err)
	}
	switch format {
	case docx.FormatDOCX:
		return docx.Open(path)
	case docx.FormatLegacyDoc:
		return nil, fmt.Errorf("%s is a legacy .doc file; convert it to .docx first", path)
	default:
		return nil, fmt.Errorf("%s is not a DOCX document", path)
	}
}

// loadConfig loads the user configuration, falling back to defaults.
func loadConfig() (*config.Config, error) {
	loader, err := config.NewLoader()
	if err != nil {
		return nil, err
	}
	return loader.Load()
}

// buildProvider constructs the named provider (or the configured
// default) from the loaded configuration.
func buildProvider(cfg *config.Config, name, model string) (llm.Provider, error) {
	if name == "" {
		name = cfg.DefaultProvider
	}
	pc, ok := cfg.GetProvider(name)
	if !ok {
		pc = &config.Provider{}
	}
	cc := llm.ClientConfig{
		APIKey:   pc.APIKey,
		Model:    pc.Model,
		Endpoint: pc.Endpoint,
	}
	if model != "" {
		cc.Model = model
	}

	var provider llm.Provider
	switch name {
	case "openai":
		provider = llm.NewOpenAIProvider(cc)
	case "qwen":
		provider = llm.NewQwenProvider(cc)
	case "anthropic":
		provider = llm.NewAnthropicProvider(cc)
	case "gemini":
		provider = llm.NewGeminiProvider(cc)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: qwen, openai, anthropic, gemini)", name)
	}
	if err := provider.Validate(); err != nil {
		return nil, err
	}
	return provider, nil
}
