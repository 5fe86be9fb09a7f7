package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type providerInfo struct {
	Name         string
	DefaultModel string
	EnvKey       string
	Description  string
}

var providers = []providerInfo{
	{
		Name:         "qwen",
		DefaultModel: "qwen-vl-max",
		EnvKey:       "DASHSCOPE_API_KEY",
		Description:  "Qwen vision models via DashScope",
	},
	{
		Name:         "openai",
		DefaultModel: "gpt-4o",
		EnvKey:       "OPENAI_API_KEY",
		Description:  "OpenAI GPT API",
	},
	{
		Name:         "anthropic",
		DefaultModel: "claude-sonnet-4-20250514",
		EnvKey:       "ANTHROPIC_API_KEY",
		Description:  "Anthropic Claude API",
	},
	{
		Name:         "gemini",
		DefaultModel: "gemini-2.0-flash",
		EnvKey:       "GOOGLE_API_KEY",
		Description:  "Google Gemini API",
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available review providers",
	Long: `List the review-model providers and whether their API keys are set.

Examples:
  reportlint review report.docx --provider anthropic
  reportlint review report.docx --provider openai --model gpt-4o`,
	Run: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "PROVIDER\tDEFAULT MODEL\tENV VAR\tSTATUS\tDESCRIPTION")
	fmt.Fprintln(w, "--------\t-------------\t-------\t------\t-----------")

	for _, p := range providers {
		status := "not configured"
		if os.Getenv(p.EnvKey) != "" {
			status = "configured"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.Name, p.DefaultModel, p.EnvKey, status, p.Description)
	}
}
