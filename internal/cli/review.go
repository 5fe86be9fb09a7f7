package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/reportlint/internal/docx"
	"github.com/veridoc-io/reportlint/internal/llm"
	"github.com/veridoc-io/reportlint/internal/review"
)

var (
	reviewOutput      string
	reviewProvider    string
	reviewModel       string
	reviewLanguage    string
	reviewRulesPath   string
	reviewBatchSize   int
	reviewConcurrency int
	reviewVerbose     bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Review a document with a multimodal model",
	Long: `Extract the document's content, send it to the configured review model
in batches and print the findings with a quality score.

The issue list can be saved with -o and fed to the preview and annotate
commands, so the model is called once per document.

Examples:
  reportlint review report.docx
  reportlint review report.docx -o issues.json
  reportlint review report.docx --provider anthropic --language en
  reportlint review report.docx --rules rules.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewOutput, "output", "o", "", "write the issue list to this JSON file")
	reviewCmd.Flags().StringVar(&reviewProvider, "provider", "", "review provider (qwen, openai, anthropic, gemini)")
	reviewCmd.Flags().StringVar(&reviewModel, "model", "", "model name override")
	reviewCmd.Flags().StringVar(&reviewLanguage, "language", "", "output language for findings")
	reviewCmd.Flags().StringVar(&reviewRulesPath, "rules", "", "file with review rules for the system prompt")
	reviewCmd.Flags().IntVar(&reviewBatchSize, "batch-size", 0, "content units per model call")
	reviewCmd.Flags().IntVar(&reviewConcurrency, "concurrency", 0, "concurrent model calls")
	reviewCmd.Flags().BoolVarP(&reviewVerbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	pkg, err := openPackage(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	provider, err := buildProvider(cfg, reviewProvider, reviewModel)
	if err != nil {
		return err
	}

	walker, err := docx.NewWalker(pkg, docx.WalkOptions{})
	if err != nil {
		return fmt.Errorf("scan document: %w", err)
	}
	units, err := walker.Units()
	if err != nil {
		return fmt.Errorf("extract content: %w", err)
	}
	if reviewVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Extracted %d content units\n", len(units))
	}

	opts := llm.DefaultReviewOptions()
	opts.Language = cfg.Review.Language
	if reviewLanguage != "" {
		opts.Language = reviewLanguage
	}
	if cfg.Review.Temperature > 0 {
		opts.Temperature = cfg.Review.Temperature
	}
	rulesPath := reviewRulesPath
	if rulesPath == "" {
		rulesPath = cfg.Review.RulesPath
	}
	if rulesPath != "" {
		rules, err := os.ReadFile(rulesPath)
		if err != nil {
			return fmt.Errorf("read rules: %w", err)
		}
		opts.Rules = string(rules)
	}

	batchSize := reviewBatchSize
	if batchSize == 0 {
		batchSize = cfg.Review.BatchSize
	}
	concurrency := reviewConcurrency
	if concurrency == 0 {
		concurrency = cfg.Review.Concurrency
	}

	if reviewVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Reviewing with %s\n", provider.Name())
	}
	analyzer := llm.NewAnalyzer(provider, batchSize, concurrency)
	issues := analyzer.Analyze(cmd.Context(), units, opts)

	if reviewOutput != "" {
		if err := review.SaveCache(reviewOutput, issues); err != nil {
			return fmt.Errorf("save issues: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Issues written: %s\n", reviewOutput)
	}

	printSummary(cmd, issues)
	return nil
}

func printSummary(cmd *cobra.Command, issues []review.Issue) {
	summary := review.Summarize(issues)
	out := cmd.OutOrStdout()

	for i, issue := range issues {
		fmt.Fprintf(out, "%d. [%s] %s\n", i+1, issue.IssueType, issue.Description)
		if issue.OriginalText != "" {
			fmt.Fprintf(out, "   Text: %s\n", issue.OriginalText)
		}
		if issue.Suggestion != "" {
			fmt.Fprintf(out, "   Suggestion: %s\n", issue.Suggestion)
		}
	}
	if len(issues) > 0 {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Critical: %d  Major: %d  Minor: %d\n", summary.Critical, summary.Major, summary.Minor)
	fmt.Fprintf(out, "Quality score: %d/100\n", summary.Score)
}

// loadIssues reads an issue list produced by the review command.
func loadIssues(path string) ([]review.Issue, error) {
	issues, err := review.LoadCache(path)
	if err != nil {
		return nil, fmt.Errorf("load issues: %w", err)
	}
	return issues, nil
}

// selectIssues filters an issue list by comma-separated indexes.
func selectIssues(issues []review.Issue, raw string) ([]review.Issue, error) {
	if raw == "" {
		return issues, nil
	}
	var indexes []int
	if err := json.Unmarshal([]byte("["+raw+"]"), &indexes); err != nil {
		return nil, fmt.Errorf("invalid issue selection %q: %w", raw, err)
	}
	var selected []review.Issue
	for _, idx := range indexes {
		if idx < 0 || idx >= len(issues) {
			return nil, fmt.Errorf("issue index out of range: %d", idx)
		}
		selected = append(selected, issues[idx])
	}
	return selected, nil
}
