package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/reportlint/internal/docx"
	"github.com/veridoc-io/reportlint/internal/highlight"
	"github.com/veridoc-io/reportlint/internal/render"
	"github.com/veridoc-io/reportlint/internal/review"
)

var (
	previewOutput string
	previewIssues string
	previewActive int
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Render a document as an anchored HTML preview",
	Long: `Render the document body as HTML with a stable anchor on every content
unit. With --issues, the findings from a previous review are highlighted
in place with severity colors.

Examples:
  reportlint preview report.docx -o report.html
  reportlint preview report.docx --issues issues.json -o report.html
  reportlint preview report.docx --issues issues.json --active 2`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewOutput, "output", "o", "", "output HTML file (default: stdout)")
	previewCmd.Flags().StringVar(&previewIssues, "issues", "", "issue list JSON to highlight")
	previewCmd.Flags().IntVar(&previewActive, "active", highlight.NoActive, "issue index to emphasize")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	pkg, err := openPackage(args[0])
	if err != nil {
		return err
	}

	var issues []review.Issue
	if previewIssues != "" {
		issues, err = loadIssues(previewIssues)
		if err != nil {
			return err
		}
	}

	fragment, err := buildPreview(pkg, issues, previewActive)
	if err != nil {
		return err
	}
	page := previewPage(fragment)

	if previewOutput == "" {
		fmt.Println(page)
		return nil
	}
	if err := os.WriteFile(previewOutput, []byte(page), 0644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Preview written: %s\n", previewOutput)
	return nil
}

// buildPreview runs the marker pipeline: inject markers, render, resolve
// anchors, then highlight any supplied issues.
func buildPreview(pkg *docx.Package, issues []review.Issue, active int) (string, error) {
	marked, err := docx.InjectMarkers(pkg)
	if err != nil {
		return "", fmt.Errorf("inject markers: %w", err)
	}
	fragment, err := render.Fragment(marked)
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	walker, err := docx.NewWalker(pkg, docx.WalkOptions{})
	if err != nil {
		return "", fmt.Errorf("scan document: %w", err)
	}
	anchored, err := render.ResolveAnchors(fragment, walker.ImageUnitIDs())
	if err != nil {
		return "", fmt.Errorf("resolve anchors: %w", err)
	}
	if len(issues) == 0 {
		return anchored, nil
	}
	highlighted, err := highlight.Apply(anchored, issues, active)
	if err != nil {
		return "", fmt.Errorf("highlight issues: %w", err)
	}
	return highlighted, nil
}

// previewPage wraps a fragment in a minimal standalone HTML page.
func previewPage(fragment string) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Document Preview</title>
<style>
body { font-family: sans-serif; max-width: 900px; margin: 2em auto; line-height: 1.6; }
table { border-collapse: collapse; margin: 1em 0; }
td, th { border: 1px solid #ccc; padding: 6px 10px; }
img { max-width: 100%; }
</style>
</head>
<body>
`)
	sb.WriteString(fragment)
	sb.WriteString("\n</body>\n</html>\n")
	return sb.String()
}
