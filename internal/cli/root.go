// Package cli implements the reportlint command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reportlint",
	Short: "Review DOCX reports with a multimodal model",
	Long: `reportlint extracts the reviewable content of a DOCX report, sends it
to a multimodal review model and writes the findings back into the
document as native reviewer comments.

Typical workflow:
  reportlint extract report.docx            inspect the extracted content
  reportlint review report.docx -o issues.json
  reportlint preview report.docx --issues issues.json -o report.html
  reportlint annotate report.docx --issues issues.json -o reviewed.docx`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
