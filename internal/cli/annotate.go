package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/reportlint/internal/docx"
)

var (
	annotateOutput   string
	annotateIssues   string
	annotateSelect   string
	annotateAuthor   string
	annotateInitials string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <file>",
	Short: "Write review findings into a document as native comments",
	Long: `Insert the findings from a previous review into the document as Word
reviewer comments, anchored to the flagged content. The original file is
never modified; the annotated copy is written separately.

Examples:
  reportlint annotate report.docx --issues issues.json
  reportlint annotate report.docx --issues issues.json -o reviewed.docx
  reportlint annotate report.docx --issues issues.json --select 0,2,5
  reportlint annotate report.docx --issues issues.json --author "J. Doe" --initials JD`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().StringVarP(&annotateOutput, "output", "o", "", "output file (default: <file>_reviewed.docx)")
	annotateCmd.Flags().StringVar(&annotateIssues, "issues", "", "issue list JSON from the review command (required)")
	annotateCmd.Flags().StringVar(&annotateSelect, "select", "", "comma-separated issue indexes to write (default: all)")
	annotateCmd.Flags().StringVar(&annotateAuthor, "author", "", "comment author name")
	annotateCmd.Flags().StringVar(&annotateInitials, "initials", "", "comment author initials")
	annotateCmd.MarkFlagRequired("issues") //nolint:errcheck // flag exists

	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	pkg, err := openPackage(inputPath)
	if err != nil {
		return err
	}

	issues, err := loadIssues(annotateIssues)
	if err != nil {
		return err
	}
	issues, err = selectIssues(issues, annotateSelect)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	author := annotateAuthor
	if author == "" {
		author = cfg.Review.Author
	}
	initials := annotateInitials
	if initials == "" {
		initials = cfg.Review.Initials
	}

	annotated, err := docx.WriteComments(pkg, issues, docx.CommentOptions{
		Author:   author,
		Initials: initials,
	})
	if err != nil {
		return fmt.Errorf("write comments: %w", err)
	}

	output := annotateOutput
	if output == "" {
		ext := filepath.Ext(inputPath)
		output = strings.TrimSuffix(inputPath, ext) + "_reviewed" + ext
	}
	if err := annotated.SaveFile(output); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Annotated document written: %s (%d issues)\n", output, len(issues))
	return nil
}
