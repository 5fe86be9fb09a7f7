package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/reportlint/internal/docx"
	"github.com/veridoc-io/reportlint/internal/review"
)

var (
	extractOutput      string
	extractFormat      string
	extractImagesDir   string
	extractPrettyPrint bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract the reviewable content units of a document",
	Long: `Extract the identified content units of a DOCX document without
calling a review model.

Each unit carries the identifier that links extraction, preview anchors
and review findings. Output is JSON by default; text prints a short
human-readable listing.

Examples:
  reportlint extract report.docx
  reportlint extract report.docx -o units.json
  reportlint extract report.docx --format text
  reportlint extract report.docx --images-dir ./images`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file path (default: stdout)")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "json", "output format (json, text)")
	extractCmd.Flags().StringVar(&extractImagesDir, "images-dir", "", "write embedded images to this directory instead of inlining them")
	extractCmd.Flags().BoolVar(&extractPrettyPrint, "pretty", true, "indent JSON output")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	pkg, err := openPackage(args[0])
	if err != nil {
		return err
	}

	walker, err := docx.NewWalker(pkg, docx.WalkOptions{ImageDir: extractImagesDir})
	if err != nil {
		return fmt.Errorf("scan document: %w", err)
	}
	units, err := walker.Units()
	if err != nil {
		return fmt.Errorf("extract content: %w", err)
	}

	output, err := formatUnits(units, extractFormat)
	if err != nil {
		return err
	}

	if extractOutput == "" {
		fmt.Println(output)
		return nil
	}
	if err := os.WriteFile(extractOutput, []byte(output), 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Extracted %d units: %s\n", len(units), extractOutput)
	return nil
}

func formatUnits(units []review.ContentUnit, format string) (string, error) {
	switch format {
	case "json":
		var data []byte
		var err error
		if extractPrettyPrint {
			data, err = json.MarshalIndent(units, "", "  ")
		} else {
			data, err = json.Marshal(units)
		}
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "text":
		var sb strings.Builder
		for _, u := range units {
			payload := u.Payload
			if u.Kind == review.UnitImage {
				payload = describeImagePayload(payload)
			}
			fmt.Fprintf(&sb, "[%d] %s: %s\n", u.ID, u.Kind, payload)
		}
		return sb.String(), nil

	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func describeImagePayload(payload string) string {
	if strings.HasPrefix(payload, "data:") {
		mime, _, _ := strings.Cut(strings.TrimPrefix(payload, "data:"), ";")
		return fmt.Sprintf("(embedded %s, %d bytes encoded)", mime, len(payload))
	}
	return payload
}
