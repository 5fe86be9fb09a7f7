package llm

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veridoc-io/reportlint/internal/review"
)

// systemPrompt builds the reviewer instructions for one batch. The model
// must answer with a bare JSON array of issue objects; anything else is
// discarded by parseIssues.
func systemPrompt(opts ReviewOptions) string {
	var sb strings.Builder
	sb.WriteString("You are a meticulous clinical report reviewer. ")
	sb.WriteString("Review the numbered content blocks for factual, numerical, formatting and consistency problems.\n\n")
	if opts.Rules != "" {
		sb.WriteString("Review rules:\n")
		sb.WriteString(opts.Rules)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond with ONLY a JSON array. Each element must have exactly these fields:\n")
	sb.WriteString(`  "element_id": the integer ID of the block the issue is in` + "\n")
	sb.WriteString(`  "category": "text", "table" or "image"` + "\n")
	sb.WriteString(`  "original_text": verbatim excerpt from the block, at most 50 characters` + "\n")
	sb.WriteString(`  "issue_type": "Critical", "Major" or "Minor"` + "\n")
	sb.WriteString(`  "description": what is wrong` + "\n")
	sb.WriteString(`  "suggestion": how to fix it` + "\n\n")
	sb.WriteString("Return [] when a batch has no issues. Do not invent issues.\n")
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	sb.WriteString(fmt.Sprintf("Write description and suggestion in language %q.\n", lang))
	return sb.String()
}

// unitText renders one unit as a prompt block. Every block leads with
// its identifier so the model can report element_id back.
func unitText(u review.ContentUnit) string {
	prefix := fmt.Sprintf("[ID: %d] ", u.ID)
	if u.Kind == review.UnitTable {
		return prefix + "Table:\n" + u.Payload
	}
	return prefix + u.Payload
}

// imageBytes resolves an image unit's payload to raw bytes and a MIME
// type. The payload is either a data URI (in-memory extraction) or a
// path to a file written by the walker.
func imageBytes(payload string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		mime, b64, ok := strings.Cut(rest, ";base64,")
		if !ok {
			return nil, "", fmt.Errorf("malformed image data URI")
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, "", fmt.Errorf("decode image data URI: %w", err)
		}
		return data, mime, nil
	}
	data, err := os.ReadFile(payload)
	if err != nil {
		return nil, "", fmt.Errorf("read image %s: %w", payload, err)
	}
	return data, mimeForPath(payload), nil
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// imageDataURI resolves an image unit's payload to a data URI, for
// providers that take images by URL.
func imageDataURI(payload string) (string, error) {
	if strings.HasPrefix(payload, "data:") {
		return payload, nil
	}
	data, mime, err := imageBytes(payload)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// parseIssues extracts the issue array from a model response. Code
// fences around the JSON are tolerated; any other deviation from the
// contract yields an empty list rather than an error, so one confused
// batch cannot fail a whole review.
func parseIssues(raw string) []review.Issue {
	s := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	var issues []review.Issue
	if err := json.Unmarshal([]byte(s), &issues); err != nil {
		return nil
	}
	return issues
}
