// Package render converts a (marker-injected) document to a preview HTML
// fragment and resolves the markers into stable anchors on the rendered
// nodes.
package render

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/veridoc-io/reportlint/internal/docx"
)

// Fragment renders the document body as a self-contained HTML fragment.
// Headings come from paragraph styles, tables keep their row structure
// and embedded images are inlined as data URIs. Marker paragraphs render
// as ordinary paragraphs; ResolveAnchors turns them into anchors.
func Fragment(pkg *docx.Package) (string, error) {
	elements, err := docx.ScanBody(pkg.Document())
	if err != nil {
		return "", err
	}
	rels := pkg.ImageRels()

	var sb strings.Builder
	for _, elem := range elements {
		switch elem.Kind {
		case docx.ElementParagraph:
			writeParagraph(&sb, pkg, rels, elem.Para)
		case docx.ElementTable:
			writeTable(&sb, elem.Rows)
		case docx.ElementBlock:
			for i := range elem.Paras {
				writeParagraph(&sb, pkg, rels, &elem.Paras[i])
			}
		}
	}
	return sb.String(), nil
}

func writeParagraph(sb *strings.Builder, pkg *docx.Package, rels map[string]string, para *docx.ParaRef) {
	var inner strings.Builder
	for _, run := range para.Runs {
		for _, ref := range run.Images {
			target, ok := rels[ref]
			if !ok {
				continue
			}
			data, ok := pkg.ImageData(target)
			if !ok {
				continue
			}
			src := imageSrc(data, target)
			inner.WriteString(`<img src="` + src + `"/>`)
		}
		inner.WriteString(html.EscapeString(run.Text))
	}
	if inner.Len() == 0 && strings.TrimSpace(para.Text) == "" {
		return
	}

	tag := headingTag(para.Style)
	sb.WriteString("<" + tag + ">")
	sb.WriteString(inner.String())
	sb.WriteString("</" + tag + ">")
}

func headingTag(style string) string {
	lower := strings.ToLower(style)
	if lower == "title" {
		return "h1"
	}
	if strings.HasPrefix(lower, "heading") {
		for level := 1; level <= 6; level++ {
			if strings.HasSuffix(lower, fmt.Sprintf("%d", level)) {
				return fmt.Sprintf("h%d", level)
			}
		}
	}
	return "p"
}

func writeTable(sb *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	sb.WriteString("<table><tbody>")
	for i, row := range rows {
		cellTag := "td"
		if i == 0 && len(rows) > 1 {
			cellTag = "th"
		}
		sb.WriteString("<tr>")
		for _, cell := range row {
			sb.WriteString("<" + cellTag + ">" + html.EscapeString(cell) + "</" + cellTag + ">")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")
}

func imageSrc(data []byte, target string) string {
	ext := filepath.Ext(target)
	return "data:" + docx.ImageMIME(ext) + ";base64," + base64Encode(data)
}
