package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ElementKind classifies a top-level body element.
type ElementKind int

const (
	ElementParagraph ElementKind = iota
	ElementTable
	ElementBlock // structured content block (w:sdt), e.g. a generated index
)

// Run is one text run inside a paragraph, with its byte span in the
// document part so edits can be spliced around it.
type Run struct {
	Start  int64
	End    int64
	Text   string
	Images []string // r:embed relationship ids of drawings in this run, in order
}

// ParaRef describes one paragraph: its byte span, the offset where its
// content starts (after the paragraph-properties node, if any), the
// offset of its closing tag, and the extracted text.
type ParaRef struct {
	Start        int64
	End          int64
	ContentStart int64
	ContentEnd   int64
	Style        string // pStyle value, e.g. "Heading1"
	Text         string
	Runs         []Run
}

// selfClosing reports whether the paragraph has no content span to splice
// into (serialized as <w:p/>).
func (p *ParaRef) selfClosing() bool {
	return p.ContentEnd <= p.ContentStart
}

// Element is one top-level body element in document order.
type Element struct {
	Kind  ElementKind
	Start int64
	End   int64
	Para  *ParaRef   // set for ElementParagraph
	Rows  [][]string // set for ElementTable: serialized cell text per row
	Paras []ParaRef  // nested paragraphs, for ElementTable and ElementBlock
}

// ScanBody walks the main document part once and returns the ordered
// element index every other stage (walker, marker injector, comment
// writer, renderer) is built on. Offsets are byte positions in docXML.
func ScanBody(docXML []byte) ([]Element, error) {
	d := xml.NewDecoder(bytes.NewReader(docXML))

	var elements []Element
	inBody := false
	for {
		start := d.InputOffset()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !inBody {
				if t.Name.Local == "body" {
					inBody = true
				}
				continue
			}
			switch t.Name.Local {
			case "p":
				para, err := scanParagraph(d, start)
				if err != nil {
					return nil, err
				}
				elements = append(elements, Element{
					Kind:  ElementParagraph,
					Start: para.Start,
					End:   para.End,
					Para:  para,
				})
			case "tbl":
				elem, err := scanTable(d, start)
				if err != nil {
					return nil, err
				}
				elements = append(elements, elem)
			case "sdt":
				elem, err := scanBlock(d, start)
				if err != nil {
					return nil, err
				}
				elements = append(elements, elem)
			default:
				// sectPr, bookmarks and friends carry no content units.
				if err := d.Skip(); err != nil {
					return nil, fmt.Errorf("failed to parse document XML: %w", err)
				}
			}
		case xml.EndElement:
			if inBody && t.Name.Local == "body" {
				return elements, nil
			}
		}
	}
	return elements, nil
}

// scanParagraph consumes tokens until the paragraph closes. The start
// token has already been consumed; start is its byte offset. Runs are
// collected at any depth so text inside hyperlinks and fields counts.
func scanParagraph(d *xml.Decoder, start int64) (*ParaRef, error) {
	para := &ParaRef{Start: start, ContentStart: d.InputOffset()}
	var text strings.Builder
	depth := 1

	for {
		tokStart := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse paragraph: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				if depth == 1 {
					style, err := scanParaProps(d)
					if err != nil {
						return nil, err
					}
					para.Style = style
					para.ContentStart = d.InputOffset()
					continue
				}
				depth++
			case "r":
				run, err := scanRun(d, tokStart)
				if err != nil {
					return nil, err
				}
				para.Runs = append(para.Runs, run)
				text.WriteString(run.Text)
			default:
				depth++
			}
		case xml.EndElement:
			depth--
			if depth == 0 {
				para.ContentEnd = tokStart
				para.End = d.InputOffset()
				para.Text = text.String()
				return para, nil
			}
		}
	}
}

// scanParaProps consumes a pPr subtree and returns the paragraph style.
func scanParaProps(d *xml.Decoder) (string, error) {
	style := ""
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return "", fmt.Errorf("failed to parse paragraph properties: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "pStyle" {
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return style, nil
}

// scanRun consumes a w:r subtree, collecting text and image references.
func scanRun(d *xml.Decoder, start int64) (Run, error) {
	run := Run{Start: start}
	var text strings.Builder
	depth := 1
	inText := false

	for {
		tok, err := d.Token()
		if err != nil {
			return run, fmt.Errorf("failed to parse run: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				text.WriteString("\t")
			case "br", "cr":
				text.WriteString("\n")
			case "blip":
				for _, attr := range t.Attr {
					if attr.Name.Local == "embed" {
						run.Images = append(run.Images, attr.Value)
					}
				}
			}
			depth++
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			depth--
			if depth == 0 {
				run.End = d.InputOffset()
				run.Text = text.String()
				return run, nil
			}
		}
	}
}

// scanTable consumes a w:tbl subtree. Cell text takes every text node
// reachable from the cell so nested fields and hyperlinks are not lost;
// immediately repeated fragments are dropped and newlines collapse to
// spaces when rows are serialized.
func scanTable(d *xml.Decoder, start int64) (Element, error) {
	elem := Element{Kind: ElementTable, Start: start}

	var rows [][]string
	var row []string
	var cell []string // one fragment per paragraph in the cell
	tblDepth := 1

	for {
		tokStart := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			return elem, fmt.Errorf("failed to parse table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth == 1 {
					row = nil
				}
			case "tc":
				if tblDepth == 1 {
					cell = nil
				}
			case "p":
				para, err := scanParagraph(d, tokStart)
				if err != nil {
					return elem, err
				}
				elem.Paras = append(elem.Paras, *para)
				fragment := strings.TrimSpace(para.Text)
				if fragment != "" && (len(cell) == 0 || cell[len(cell)-1] != fragment) {
					cell = append(cell, fragment)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tc":
				if tblDepth == 1 {
					row = append(row, collapseCell(cell))
					cell = nil
				}
			case "tr":
				if tblDepth == 1 && row != nil {
					rows = append(rows, row)
					row = nil
				}
			case "tbl":
				tblDepth--
				if tblDepth == 0 {
					elem.End = d.InputOffset()
					elem.Rows = rows
					return elem, nil
				}
			}
		}
	}
}

func collapseCell(fragments []string) string {
	text := strings.Join(fragments, " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}

// scanBlock consumes a w:sdt subtree, collecting the paragraphs inside
// its content so generated indices and similar blocks can be walked.
func scanBlock(d *xml.Decoder, start int64) (Element, error) {
	elem := Element{Kind: ElementBlock, Start: start}
	depth := 1

	for {
		tokStart := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			return elem, fmt.Errorf("failed to parse content block: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" {
				para, err := scanParagraph(d, tokStart)
				if err != nil {
					return elem, err
				}
				elem.Paras = append(elem.Paras, *para)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				elem.End = d.InputOffset()
				return elem, nil
			}
		}
	}
}
