package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/veridoc-io/reportlint/internal/review"
)

const (
	commentsPart        = "word/comments.xml"
	contentTypesPart    = "[Content_Types].xml"
	commentsContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"

	emptyCommentsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\r\n" +
		`<w:comments xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"></w:comments>`
)

// CommentOptions carries the reviewer identity stamped on each comment.
type CommentOptions struct {
	Author   string
	Initials string
	Now      func() time.Time // defaults to time.Now
}

// WriteComments returns a copy of the pristine document with one native
// reviewer comment per resolvable issue. Targets are located by text
// match first and by identifier replay second; an issue that resolves
// neither way, or that is missing the fields needed to build the comment
// text, is skipped without disturbing the rest of the batch. The output
// document is produced even if no comment could be placed.
func WriteComments(pkg *Package, issues []review.Issue, opts CommentOptions) (*Package, error) {
	if opts.Author == "" {
		opts.Author = "Reviewer"
	}
	if opts.Initials == "" {
		opts.Initials = "RV"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	out := pkg.Clone()
	docXML := out.Document()

	elements, err := ScanBody(docXML)
	if err != nil {
		return nil, err
	}
	rels := out.ImageRels()
	resolve := func(ref string) bool {
		target, ok := rels[ref]
		return ok && out.HasImage(target)
	}
	units := assignUnits(elements, resolve)

	if err := ensureCommentsPart(out); err != nil {
		return nil, err
	}
	commentsXML, _ := out.Part(commentsPart)
	nextID := bytes.Count(commentsXML, []byte("<w:comment "))

	date := now().UTC().Format("2006-01-02T15:04:05Z")
	var docSplices []splice
	var newComments []byte

	for _, issue := range issues {
		if issue.Description == "" {
			continue
		}
		target, ok := resolveTarget(elements, units, issue)
		if !ok {
			continue
		}

		id := nextID
		nextID++
		start := fmt.Sprintf(`<w:commentRangeStart w:id="%d"/>`, id)
		end := fmt.Sprintf(`<w:commentRangeEnd w:id="%d"/><w:r><w:commentReference w:id="%d"/></w:r>`, id, id)
		docSplices = append(docSplices,
			splice{pos: target.startPos, data: []byte(start)},
			splice{pos: target.endPos, data: []byte(end)},
		)
		newComments = append(newComments, commentXML(id, opts.Author, opts.Initials, date, commentText(issue))...)
	}

	out.SetPart(DocumentPart, applySplices(docXML, docSplices))

	closing := bytes.LastIndex(commentsXML, []byte("</w:comments>"))
	if closing < 0 {
		return nil, fmt.Errorf("malformed comments part: closing tag not found")
	}
	out.SetPart(commentsPart, applySplices(commentsXML, []splice{{pos: int64(closing), data: newComments}}))

	return out, nil
}

// commentTarget is a resolved splice location for one comment range.
type commentTarget struct {
	startPos int64
	endPos   int64
}

// resolveTarget applies the dual anchoring strategy. The text match runs
// on whitespace-stripped text (first non-empty line for multi-line
// excerpts) over paragraphs and tables in document order; if it fails,
// the identifier replay locates the element (or the specific image run)
// whose unit id matches the issue. Both strategies are kept because the
// model-supplied identifier can be stale.
func resolveTarget(elements []Element, units []unitRef, issue review.Issue) (commentTarget, bool) {
	if needle := normalizeAnchor(issue.OriginalText); needle != "" {
		for _, elem := range elements {
			switch elem.Kind {
			case ElementParagraph:
				if strings.Contains(stripSpace(elem.Para.Text), needle) {
					if t, ok := paragraphTarget(elem.Para); ok {
						return t, true
					}
				}
			case ElementTable, ElementBlock:
				for i := range elem.Paras {
					if strings.Contains(stripSpace(elem.Paras[i].Text), needle) {
						if t, ok := paragraphTarget(&elem.Paras[i]); ok {
							return t, true
						}
					}
				}
			}
		}
	}

	if issue.ElementID < 0 {
		return commentTarget{}, false
	}
	for _, ref := range units {
		if ref.id != issue.ElementID {
			continue
		}
		elem := elements[ref.elem]
		switch ref.kind {
		case review.UnitImage:
			run := elem.Para.Runs[ref.run]
			return commentTarget{startPos: run.Start, endPos: run.End}, true
		case review.UnitText:
			if ref.para >= 0 {
				return paragraphTarget(&elem.Paras[ref.para])
			}
			return paragraphTarget(elem.Para)
		case review.UnitTable:
			for i := range elem.Paras {
				if strings.TrimSpace(elem.Paras[i].Text) != "" {
					return paragraphTarget(&elem.Paras[i])
				}
			}
			return commentTarget{}, false
		}
	}
	return commentTarget{}, false
}

// paragraphTarget places the range start at the beginning of the
// paragraph's content (after paragraph properties, if present) and the
// range end just before the closing tag.
func paragraphTarget(para *ParaRef) (commentTarget, bool) {
	if para.selfClosing() {
		return commentTarget{}, false
	}
	return commentTarget{startPos: para.ContentStart, endPos: para.ContentEnd}, true
}

// normalizeAnchor strips all whitespace from the excerpt; multi-line
// excerpts anchor on their first non-empty line.
func normalizeAnchor(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if norm := stripSpace(line); norm != "" {
			return norm
		}
	}
	return ""
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// commentText builds the comment body from an issue.
func commentText(issue review.Issue) string {
	text := fmt.Sprintf("[%s] %s", issue.IssueType, issue.Description)
	if issue.Suggestion != "" {
		text += "\nSuggestion: " + issue.Suggestion
	}
	return text
}

// commentXML serializes one comment definition. Line breaks in the body
// become explicit w:br elements, never literal newlines.
func commentXML(id int, author, initials, date, text string) string {
	var runs strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			runs.WriteString("<w:br/>")
		}
		runs.WriteString(`<w:t xml:space="preserve">`)
		runs.WriteString(escapeXML(line))
		runs.WriteString("</w:t>")
	}
	return fmt.Sprintf(
		`<w:comment w:id="%d" w:author="%s" w:initials="%s" w:date="%s"><w:p><w:r>%s</w:r></w:p></w:comment>`,
		id, escapeXML(author), escapeXML(initials), date, runs.String(),
	)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s)) //nolint:errcheck // cannot fail on a bytes.Buffer
	return buf.String()
}

// ensureCommentsPart finds the comments part or creates it with the
// content-type and relationship wiring a fresh part needs. Repeated
// calls find the existing part instead of duplicating it.
func ensureCommentsPart(pkg *Package) error {
	if _, ok := pkg.Part(commentsPart); ok {
		if !pkg.hasCommentsRel() {
			if err := addCommentsRel(pkg); err != nil {
				return err
			}
		}
		return nil
	}

	pkg.SetPart(commentsPart, []byte(emptyCommentsXML))

	types, ok := pkg.Part(contentTypesPart)
	if !ok {
		return fmt.Errorf("document has no %s part", contentTypesPart)
	}
	if !bytes.Contains(types, []byte(`PartName="/word/comments.xml"`)) {
		closing := bytes.LastIndex(types, []byte("</Types>"))
		if closing < 0 {
			return fmt.Errorf("malformed %s: closing tag not found", contentTypesPart)
		}
		override := fmt.Sprintf(`<Override PartName="/word/comments.xml" ContentType="%s"/>`, commentsContentType)
		pkg.SetPart(contentTypesPart, applySplices(types, []splice{{pos: int64(closing), data: []byte(override)}}))
	}

	return addCommentsRel(pkg)
}

func addCommentsRel(pkg *Package) error {
	rels, ok := pkg.Part(documentRelsPart)
	if !ok {
		return fmt.Errorf("document has no %s part", documentRelsPart)
	}
	closing := bytes.LastIndex(rels, []byte("</Relationships>"))
	if closing < 0 {
		return fmt.Errorf("malformed %s: closing tag not found", documentRelsPart)
	}
	rel := fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="comments.xml"/>`, pkg.nextRelID(), commentsRelType)
	pkg.SetPart(documentRelsPart, applySplices(rels, []splice{{pos: int64(closing), data: []byte(rel)}}))
	return nil
}
