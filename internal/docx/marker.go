package docx

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/veridoc-io/reportlint/internal/review"
)

// MarkerPrefix is the sentinel token prefix carried by marker paragraphs.
// Markers exist only in the rendering copy of a document: the HTML
// converter preserves no custom attributes, but a sibling paragraph
// survives as ordinary text and can be located and stripped afterwards.
const MarkerPrefix = "MARKER_ID_"

// MarkerPattern matches a full marker token and captures the identifier.
var MarkerPattern = regexp.MustCompile(`^MARKER_ID_(\d+)$`)

// InjectMarkers returns a copy of the document in which a sentinel
// paragraph precedes every body element that consumes a text or table
// identifier. Identifier assignment replays the walker's rule exactly,
// so marker n always precedes the markup of content unit n. Image units
// consume identifiers invisibly inside the sequence; the marker before a
// paragraph carries the id of its text unit, never of an image.
func InjectMarkers(pkg *Package) (*Package, error) {
	marked := pkg.Clone()
	docXML := marked.Document()

	elements, err := ScanBody(docXML)
	if err != nil {
		return nil, err
	}
	rels := marked.ImageRels()
	resolve := func(ref string) bool {
		target, ok := rels[ref]
		return ok && marked.HasImage(target)
	}

	var splices []splice
	for _, ref := range assignUnits(elements, resolve) {
		if ref.kind == review.UnitImage {
			continue
		}
		pos := elements[ref.elem].Start
		if ref.para >= 0 {
			pos = elements[ref.elem].Paras[ref.para].Start
		}
		splices = append(splices, splice{pos: pos, data: []byte(markerParagraph(ref.id))})
	}

	marked.SetPart(DocumentPart, applySplices(docXML, splices))
	return marked, nil
}

func markerParagraph(id int) string {
	return fmt.Sprintf(`<w:p><w:r><w:t xml:space="preserve">%s%d</w:t></w:r></w:p>`, MarkerPrefix, id)
}

// splice is a pending byte insertion into a document part.
type splice struct {
	pos  int64
	data []byte
	seq  int
}

// applySplices inserts all pending edits in one pass. Insertions at the
// same offset keep their submission order.
func applySplices(src []byte, splices []splice) []byte {
	for i := range splices {
		splices[i].seq = i
	}
	sort.SliceStable(splices, func(i, j int) bool {
		if splices[i].pos != splices[j].pos {
			return splices[i].pos < splices[j].pos
		}
		return splices[i].seq < splices[j].seq
	})

	total := len(src)
	for _, s := range splices {
		total += len(s.data)
	}
	out := make([]byte, 0, total)
	var prev int64
	for _, s := range splices {
		out = append(out, src[prev:s.pos]...)
		out = append(out, s.data...)
		prev = s.pos
	}
	out = append(out, src[prev:]...)
	return out
}
