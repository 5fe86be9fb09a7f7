package docx

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veridoc-io/reportlint/internal/review"
)

// unitRef locates one content unit identifier within the element index.
// The assignment rule is expressed once, here, and replayed by the
// extractor, the marker injector and the comment writer. Their outputs
// are correlated purely by identifier, so they must never diverge.
type unitRef struct {
	id   int
	kind review.UnitKind
	elem int    // index into the element slice
	para int    // index into Element.Paras for block paragraphs, -1 otherwise
	run  int    // index of the run holding the image, -1 otherwise
	ref  string // image relationship id
}

// assignUnits replays the identifier-assignment rule over a scanned
// element index:
//
//   - inside a paragraph, each embedded image takes one id in run order,
//     then the paragraph's own text takes one id if non-empty after
//     trimming; a paragraph with neither takes nothing,
//   - a table takes exactly one id for the whole table,
//   - a structured block's non-empty paragraphs take one id each.
//
// resolve decides whether an image relationship is usable; unresolvable
// images are omitted and do not consume an id.
func assignUnits(elements []Element, resolve func(ref string) bool) []unitRef {
	var units []unitRef
	next := 0

	add := func(u unitRef) {
		u.id = next
		next++
		units = append(units, u)
	}

	for ei, elem := range elements {
		switch elem.Kind {
		case ElementParagraph:
			for ri, run := range elem.Para.Runs {
				for _, ref := range run.Images {
					if resolve != nil && !resolve(ref) {
						continue
					}
					add(unitRef{kind: review.UnitImage, elem: ei, para: -1, run: ri, ref: ref})
				}
			}
			if strings.TrimSpace(elem.Para.Text) != "" {
				add(unitRef{kind: review.UnitText, elem: ei, para: -1, run: -1})
			}
		case ElementTable:
			add(unitRef{kind: review.UnitTable, elem: ei, para: -1, run: -1})
		case ElementBlock:
			for pi, para := range elem.Paras {
				if strings.TrimSpace(para.Text) != "" {
					add(unitRef{kind: review.UnitText, elem: ei, para: pi, run: -1})
				}
			}
		}
	}
	return units
}

// WalkOptions configures content extraction.
type WalkOptions struct {
	// ImageDir is where embedded images are written, named by a counter
	// owned by the walker. When empty, image payloads become inline data
	// URIs instead of file paths.
	ImageDir string
}

// Walker extracts the flat, ordered content-unit list from a document.
type Walker struct {
	pkg      *Package
	opts     WalkOptions
	elements []Element
	rels     map[string]string
	imgCount int
}

// NewWalker scans the document body and prepares a walker over it.
func NewWalker(pkg *Package, opts WalkOptions) (*Walker, error) {
	elements, err := ScanBody(pkg.Document())
	if err != nil {
		return nil, err
	}
	return &Walker{
		pkg:      pkg,
		opts:     opts,
		elements: elements,
		rels:     pkg.ImageRels(),
	}, nil
}

// resolveImage reports whether an image relationship id leads to real
// image bytes inside the package.
func (w *Walker) resolveImage(ref string) bool {
	target, ok := w.rels[ref]
	if !ok {
		return false
	}
	return w.pkg.HasImage(target)
}

// Units produces the content-unit list in document order. Walking the
// same unmodified document twice yields identical results.
func (w *Walker) Units() ([]review.ContentUnit, error) {
	refs := assignUnits(w.elements, w.resolveImage)
	units := make([]review.ContentUnit, 0, len(refs))

	for _, ref := range refs {
		unit := review.ContentUnit{ID: ref.id, Kind: ref.kind}
		switch ref.kind {
		case review.UnitText:
			if ref.para >= 0 {
				unit.Payload = strings.TrimSpace(w.elements[ref.elem].Paras[ref.para].Text)
			} else {
				unit.Payload = strings.TrimSpace(w.elements[ref.elem].Para.Text)
			}
		case review.UnitTable:
			unit.Payload = serializeRows(w.elements[ref.elem].Rows)
		case review.UnitImage:
			payload, err := w.imagePayload(ref.ref)
			if err != nil {
				// Unreadable image data: drop the unit rather than
				// aborting the walk. The id was already consumed by
				// assignUnits only for resolvable refs, so this can only
				// trip on filesystem errors while saving.
				continue
			}
			unit.Payload = payload
		}
		units = append(units, unit)
	}
	return units, nil
}

// ImageUnitIDs returns the identifiers of the image units in document
// order; the anchor resolver matches them positionally against rendered
// image nodes.
func (w *Walker) ImageUnitIDs() []int {
	var ids []int
	for _, ref := range assignUnits(w.elements, w.resolveImage) {
		if ref.kind == review.UnitImage {
			ids = append(ids, ref.id)
		}
	}
	return ids
}

func (w *Walker) imagePayload(ref string) (string, error) {
	target := w.rels[ref]
	data, ok := w.pkg.ImageData(target)
	if !ok {
		return "", fmt.Errorf("image part not found: %s", target)
	}

	ext := strings.ToLower(filepath.Ext(target))
	if w.opts.ImageDir == "" {
		return imageDataURI(data, ext), nil
	}

	if err := os.MkdirAll(w.opts.ImageDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	name := fmt.Sprintf("img_%d%s", w.imgCount, ext)
	path := filepath.Join(w.opts.ImageDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	w.imgCount++
	return path, nil
}

// serializeRows renders table rows as pipe-delimited lines, header row
// included.
func serializeRows(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

// ImageMIME maps an image file extension to its MIME type.
func ImageMIME(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff", "tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

func imageDataURI(data []byte, ext string) string {
	return "data:" + ImageMIME(ext) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
