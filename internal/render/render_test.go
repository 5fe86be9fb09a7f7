package render

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/veridoc-io/reportlint/internal/docx"
)

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><w:body>` +
	`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Clinical Study Report</w:t></w:r></w:p>` +
	`<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Results</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>The study enrolled 120 patients &amp; 4 sites.</w:t></w:r></w:p>` +
	`<w:p><w:r><w:drawing><a:blip r:embed="rId4"/></w:drawing></w:r><w:r><w:t>Figure 1.</w:t></w:r></w:p>` +
	`<w:tbl>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Arm</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>N</w:t></w:r></w:p></w:tc></w:tr>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Treatment</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>60</w:t></w:r></w:p></w:tc></w:tr>` +
	`</w:tbl>` +
	`<w:p/>` +
	`</w:body></w:document>`

const testContentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const testDocumentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>` +
	`</Relationships>`

var testImageBytes = []byte("PNG-BYTES")

func testPackage(t *testing.T) *docx.Package {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := map[string][]byte{
		"[Content_Types].xml":          []byte(testContentTypesXML),
		"word/document.xml":            []byte(testDocumentXML),
		"word/_rels/document.xml.rels": []byte(testDocumentRelsXML),
		"word/media/image1.png":        testImageBytes,
	}
	for name, data := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip entry: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	pkg, err := docx.OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("failed to open package: %v", err)
	}
	return pkg
}

func TestFragment(t *testing.T) {
	pkg := testPackage(t)

	fragment, err := Fragment(pkg)
	if err != nil {
		t.Fatalf("failed to render fragment: %v", err)
	}

	if !strings.Contains(fragment, "<h1>Clinical Study Report</h1>") {
		t.Error("expected Title style to render as h1")
	}
	if !strings.Contains(fragment, "<h2>Results</h2>") {
		t.Error("expected Heading2 style to render as h2")
	}
	if !strings.Contains(fragment, "<p>The study enrolled 120 patients &amp; 4 sites.</p>") {
		t.Error("expected body paragraph with escaped text")
	}
	if !strings.Contains(fragment, "<th>Arm</th>") || !strings.Contains(fragment, "<td>60</td>") {
		t.Error("expected table with header and data cells")
	}

	wantSrc := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testImageBytes)
	if !strings.Contains(fragment, `<img src="`+wantSrc+`"/>`) {
		t.Error("expected inlined image data URI")
	}

	// Empty paragraphs render nothing.
	if strings.Contains(fragment, "<p></p>") {
		t.Error("expected empty paragraphs to be skipped")
	}
}

func TestFragment_Deterministic(t *testing.T) {
	pkg := testPackage(t)

	f1, err := Fragment(pkg)
	if err != nil {
		t.Fatalf("first render failed: %v", err)
	}
	f2, err := Fragment(pkg)
	if err != nil {
		t.Fatalf("second render failed: %v", err)
	}
	if f1 != f2 {
		t.Error("expected identical fragments for repeated renders")
	}
}

func TestHeadingTag(t *testing.T) {
	cases := map[string]string{
		"Title":     "h1",
		"Heading1":  "h1",
		"heading3":  "h3",
		"Heading6":  "h6",
		"Heading9":  "p",
		"BodyText":  "p",
		"":          "p",
		"Heading":   "p",
	}
	for style, want := range cases {
		if got := headingTag(style); got != want {
			t.Errorf("headingTag(%q) = %q, want %q", style, got, want)
		}
	}
}

func TestResolveAnchors(t *testing.T) {
	pkg := testPackage(t)
	marked, err := docx.InjectMarkers(pkg)
	if err != nil {
		t.Fatalf("failed to inject markers: %v", err)
	}
	fragment, err := Fragment(marked)
	if err != nil {
		t.Fatalf("failed to render fragment: %v", err)
	}

	walker, err := docx.NewWalker(pkg, docx.WalkOptions{})
	if err != nil {
		t.Fatalf("failed to create walker: %v", err)
	}
	anchored, err := ResolveAnchors(fragment, walker.ImageUnitIDs())
	if err != nil {
		t.Fatalf("failed to resolve anchors: %v", err)
	}

	// All markers are consumed.
	if strings.Contains(anchored, docx.MarkerPrefix) {
		t.Error("expected all marker tokens removed from output")
	}

	// Text units: 0 title, 1 heading, 2 body; image unit 3; caption 4; table 5.
	for _, id := range []string{"doc-el-0", "doc-el-1", "doc-el-2", "doc-el-3", "doc-el-4", "doc-el-5"} {
		if !strings.Contains(anchored, `id="`+id+`"`) {
			t.Errorf("expected anchor %s in output", id)
		}
	}

	// The title anchor lands on the h1 element.
	if !strings.Contains(anchored, `<h1 id="doc-el-0">Clinical Study Report</h1>`) {
		t.Error("expected title anchor on the h1 element")
	}
	// The image is wrapped in an anchored span.
	if !strings.Contains(anchored, `<span id="doc-el-3" class="doc-image">`) {
		t.Error("expected image wrapped in anchored span")
	}
	// The table anchor lands on the table element.
	if !strings.Contains(anchored, `<table id="doc-el-5">`) {
		t.Error("expected table anchor on the table element")
	}
}

func TestResolveAnchors_TrailingMarkerDropped(t *testing.T) {
	fragment := `<p>MARKER_ID_0</p><p>anchored</p><p>MARKER_ID_1</p>`

	anchored, err := ResolveAnchors(fragment, nil)
	if err != nil {
		t.Fatalf("failed to resolve anchors: %v", err)
	}
	if !strings.Contains(anchored, `<p id="doc-el-0">anchored</p>`) {
		t.Errorf("expected anchor transfer to following element, got %q", anchored)
	}
	if strings.Contains(anchored, "MARKER_ID_1") || strings.Contains(anchored, "doc-el-1") {
		t.Errorf("expected trailing marker dropped without an anchor, got %q", anchored)
	}
}

func TestResolveAnchors_NoMarkers(t *testing.T) {
	fragment := `<p>plain content</p>`
	anchored, err := ResolveAnchors(fragment, nil)
	if err != nil {
		t.Fatalf("failed to resolve anchors: %v", err)
	}
	if !strings.Contains(anchored, "plain content") {
		t.Errorf("expected content preserved, got %q", anchored)
	}
}
