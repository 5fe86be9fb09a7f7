package docx

import (
	"archive/zip"
	"bytes"
	"testing"
)

const fixtureDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><w:body>` +
	`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Clinical Study Report</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">The study enrolled </w:t></w:r><w:r><w:t>120 patients.</w:t></w:r></w:p>` +
	`<w:p><w:r><w:drawing><a:blip r:embed="rId4"/></w:drawing></w:r><w:r><w:t>Figure 1. Enrollment over time.</w:t></w:r></w:p>` +
	`<w:tbl>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Arm</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>N</w:t></w:r></w:p></w:tc></w:tr>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Treatment</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>60</w:t></w:r></w:p></w:tc></w:tr>` +
	`</w:tbl>` +
	`<w:sdt><w:sdtContent><w:p><w:r><w:t>Contents</w:t></w:r></w:p><w:p><w:r><w:t>1. Introduction</w:t></w:r></w:p></w:sdtContent></w:sdt>` +
	`<w:p/>` +
	`<w:p><w:r><w:t> </w:t></w:r></w:p>` +
	`<w:sectPr/>` +
	`</w:body></w:document>`

const fixtureContentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="png" ContentType="image/png"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const fixtureDocumentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`<Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>` +
	`</Relationships>`

const fixtureRootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

var fixtureImageBytes = []byte("PNG-BYTES")

// fixtureParts returns the part set of the standard test document.
func fixtureParts() map[string][]byte {
	return map[string][]byte{
		"[Content_Types].xml":          []byte(fixtureContentTypesXML),
		"_rels/.rels":                  []byte(fixtureRootRelsXML),
		"word/document.xml":            []byte(fixtureDocumentXML),
		"word/_rels/document.xml.rels": []byte(fixtureDocumentRelsXML),
		"word/media/image1.png":        fixtureImageBytes,
	}
}

// zipParts builds an in-memory zip archive from a part map.
func zipParts(t *testing.T, parts map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// fixturePackage opens the standard test document.
func fixturePackage(t *testing.T) *Package {
	t.Helper()
	pkg, err := OpenBytes(zipParts(t, fixtureParts()))
	if err != nil {
		t.Fatalf("failed to open fixture package: %v", err)
	}
	return pkg
}

// packageWithDocument opens a package whose main document part is docXML
// and which carries no images.
func packageWithDocument(t *testing.T, docXML string) *Package {
	t.Helper()
	parts := fixtureParts()
	parts["word/document.xml"] = []byte(docXML)
	pkg, err := OpenBytes(zipParts(t, parts))
	if err != nil {
		t.Fatalf("failed to open package: %v", err)
	}
	return pkg
}
