// Package docx reads and rewrites OOXML word-processing documents.
//
// The package works directly on the ZIP container and the raw XML of its
// parts. Structural edits (marker paragraphs, comment ranges) are spliced
// into the original bytes at offsets recorded during a single streaming
// scan, so unrelated markup is never re-serialized and cannot be corrupted.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DocumentPart is the main document part within the package.
const DocumentPart = "word/document.xml"

// Package is an opened OOXML container: every part held in memory,
// preserving the original entry order.
type Package struct {
	names []string
	parts map[string][]byte
}

// Open reads a document package from disk.
func Open(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return OpenBytes(data)
}

// OpenBytes reads a document package from a byte slice.
func OpenBytes(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open document container: %w", err)
	}

	pkg := &Package{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		pkg.names = append(pkg.names, f.Name)
		pkg.parts[f.Name] = content
	}

	if _, ok := pkg.parts[DocumentPart]; !ok {
		return nil, fmt.Errorf("not a word-processing document: %s missing", DocumentPart)
	}
	return pkg, nil
}

// Part returns the raw bytes of a named part.
func (p *Package) Part(name string) ([]byte, bool) {
	data, ok := p.parts[name]
	return data, ok
}

// SetPart replaces a part, or appends it when the package has no part
// with that name yet.
func (p *Package) SetPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.names = append(p.names, name)
	}
	p.parts[name] = data
}

// Document returns the main document part.
func (p *Package) Document() []byte {
	return p.parts[DocumentPart]
}

// Clone returns a deep copy of the package. Marker injection and comment
// writing operate on clones so the pristine document stays untouched.
func (p *Package) Clone() *Package {
	c := &Package{
		names: append([]string(nil), p.names...),
		parts: make(map[string][]byte, len(p.parts)),
	}
	for name, data := range p.parts {
		c.parts[name] = append([]byte(nil), data...)
	}
	return c
}

// Save writes the package as a ZIP stream, parts in their original order.
func (p *Package) Save(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range p.names {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create entry %s: %w", name, err)
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return fmt.Errorf("failed to write entry %s: %w", name, err)
		}
	}
	return zw.Close()
}

// SaveFile writes the package to a file.
func (p *Package) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Bytes serializes the package to an in-memory ZIP.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ImageData resolves a relationship target (e.g. "media/image1.png") to
// the embedded image bytes, or reports that the part is absent.
func (p *Package) ImageData(target string) ([]byte, bool) {
	name := partNameForTarget(target)
	data, ok := p.parts[name]
	return data, ok
}

// HasImage reports whether the relationship target resolves to a part in
// the package. The walker uses this to decide whether an embedded image
// counts toward the identifier sequence.
func (p *Package) HasImage(target string) bool {
	_, ok := p.parts[partNameForTarget(target)]
	return ok
}

func partNameForTarget(target string) string {
	name := target
	if !strings.HasPrefix(name, "word/") {
		name = "word/" + name
	}
	name = filepath.ToSlash(filepath.Clean(name))
	return name
}
