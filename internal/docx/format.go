package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/richardlehane/mscfb"
)

// Format represents a detected container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatDOCX
	FormatLegacyDoc // OLE/CFBF binary .doc
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatDOCX:
		return "docx"
	case FormatLegacyDoc:
		return "doc"
	default:
		return "unknown"
	}
}

// DetectFormat sniffs the container format from magic bytes. ZIP
// packages are probed for the main document part; OLE compound files are
// probed for a WordDocument stream so legacy binary .doc files can be
// rejected with a precise error instead of a generic parse failure.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	magic := make([]byte, 8)
	n, err := f.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return FormatUnknown, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if n < 4 {
		return FormatUnknown, nil
	}

	// ZIP magic number (OOXML package)
	if magic[0] == 'P' && magic[1] == 'K' {
		if hasDocumentPart(path) {
			return FormatDOCX, nil
		}
		return FormatUnknown, nil
	}

	// OLE/CFBF magic number (legacy Office binary container)
	if bytes.Equal(magic[:4], []byte{0xD0, 0xCF, 0x11, 0xE0}) {
		if isLegacyWordDoc(f) {
			return FormatLegacyDoc, nil
		}
		return FormatUnknown, nil
	}

	return FormatUnknown, nil
}

func hasDocumentPart(path string) bool {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == DocumentPart {
			return true
		}
	}
	return false
}

func isLegacyWordDoc(ra io.ReaderAt) bool {
	doc, err := mscfb.New(ra)
	if err != nil {
		return false
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == "WordDocument" {
			return true
		}
	}
	return false
}
