package tests

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/veridoc-io/reportlint/internal/docx"
	"github.com/veridoc-io/reportlint/internal/highlight"
	"github.com/veridoc-io/reportlint/internal/llm"
	"github.com/veridoc-io/reportlint/internal/render"
	"github.com/veridoc-io/reportlint/internal/review"
)

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><w:body>` +
	`<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Clinical Study Report</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>The study enrolled 120 patients across 4 sites.</w:t></w:r></w:p>` +
	`<w:p><w:r><w:drawing><a:blip r:embed="rId4"/></w:drawing></w:r><w:r><w:t>Figure 1. Enrollment over time.</w:t></w:r></w:p>` +
	`<w:tbl>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Site</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Enrolled</w:t></w:r></w:p></w:tc></w:tr>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Site A</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>30</w:t></w:r></w:p></w:tc></w:tr>` +
	`</w:tbl>` +
	`</w:body></w:document>`

const sampleContentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const sampleDocumentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>` +
	`</Relationships>`

func samplePackage(t *testing.T) *docx.Package {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := map[string][]byte{
		"[Content_Types].xml":          []byte(sampleContentTypesXML),
		"word/document.xml":            []byte(sampleDocumentXML),
		"word/_rels/document.xml.rels": []byte(sampleDocumentRelsXML),
		"word/media/image1.png":        []byte("PNG-BYTES"),
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

// scriptedProvider returns a fixed issue list for any input.
type scriptedProvider struct {
	issues []review.Issue
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Review(_ context.Context, _ []review.ContentUnit, _ llm.ReviewOptions) ([]review.Issue, error) {
	return p.issues, nil
}

func (p *scriptedProvider) Validate() error { return nil }

// The extraction, preview and annotation stages all assign identifiers
// by replaying the same walk, so their outputs must agree on every id.
func TestIdentifierAgreementAcrossStages(t *testing.T) {
	pkg := samplePackage(t)

	walker, err := docx.NewWalker(pkg, docx.WalkOptions{})
	if err != nil {
		t.Fatalf("failed to create walker: %v", err)
	}
	units, err := walker.Units()
	if err != nil {
		t.Fatalf("failed to extract units: %v", err)
	}
	if len(units) != 5 {
		t.Fatalf("expected 5 content units, got %d", len(units))
	}
	for i, unit := range units {
		if unit.ID != i {
			t.Errorf("unit %d has id %d, identifiers must be dense and ordered", i, unit.ID)
		}
	}

	marked, err := docx.InjectMarkers(pkg)
	if err != nil {
		t.Fatalf("failed to inject markers: %v", err)
	}
	fragment, err := render.Fragment(marked)
	if err != nil {
		t.Fatalf("failed to render fragment: %v", err)
	}
	anchored, err := render.ResolveAnchors(fragment, walker.ImageUnitIDs())
	if err != nil {
		t.Fatalf("failed to resolve anchors: %v", err)
	}

	// Every extracted unit is reachable from the preview by its id.
	for _, unit := range units {
		anchor := fmt.Sprintf(`id="doc-el-%d"`, unit.ID)
		if !strings.Contains(anchored, anchor) {
			t.Errorf("unit %d (%s) has no anchor in the preview", unit.ID, unit.Kind)
		}
	}
	if strings.Contains(anchored, docx.MarkerPrefix) {
		t.Error("marker tokens leaked into the preview")
	}
}

func TestAnalyzeHighlightAnnotatePipeline(t *testing.T) {
	pkg := samplePackage(t)

	walker, err := docx.NewWalker(pkg, docx.WalkOptions{})
	if err != nil {
		t.Fatalf("failed to create walker: %v", err)
	}
	units, err := walker.Units()
	if err != nil {
		t.Fatalf("failed to extract units: %v", err)
	}

	provider := &scriptedProvider{issues: []review.Issue{
		{
			ElementID:    1,
			Category:     review.UnitText,
			OriginalText: "120 patients",
			IssueType:    review.SeverityMajor,
			Description:  "enrollment count disagrees with the site table",
			Suggestion:   "reconcile the totals",
		},
		{
			ElementID:   2,
			Category:    review.UnitImage,
			IssueType:   review.SeverityMinor,
			Description: "figure lacks axis labels",
		},
	}}
	analyzer := llm.NewAnalyzer(provider, 0, 0)
	issues := analyzer.Analyze(context.Background(), units, llm.DefaultReviewOptions())
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}

	summary := review.Summarize(issues)
	if summary.Score != 85 || summary.Major != 1 || summary.Minor != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	// Preview with highlights.
	marked, err := docx.InjectMarkers(pkg)
	if err != nil {
		t.Fatalf("failed to inject markers: %v", err)
	}
	fragment, err := render.Fragment(marked)
	if err != nil {
		t.Fatalf("failed to render fragment: %v", err)
	}
	anchored, err := render.ResolveAnchors(fragment, walker.ImageUnitIDs())
	if err != nil {
		t.Fatalf("failed to resolve anchors: %v", err)
	}
	highlighted, err := highlight.Apply(anchored, issues, 0)
	if err != nil {
		t.Fatalf("failed to apply highlights: %v", err)
	}
	if !strings.Contains(highlighted, `id="issue-0"`) || !strings.Contains(highlighted, `id="issue-1"`) {
		t.Error("expected both issues highlighted in the preview")
	}

	// Annotate and reopen.
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	annotated, err := docx.WriteComments(pkg, issues, docx.CommentOptions{Author: "Reviewer", Initials: "RV", Now: now})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}
	data, err := annotated.Bytes()
	if err != nil {
		t.Fatalf("failed to serialize annotated package: %v", err)
	}
	reopened, err := docx.OpenBytes(data)
	if err != nil {
		t.Fatalf("annotated package does not reopen: %v", err)
	}

	comments, ok := reopened.Part("word/comments.xml")
	if !ok {
		t.Fatal("expected comments part in annotated package")
	}
	if n := strings.Count(string(comments), "<w:comment "); n != len(issues) {
		t.Errorf("expected %d comments, got %d", len(issues), n)
	}
	if !strings.Contains(string(comments), "[Major] enrollment count disagrees with the site table") {
		t.Error("expected comment body with severity prefix")
	}

	// The annotated document still parses and the source is untouched.
	if _, err := docx.ScanBody(reopened.Document()); err != nil {
		t.Errorf("annotated document no longer parses: %v", err)
	}
	if strings.Contains(string(pkg.Document()), "commentRangeStart") {
		t.Error("annotation modified the source package")
	}
}

func TestAnnotateIsRepeatable(t *testing.T) {
	pkg := samplePackage(t)
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	first := []review.Issue{{
		OriginalText: "Clinical Study Report",
		IssueType:    review.SeverityMinor,
		Description:  "title style is off",
	}}
	second := []review.Issue{{
		OriginalText: "Site A",
		IssueType:    review.SeverityMajor,
		Description:  "site name is inconsistent",
	}}

	once, err := docx.WriteComments(pkg, first, docx.CommentOptions{Now: now})
	if err != nil {
		t.Fatalf("first annotation failed: %v", err)
	}
	data, err := once.Bytes()
	if err != nil {
		t.Fatalf("failed to serialize: %v", err)
	}
	reopened, err := docx.OpenBytes(data)
	if err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	twice, err := docx.WriteComments(reopened, second, docx.CommentOptions{Now: now})
	if err != nil {
		t.Fatalf("second annotation failed: %v", err)
	}

	doc := string(twice.Document())
	if !strings.Contains(doc, `<w:commentRangeStart w:id="0"/>`) || !strings.Contains(doc, `<w:commentRangeStart w:id="1"/>`) {
		t.Error("expected ids from both annotation passes")
	}
	comments, _ := twice.Part("word/comments.xml")
	if n := strings.Count(string(comments), "<w:comment "); n != 2 {
		t.Errorf("expected 2 accumulated comments, got %d", n)
	}
}
