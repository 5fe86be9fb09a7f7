package docx

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/veridoc-io/reportlint/internal/review"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestWriteComments_TextMatch(t *testing.T) {
	pkg := fixturePackage(t)
	original := string(pkg.Document())

	issues := []review.Issue{{
		ElementID:    -1,
		Category:     review.UnitText,
		OriginalText: "120 patients",
		IssueType:    review.SeverityMajor,
		Description:  "enrollment count disagrees with the site table",
		Suggestion:   "verify the per-site numbers",
	}}
	out, err := WriteComments(pkg, issues, CommentOptions{Author: "J. Doe", Initials: "JD", Now: fixedClock})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}

	doc := string(out.Document())
	if !strings.Contains(doc, `<w:commentRangeStart w:id="0"/>`) {
		t.Error("expected comment range start in document")
	}
	if !strings.Contains(doc, `<w:commentRangeEnd w:id="0"/>`) {
		t.Error("expected comment range end in document")
	}
	if !strings.Contains(doc, `<w:commentReference w:id="0"/>`) {
		t.Error("expected comment reference run in document")
	}

	// The range wraps the matched paragraph's content.
	start := strings.Index(doc, `<w:commentRangeStart w:id="0"/>`)
	textAt := strings.Index(doc, "The study enrolled")
	end := strings.Index(doc, `<w:commentRangeEnd w:id="0"/>`)
	if !(start < textAt && textAt < end) {
		t.Errorf("range does not wrap the target text: start=%d text=%d end=%d", start, textAt, end)
	}

	comments, ok := out.Part("word/comments.xml")
	if !ok {
		t.Fatal("expected comments part")
	}
	cs := string(comments)
	if !strings.Contains(cs, `w:author="J. Doe"`) || !strings.Contains(cs, `w:initials="JD"`) {
		t.Error("expected author identity on comment")
	}
	if !strings.Contains(cs, "[Major] enrollment count disagrees with the site table") {
		t.Error("expected severity-prefixed description in comment body")
	}
	if !strings.Contains(cs, "Suggestion: verify the per-site numbers") {
		t.Error("expected suggestion line in comment body")
	}
	if !strings.Contains(cs, `w:date="2025-06-01T12:00:00Z"`) {
		t.Error("expected fixed timestamp on comment")
	}

	// Wiring: content type override and document relationship.
	types, _ := out.Part("[Content_Types].xml")
	if !strings.Contains(string(types), `PartName="/word/comments.xml"`) {
		t.Error("expected content-type override for comments part")
	}
	rels, _ := out.Part("word/_rels/document.xml.rels")
	if !strings.Contains(string(rels), `Target="comments.xml"`) {
		t.Error("expected comments relationship")
	}

	if string(pkg.Document()) != original {
		t.Error("original document was modified")
	}
}

func TestWriteComments_IdentifierFallback(t *testing.T) {
	pkg := fixturePackage(t)

	// No verbatim match; the id points at the table (unit 4).
	issues := []review.Issue{{
		ElementID:    4,
		Category:     review.UnitTable,
		OriginalText: "text that appears nowhere",
		IssueType:    review.SeverityMinor,
		Description:  "column header is ambiguous",
	}}
	out, err := WriteComments(pkg, issues, CommentOptions{Now: fixedClock})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}

	doc := string(out.Document())
	start := strings.Index(doc, `<w:commentRangeStart w:id="0"/>`)
	arm := strings.Index(doc, "Arm")
	if start < 0 || arm < 0 || start > arm {
		t.Errorf("expected range anchored in the first table cell: start=%d cell=%d", start, arm)
	}
}

func TestWriteComments_ImageTarget(t *testing.T) {
	pkg := fixturePackage(t)

	issues := []review.Issue{{
		ElementID:   2,
		Category:    review.UnitImage,
		IssueType:   review.SeverityCritical,
		Description: "figure axis labels are unreadable",
	}}
	out, err := WriteComments(pkg, issues, CommentOptions{Now: fixedClock})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}

	doc := string(out.Document())
	start := strings.Index(doc, `<w:commentRangeStart w:id="0"/>`)
	drawing := strings.Index(doc, "<w:drawing>")
	end := strings.Index(doc, `<w:commentRangeEnd w:id="0"/>`)
	if !(start >= 0 && start < drawing && drawing < end) {
		t.Errorf("expected range wrapping the image run: start=%d drawing=%d end=%d", start, drawing, end)
	}
	// The range must not cover the caption run that follows the image.
	caption := strings.Index(doc, "Figure 1.")
	if end > caption {
		t.Error("image range should close before the caption run")
	}
}

func TestWriteComments_SkipsEmptyDescription(t *testing.T) {
	pkg := fixturePackage(t)

	issues := []review.Issue{
		{ElementID: 0, OriginalText: "Clinical Study Report", IssueType: review.SeverityMinor},
		{ElementID: 1, OriginalText: "120 patients", IssueType: review.SeverityMinor, Description: "kept"},
	}
	out, err := WriteComments(pkg, issues, CommentOptions{Now: fixedClock})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}

	comments, _ := out.Part("word/comments.xml")
	if n := strings.Count(string(comments), "<w:comment "); n != 1 {
		t.Errorf("expected 1 comment, got %d", n)
	}
	if !strings.Contains(string(out.Document()), `<w:commentRangeStart w:id="0"/>`) {
		t.Error("expected the surviving issue to take id 0")
	}
}

func TestWriteComments_UnresolvableIssue(t *testing.T) {
	pkg := fixturePackage(t)

	issues := []review.Issue{{
		ElementID:    -1,
		OriginalText: "nowhere to be found",
		IssueType:    review.SeverityMajor,
		Description:  "dangling finding",
	}}
	out, err := WriteComments(pkg, issues, CommentOptions{Now: fixedClock})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}

	if strings.Contains(string(out.Document()), "commentRangeStart") {
		t.Error("expected no ranges for an unresolvable issue")
	}
	comments, ok := out.Part("word/comments.xml")
	if !ok {
		t.Fatal("comments part should exist even with no placed comments")
	}
	if strings.Count(string(comments), "<w:comment ") != 0 {
		t.Error("expected no comments")
	}
}

func TestWriteComments_ContinuesExistingIDs(t *testing.T) {
	pkg := fixturePackage(t)
	pkg.SetPart("word/comments.xml", []byte(
		`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+"\r\n"+
			`<w:comments xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`+
			`<w:comment w:id="0" w:author="A" w:initials="A" w:date="2025-01-01T00:00:00Z"><w:p><w:r><w:t>old</w:t></w:r></w:p></w:comment>`+
			`</w:comments>`))

	issues := []review.Issue{{
		OriginalText: "120 patients",
		IssueType:    review.SeverityMinor,
		Description:  "new finding",
	}}
	out, err := WriteComments(pkg, issues, CommentOptions{Now: fixedClock})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}

	doc := string(out.Document())
	if !strings.Contains(doc, `<w:commentRangeStart w:id="1"/>`) {
		t.Error("expected new comment to take id 1 after the existing comment")
	}
	comments, _ := out.Part("word/comments.xml")
	cs := string(comments)
	if !strings.Contains(cs, `w:id="0"`) || !strings.Contains(cs, `w:id="1"`) {
		t.Error("expected both old and new comments in the part")
	}
	if strings.Index(cs, "old") > strings.Index(cs, "new finding") {
		t.Error("expected new comment appended after the existing one")
	}
}

func TestWriteComments_MultiLineExcerpt(t *testing.T) {
	pkg := fixturePackage(t)

	issues := []review.Issue{{
		OriginalText: "\n  Contents  \nsomething else entirely",
		IssueType:    review.SeverityMinor,
		Description:  "anchored by the first non-empty line",
	}}
	out, err := WriteComments(pkg, issues, CommentOptions{Now: fixedClock})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}

	doc := string(out.Document())
	start := strings.Index(doc, `<w:commentRangeStart w:id="0"/>`)
	contents := strings.Index(doc, ">Contents<")
	if start < 0 || contents < 0 || start > contents {
		t.Errorf("expected range anchored at the Contents paragraph: start=%d target=%d", start, contents)
	}
}

func TestWriteComments_MultipleIssuesIncreasingIDs(t *testing.T) {
	pkg := fixturePackage(t)

	issues := []review.Issue{
		{OriginalText: "Clinical Study Report", IssueType: review.SeverityMinor, Description: "first"},
		{OriginalText: "120 patients", IssueType: review.SeverityMajor, Description: "second"},
		{OriginalText: "Figure 1.", IssueType: review.SeverityCritical, Description: "third"},
	}
	out, err := WriteComments(pkg, issues, CommentOptions{Now: fixedClock})
	if err != nil {
		t.Fatalf("failed to write comments: %v", err)
	}

	doc := string(out.Document())
	for id := 0; id < 3; id++ {
		if strings.Count(doc, fmt.Sprintf(`<w:commentRangeStart w:id="%d"/>`, id)) != 1 {
			t.Errorf("expected exactly one range start for id %d", id)
		}
	}
	comments, _ := out.Part("word/comments.xml")
	if n := strings.Count(string(comments), "<w:comment "); n != 3 {
		t.Errorf("expected 3 comments, got %d", n)
	}

	// Output still parses as a document.
	if _, err := ScanBody(out.Document()); err != nil {
		t.Errorf("annotated document no longer parses: %v", err)
	}
}

func TestCommentText(t *testing.T) {
	got := commentText(review.Issue{
		IssueType:   review.SeverityCritical,
		Description: "total does not add up",
		Suggestion:  "recompute the total",
	})
	want := "[Critical] total does not add up\nSuggestion: recompute the total"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	bare := commentText(review.Issue{IssueType: review.SeverityMinor, Description: "typo"})
	if bare != "[Minor] typo" {
		t.Errorf("expected %q, got %q", "[Minor] typo", bare)
	}
}

func TestNormalizeAnchor(t *testing.T) {
	if got := normalizeAnchor("  The study\tenrolled  "); got != "Thestudyenrolled" {
		t.Errorf("unexpected normalization: %q", got)
	}
	if got := normalizeAnchor("\n\n  first line \n second"); got != "firstline" {
		t.Errorf("expected first non-empty line, got %q", got)
	}
	if got := normalizeAnchor("   \n \t "); got != "" {
		t.Errorf("expected empty anchor, got %q", got)
	}
}
