// Package highlight mutates rendered preview HTML so each review issue's
// target region is visually marked.
package highlight

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/veridoc-io/reportlint/internal/review"
)

// IssuePrefix is the id assigned to the highlighted span or element of
// issue i: issue-<i>, where i is the issue's position in the list.
const IssuePrefix = "issue-"

const anchorPrefix = "doc-el-"

// NoActive disables active-issue emphasis.
const NoActive = -1

type colorPair struct {
	fill   string
	accent string
}

func severityColors(s review.Severity) colorPair {
	switch s {
	case review.SeverityCritical:
		return colorPair{fill: "#fee2e2", accent: "#ef4444"}
	case review.SeverityMinor:
		return colorPair{fill: "#e0f2fe", accent: "#3b82f6"}
	default:
		return colorPair{fill: "#fef3c7", accent: "#f59e0b"}
	}
}

// Apply marks every issue's target region in the fragment. For each
// issue, in order: image-category issues style the whole anchored
// element; otherwise a verbatim substring match of the excerpt wins
// (searched under the anchor's parent first, then across all heading,
// paragraph, cell and list-item nodes in document order); an anchored
// element-level style is the fallback; issues resolving neither way are
// left out of the preview. The issue at index active additionally gets a
// stronger outline; emphasis never changes which node is chosen.
// Output is deterministic for a given fragment, issue list and active id.
func Apply(fragment string, issues []review.Issue, active int) (string, error) {
	if len(issues) == 0 {
		return fragment, nil
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}
	body := findBody(doc)
	if body == nil {
		return fragment, nil
	}

	for i, issue := range issues {
		applyIssue(body, issue, i, i == active)
	}

	return renderChildren(body)
}

func applyIssue(body *html.Node, issue review.Issue, index int, isActive bool) {
	colors := severityColors(issue.IssueType)
	anchorID := IssuePrefix + strconv.Itoa(index)

	var anchor *html.Node
	if issue.ElementID >= 0 {
		anchor = findByID(body, anchorPrefix+strconv.Itoa(issue.ElementID))
	}

	if issue.Category == review.UnitImage {
		if anchor == nil {
			return
		}
		setAttr(anchor, "id", anchorID)
		style := "outline: 3px solid " + colors.accent + ";"
		if isActive {
			style = "outline: 5px solid #ef4444; outline-offset: 5px;"
		}
		appendStyle(anchor, style)
		return
	}

	text := strings.TrimSpace(issue.OriginalText)
	if text != "" && highlightText(body, anchor, text, anchorID, colors, isActive) {
		return
	}

	if anchor == nil {
		return
	}
	setAttr(anchor, "id", anchorID)
	style := "background-color: " + colors.fill + "; border-left: 4px solid " + colors.accent + "; padding: 4px;"
	if isActive {
		style += " outline: 4px solid #ef4444; outline-offset: 2px;"
	}
	appendStyle(anchor, style)
}

// highlightText wraps the first verbatim occurrence of text in an inline
// span. When the issue's anchor resolved, only the subtree rooted at the
// anchor's parent is searched; otherwise every block-level text holder
// in the document is a candidate, in document order.
func highlightText(body, anchor *html.Node, text, anchorID string, colors colorPair, isActive bool) bool {
	var candidates []*html.Node
	if anchor != nil {
		if anchor.Parent != nil {
			candidates = []*html.Node{anchor.Parent}
		} else {
			candidates = []*html.Node{anchor}
		}
	} else {
		walk(body, func(n *html.Node) {
			if n.Type != html.ElementNode {
				return
			}
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6", "p", "td", "th", "li":
				candidates = append(candidates, n)
			}
		})
	}

	for _, candidate := range candidates {
		var match *html.Node
		walk(candidate, func(n *html.Node) {
			if match == nil && n.Type == html.TextNode && strings.Contains(n.Data, text) {
				match = n
			}
		})
		if match != nil {
			wrapSubstring(match, text, anchorID, colors, isActive)
			return true
		}
	}
	return false
}

// wrapSubstring splits a text node around the matched excerpt and wraps
// exactly that substring in the highlight span.
func wrapSubstring(node *html.Node, text, anchorID string, colors colorPair, isActive bool) {
	parent := node.Parent
	if parent == nil {
		return
	}
	idx := strings.Index(node.Data, text)
	before := node.Data[:idx]
	after := node.Data[idx+len(text):]

	style := "background-color: " + colors.fill + "; border-bottom: 2px solid " + colors.accent + "; font-weight: bold;"
	if isActive {
		style += " outline: 4px solid #ef4444; outline-offset: 2px; box-shadow: 0 0 10px rgba(239, 68, 68, 0.5);"
	}
	span := &html.Node{
		Type: html.ElementNode,
		Data: "span",
		Attr: []html.Attribute{
			{Key: "id", Val: anchorID},
			{Key: "style", Val: style},
		},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: text})

	if before != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: before}, node)
	}
	parent.InsertBefore(span, node)
	if after != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: after}, node)
	}
	parent.RemoveChild(node)
}

func findByID(n *html.Node, id string) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && c.Type == html.ElementNode && getAttr(c, "id") == id {
			found = c
		}
	})
	return found
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findBody(c); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func appendStyle(n *html.Node, style string) {
	if existing := getAttr(n, "style"); existing != "" {
		setAttr(n, "style", existing+" "+style)
		return
	}
	setAttr(n, "style", style)
}

func renderChildren(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
