package render

import (
	"bytes"
	"encoding/base64"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/veridoc-io/reportlint/internal/docx"
)

// AnchorPrefix is the id prefix bound to rendered content units:
// doc-el-<n> denotes the HTML representation of content unit n.
const AnchorPrefix = "doc-el-"

// ResolveAnchors post-processes a rendered fragment: every node whose
// text is a marker token transfers its identifier to the immediately
// following sibling as id="doc-el-<n>" and is removed. Rendered images
// are wrapped in a container carrying the anchor for the matching image
// unit, matched positionally (the n-th rendered image is the n-th image
// unit), since images carry no marker of their own.
//
// A marker with no following sibling is dropped without an anchor; that
// unit degrades to unanchored and highlighting falls back to text search.
func ResolveAnchors(fragment string, imageUnitIDs []int) (string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}
	body := findBody(doc)
	if body == nil {
		return fragment, nil
	}

	var markers []*html.Node
	walk(body, func(n *html.Node) {
		if n.Type == html.ElementNode && docx.MarkerPattern.MatchString(strings.TrimSpace(textContent(n))) {
			markers = append(markers, n)
		}
	})
	for _, marker := range markers {
		id := docx.MarkerPattern.FindStringSubmatch(strings.TrimSpace(textContent(marker)))[1]
		if target := nextElementSibling(marker); target != nil {
			setAttr(target, "id", AnchorPrefix+id)
		}
		marker.Parent.RemoveChild(marker)
	}

	var images []*html.Node
	walk(body, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			images = append(images, n)
		}
	})
	for i, img := range images {
		if i >= len(imageUnitIDs) {
			break
		}
		wrapNode(img, "span", []html.Attribute{
			{Key: "id", Val: AnchorPrefix + strconv.Itoa(imageUnitIDs[i])},
			{Key: "class", Val: "doc-image"},
		})
	}

	return renderChildren(body)
}

// walk visits every node depth-first. Visitors must not detach nodes;
// mutation happens after collection.
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

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}

func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
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

// wrapNode replaces n with a new element that contains it.
func wrapNode(n *html.Node, tag string, attrs []html.Attribute) {
	parent := n.Parent
	if parent == nil {
		return
	}
	wrapper := &html.Node{
		Type: html.ElementNode,
		Data: tag,
		Attr: attrs,
	}
	parent.InsertBefore(wrapper, n)
	parent.RemoveChild(n)
	wrapper.AppendChild(n)
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

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
