package docx

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
)

const (
	documentRelsPart = "word/_rels/document.xml.rels"
	imageRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	commentsRelType  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
)

type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Rels    []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// ImageRels returns the relationship id -> target mapping for embedded
// images declared by the main document part.
func (p *Package) ImageRels() map[string]string {
	rels := p.documentRels()
	result := make(map[string]string)
	for _, rel := range rels.Rels {
		if rel.Type == imageRelType {
			result[rel.ID] = rel.Target
		}
	}
	return result
}

func (p *Package) documentRels() relationships {
	var rels relationships
	data, ok := p.parts[documentRelsPart]
	if !ok {
		return rels
	}
	if err := xml.Unmarshal(data, &rels); err != nil {
		return relationships{}
	}
	return rels
}

var relIDPattern = regexp.MustCompile(`^rId(\d+)$`)

// hasCommentsRel reports whether the document already declares a
// relationship to a comments part.
func (p *Package) hasCommentsRel() bool {
	for _, rel := range p.documentRels().Rels {
		if rel.Type == commentsRelType {
			return true
		}
	}
	return false
}

// nextRelID returns the first unused rId number in the document rels.
func (p *Package) nextRelID() string {
	max := 0
	for _, rel := range p.documentRels().Rels {
		if m := relIDPattern.FindStringSubmatch(rel.ID); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}
