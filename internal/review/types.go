// Package review defines the shared data model for document review:
// the content units sent to the review model and the issues it returns.
package review

import "encoding/json"

// UnitKind classifies a content unit.
type UnitKind string

const (
	UnitText  UnitKind = "text"
	UnitTable UnitKind = "table"
	UnitImage UnitKind = "image"
)

// ContentUnit is one identifiable piece of document content. IDs are
// assigned in strict document order starting at 0 and are the sole join
// key between extraction, rendered anchors and model-reported issues.
type ContentUnit struct {
	ID      int      `json:"id"`
	Kind    UnitKind `json:"kind"`
	Payload string   `json:"payload"`
}

// Severity is the ordinal issue severity reported by the review model.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityMajor    Severity = "Major"
	SeverityMinor    Severity = "Minor"
)

// Weight returns the score deduction for one issue of this severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 20
	case SeverityMajor:
		return 10
	case SeverityMinor:
		return 5
	default:
		return 0
	}
}

// Issue is one finding returned by the review model. ElementID is
// best-effort (the model may return a stale or missing id, in which case
// it is -1); OriginalText is the more reliable anchor.
type Issue struct {
	ElementID    int      `json:"element_id"`
	Category     UnitKind `json:"category"`
	OriginalText string   `json:"original_text"`
	IssueType    Severity `json:"issue_type"`
	Description  string   `json:"description"`
	Suggestion   string   `json:"suggestion"`
}

// UnmarshalJSON fills in the sentinels for fields the model omitted:
// a missing element_id becomes -1 and a missing category becomes "text".
func (i *Issue) UnmarshalJSON(data []byte) error {
	type alias struct {
		ElementID    *int     `json:"element_id"`
		Category     UnitKind `json:"category"`
		OriginalText string   `json:"original_text"`
		IssueType    Severity `json:"issue_type"`
		Description  string   `json:"description"`
		Suggestion   string   `json:"suggestion"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	i.ElementID = -1
	if a.ElementID != nil {
		i.ElementID = *a.ElementID
	}
	i.Category = a.Category
	if i.Category == "" {
		i.Category = UnitText
	}
	i.OriginalText = a.OriginalText
	i.IssueType = a.IssueType
	i.Description = a.Description
	i.Suggestion = a.Suggestion
	return nil
}

// Summary aggregates the issue list for display and for the registry.
type Summary struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
	Score    int `json:"score"`
}

// Score computes the quality score: 100 minus the severity-weighted
// deductions, floored at 0.
func Score(issues []Issue) int {
	score := 100
	for _, issue := range issues {
		score -= issue.IssueType.Weight()
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Summarize counts issues per severity and computes the quality score.
func Summarize(issues []Issue) Summary {
	s := Summary{Total: len(issues), Score: Score(issues)}
	for _, issue := range issues {
		switch issue.IssueType {
		case SeverityCritical:
			s.Critical++
		case SeverityMajor:
			s.Major++
		case SeverityMinor:
			s.Minor++
		}
	}
	return s
}
