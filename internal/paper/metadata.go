package paper

import (
	"strings"
	"time"
)

// Merge fills blank fields of current with values proposed by an
// extractor. Present fields are never overwritten. The second return
// value reports whether anything changed.
func Merge(current, proposed Metadata) (Metadata, bool) {
	merged := current
	changed := false

	if merged.Title == "" && proposed.Title != "" {
		merged.Title = proposed.Title
		changed = true
	}
	if len(merged.Authors) == 0 && len(proposed.Authors) > 0 {
		merged.Authors = append([]string(nil), proposed.Authors...)
		changed = true
	}
	if merged.PublishedDate == nil && proposed.PublishedDate != nil {
		d := *proposed.PublishedDate
		merged.PublishedDate = &d
		changed = true
	}
	if merged.Abstract == "" && proposed.Abstract != "" {
		merged.Abstract = proposed.Abstract
		changed = true
	}
	return merged, changed
}

// Complete reports whether every enrichable field is present.
func (m Metadata) Complete() bool {
	return m.Title != "" && len(m.Authors) > 0 && m.PublishedDate != nil && strings.TrimSpace(m.Abstract) != ""
}

// MetadataOf extracts the enrichable metadata fields from a paper.
func MetadataOf(p Paper) Metadata {
	return Metadata{
		Title:         p.Title,
		Authors:       p.Authors,
		PublishedDate: p.PublishedDate,
		Abstract:      p.Abstract,
		ArxivID:       p.ArxivID,
	}
}

// SearchText derives the text blob indexed for full-text search. It must
// stay deterministic: the same metadata always yields the same blob, so
// index time and query time agree.
func SearchText(title string, authors []string, abstract string) string {
	parts := make([]string, 0, 3)
	if title != "" {
		parts = append(parts, title)
	}
	if len(authors) > 0 {
		parts = append(parts, strings.Join(authors, " "))
	}
	if abstract != "" {
		parts = append(parts, abstract)
	}
	return strings.Join(parts, "\n")
}

// ParseDate accepts YYYY, YYYY-MM and YYYY-MM-DD strings, the formats the
// secondary extractor is prompted to return.
func ParseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}
