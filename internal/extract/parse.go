package extract

import (
	"encoding/json"
	"strings"

	"github.com/wgilpin/paperstore/internal/paper"
)

type response struct {
	Title    *string  `json:"title"`
	Authors  []string `json:"authors"`
	Date     *string  `json:"date"`
	Abstract *string  `json:"abstract"`
}

// ParseResponse turns raw model output into a metadata proposal. Models
// sometimes wrap the JSON in a markdown code fence despite instructions;
// the fence is stripped first. Anything unparseable yields an empty
// proposal, never an error.
func ParseResponse(raw string) paper.Metadata {
	raw = stripFence(strings.TrimSpace(raw))

	var r response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return paper.Metadata{}
	}

	var meta paper.Metadata
	if r.Title != nil {
		meta.Title = strings.TrimSpace(*r.Title)
	}
	for _, a := range r.Authors {
		if name := strings.TrimSpace(a); name != "" {
			meta.Authors = append(meta.Authors, name)
		}
	}
	if r.Date != nil {
		if d, ok := paper.ParseDate(*r.Date); ok {
			meta.PublishedDate = d
		}
	}
	if r.Abstract != nil {
		meta.Abstract = strings.TrimSpace(*r.Abstract)
	}
	return meta
}

func stripFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimPrefix(raw, "json")
	if idx := strings.LastIndex(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}
