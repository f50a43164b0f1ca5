// Package ingest classifies submitted URLs and runs the ingestion
// pipeline that turns them into persisted library records.
package ingest

import (
	"net/url"
	"path"
	"strings"

	"github.com/wgilpin/paperstore/internal/arxiv"
	"github.com/wgilpin/paperstore/internal/paper"
)

// SourceKind discriminates the two classification variants.
type SourceKind string

// Classification variants.
const (
	SourceArxiv    SourceKind = "arxiv"
	SourceDocument SourceKind = "document"
)

// Source is the result of classifying a submitted URL.
type Source struct {
	Kind SourceKind
	// ArxivID is the normalized repository identifier; set only for
	// SourceArxiv.
	ArxivID string
	// URL is the submitted URL as given.
	URL string
}

// Extensions accepted as direct document links.
var documentExtensions = map[string]bool{
	".pdf": true,
}

// Classify decides whether rawURL refers to an arXiv entry or a direct
// document link. Classification is pure: the same URL always classifies
// identically. Unsupported shapes fail with paper.ErrUnsupportedURL.
func Classify(rawURL string) (Source, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Source{}, paper.ErrUnsupportedURL
	}

	if arxiv.IsArxivHost(u.Hostname()) {
		id, ok := arxiv.ExtractID(u.Path)
		if !ok {
			return Source{}, paper.ErrUnsupportedURL
		}
		return Source{Kind: SourceArxiv, ArxivID: id, URL: rawURL}, nil
	}

	if documentExtensions[strings.ToLower(path.Ext(u.Path))] {
		return Source{Kind: SourceDocument, URL: rawURL}, nil
	}

	return Source{}, paper.ErrUnsupportedURL
}
