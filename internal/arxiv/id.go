// Package arxiv normalizes arXiv identifiers and fetches paper metadata
// from the export API.
package arxiv

import (
	"regexp"
	"strings"
)

// Matches modern ids like 2301.00001, with an optional version suffix.
var modernIDRe = regexp.MustCompile(`(\d{4}\.\d{4,5})(?:v\d+)?`)

// Matches legacy ids like hep-th/9901001.
var legacyIDRe = regexp.MustCompile(`([a-zA-Z][\w.-]*/\d{7})(?:v\d+)?`)

// Known mirror hosts rewritten to the canonical domain before matching.
var mirrorHosts = map[string]string{
	"ar5iv.org":            "arxiv.org",
	"ar5iv.labs.arxiv.org": "arxiv.org",
}

// IsArxivHost reports whether the host belongs to arXiv or a known mirror.
func IsArxivHost(host string) bool {
	host = strings.ToLower(host)
	if canonical, ok := mirrorHosts[host]; ok {
		host = canonical
	}
	return host == "arxiv.org" || strings.HasSuffix(host, ".arxiv.org")
}

// ExtractID returns the normalized arXiv id embedded in a URL or bare id
// string, accepting abstract-page and direct-file path forms and both the
// modern and legacy id shapes. Any version suffix is stripped. The second
// return value is false when no id can be found.
func ExtractID(urlOrID string) (string, bool) {
	for _, re := range []*regexp.Regexp{modernIDRe, legacyIDRe} {
		if m := re.FindStringSubmatch(urlOrID); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// PDFURL returns the canonical download URL for a normalized id.
func PDFURL(id string) string {
	return "https://arxiv.org/pdf/" + id
}

// AbsURL returns the canonical abstract page for a normalized id.
func AbsURL(id string) string {
	return "https://arxiv.org/abs/" + id
}
