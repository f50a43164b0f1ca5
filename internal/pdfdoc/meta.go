package pdfdoc

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/wgilpin/paperstore/internal/paper"
)

// InfoMetadata reads the document information dictionary. Everything here
// is best-effort: a malformed or sparse dictionary yields blank fields,
// never an error.
func InfoMetadata(data []byte) (meta paper.Metadata) {
	// ledongthuc/pdf panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			meta = paper.Metadata{}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return paper.Metadata{}
	}

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return paper.Metadata{}
	}

	meta.Title = strings.TrimSpace(info.Key("Title").Text())
	if authors := strings.TrimSpace(info.Key("Author").Text()); authors != "" {
		meta.Authors = splitAuthors(authors)
	}
	// PDF info dictionaries rarely carry a usable date or abstract; both
	// stay absent and are filled by enrichment later.
	return meta
}

// FirstPagesText extracts plain text from the first maxPages pages, for
// the secondary extractor. Pages that fail to extract are skipped.
func FirstPagesText(data []byte, maxPages int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", nil
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := r.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}
	return strings.TrimSpace(b.String()), nil
}

func splitAuthors(raw string) []string {
	sep := ";"
	if !strings.Contains(raw, ";") {
		sep = ","
	}
	parts := strings.Split(raw, sep)
	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}
