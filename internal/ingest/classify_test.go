package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgilpin/paperstore/internal/paper"
)

func TestClassifyArxivShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		url  string
		want string
	}{
		{"abstract page", "https://arxiv.org/abs/2301.00001", "2301.00001"},
		{"pdf path", "https://arxiv.org/pdf/2301.00001", "2301.00001"},
		{"pdf with extension", "https://arxiv.org/pdf/2301.00001.pdf", "2301.00001"},
		{"versioned", "https://arxiv.org/abs/2301.00001v3", "2301.00001"},
		{"mirror host", "https://ar5iv.org/abs/2301.00001", "2301.00001"},
		{"legacy id", "https://arxiv.org/abs/hep-th/9901001", "hep-th/9901001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := Classify(tc.url)
			require.NoError(t, err)
			assert.Equal(t, SourceArxiv, src.Kind)
			assert.Equal(t, tc.want, src.ArxivID)
		})
	}
}

func TestClassifyDocument(t *testing.T) {
	t.Parallel()

	src, err := Classify("https://example.com/papers/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, SourceDocument, src.Kind)
	assert.Empty(t, src.ArxivID)
	assert.Equal(t, "https://example.com/papers/report.pdf", src.URL)
}

func TestClassifyRejectsUnsupported(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		url  string
	}{
		{"html page", "https://example.com/blog/post"},
		{"no scheme", "example.com/report.pdf"},
		{"ftp scheme", "ftp://example.com/report.pdf"},
		{"empty", ""},
		{"arxiv without id", "https://arxiv.org/list/cs.LG/recent"},
		{"garbage", "::::"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Classify(tc.url)
			assert.ErrorIs(t, err, paper.ErrUnsupportedURL)
		})
	}
}
