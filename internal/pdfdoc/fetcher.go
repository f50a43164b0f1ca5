// Package pdfdoc downloads PDF documents and extracts best-effort
// embedded metadata and text.
package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/wgilpin/paperstore/internal/paper"
)

var pdfMagic = []byte("%PDF")

// Config controls download behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// Fetcher implements paper.DocumentFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// NewFetcher builds a Fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 100 << 20
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Download fetches the document at url, following redirects within the
// configured timeout, and validates the payload by signature bytes
// regardless of the declared content type. Sparse embedded metadata is a
// successful result; only unreachable or non-PDF content fails.
func (f *Fetcher) Download(ctx context.Context, url string) (paper.Metadata, []byte, error) {
	var (
		body     []byte
		status   int
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return paper.Metadata{}, nil, err
	}
	if fetchErr != nil {
		return paper.Metadata{}, nil, &paper.FetchError{URL: url, Err: fetchErr}
	}
	if status != http.StatusOK {
		return paper.Metadata{}, nil, &paper.FetchError{URL: url, Err: fmt.Errorf("unexpected status %d", status)}
	}
	if !bytes.HasPrefix(body, pdfMagic) {
		return paper.Metadata{}, nil, &paper.FetchError{URL: url, Err: fmt.Errorf("payload is not a PDF")}
	}

	// Parse failures leave the metadata blank rather than failing the
	// download.
	meta := InfoMetadata(body)
	return meta, body, nil
}

// runCollector executes the visit while honoring context cancellation.
func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return &paper.FetchError{URL: url, Err: ctx.Err()}
	case err := <-done:
		if err != nil && *fetchErr == nil {
			*fetchErr = err
		}
		return nil
	}
}
