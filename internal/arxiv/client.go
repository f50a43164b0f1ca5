package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wgilpin/paperstore/internal/paper"
)

const defaultEndpoint = "https://export.arxiv.org/api/query"

// Client fetches paper metadata from the arXiv Atom API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
}

// Config controls Client behavior.
type Config struct {
	Timeout   time.Duration
	Endpoint  string
	UserAgent string
}

// NewClient builds a Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "paperstore/1.0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
	}
}

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Published string        `xml:"published"`
	Summary   string        `xml:"summary"`
	Authors   []entryAuthor `xml:"author"`
}

type entryAuthor struct {
	Name string `xml:"name"`
}

// Fetch retrieves metadata for a normalized arXiv id. Missing optional
// fields (date, abstract) are left absent; by API contract every entry
// carries a title.
func (c *Client) Fetch(ctx context.Context, id string) (paper.Metadata, error) {
	queryURL := c.endpoint + "?id_list=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return paper.Metadata{}, &paper.FetchError{URL: queryURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return paper.Metadata{}, &paper.FetchError{URL: queryURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return paper.Metadata{}, &paper.FetchError{
			URL: queryURL,
			Err: fmt.Errorf("arxiv api status %s", resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return paper.Metadata{}, &paper.FetchError{URL: queryURL, Err: err}
	}

	var f feed
	if err := xml.Unmarshal(data, &f); err != nil {
		return paper.Metadata{}, &paper.FetchError{URL: queryURL, Err: fmt.Errorf("decode atom feed: %w", err)}
	}
	// The API answers 200 with an empty feed for unknown ids.
	if len(f.Entries) == 0 || strings.TrimSpace(f.Entries[0].Title) == "" {
		return paper.Metadata{}, &paper.FetchError{URL: queryURL, Err: fmt.Errorf("paper not found: %s", id)}
	}
	e := f.Entries[0]

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	var published *time.Time
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		published = &d
	}

	return paper.Metadata{
		Title:         collapseWhitespace(e.Title),
		Authors:       authors,
		PublishedDate: published,
		Abstract:      collapseWhitespace(e.Summary),
		ArxivID:       id,
	}, nil
}

// The Atom feed hard-wraps titles and abstracts with embedded newlines.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
