package paper

import (
	"context"
	"time"
)

// Store persists papers and their notes. Implementations must enforce
// uniqueness on arxiv id and submission URL and surface violations as
// ErrDuplicate; the uniqueness constraints are the authoritative backstop
// for concurrent duplicate submissions.
type Store interface {
	// CreatePaper writes the paper and its empty note atomically.
	CreatePaper(ctx context.Context, p Paper) error

	// FindByArxivID returns the paper with the given arXiv id, or
	// ErrNotFound.
	FindByArxivID(ctx context.Context, arxivID string) (Paper, error)

	// FindBySubmissionURL returns the paper submitted from the exact URL,
	// or ErrNotFound.
	FindBySubmissionURL(ctx context.Context, url string) (Paper, error)

	// GetPaper returns a paper and its note by id, or ErrNotFound.
	GetPaper(ctx context.Context, id string) (Paper, Note, error)

	// Search returns one page of papers plus the total match count.
	// An empty query matches everything.
	Search(ctx context.Context, params SearchParams) ([]Paper, int, error)

	// ListIncomplete returns papers missing title, authors, abstract or
	// publication date, in creation order.
	ListIncomplete(ctx context.Context) ([]Paper, error)

	// UpdateMetadata rewrites the paper's metadata fields and rederives
	// its search representation.
	UpdateMetadata(ctx context.Context, id string, m Metadata) error

	// UpdateNote replaces the note content for a paper.
	UpdateNote(ctx context.Context, paperID string, content string) (Note, error)

	// DeletePaper removes the paper, cascading to its note and tag links,
	// and returns the removed row.
	DeletePaper(ctx context.Context, id string) (Paper, error)

	// Close releases store resources.
	Close()
}

// BlobStore archives raw document bytes and serves them back for
// enrichment.
type BlobStore interface {
	// Upload writes the data and returns a stable reference plus a
	// human-viewable link.
	Upload(ctx context.Context, filename string, data []byte) (ref string, viewURL string, err error)

	// Get returns the archived bytes for a reference.
	Get(ctx context.Context, ref string) ([]byte, error)

	// Delete removes the archived object.
	Delete(ctx context.Context, ref string) error
}

// SourceFetcher retrieves metadata from the article repository API.
type SourceFetcher interface {
	Fetch(ctx context.Context, arxivID string) (Metadata, error)
}

// DocumentFetcher downloads a document and extracts best-effort embedded
// metadata. Sparse metadata is a successful result.
type DocumentFetcher interface {
	Download(ctx context.Context, url string) (Metadata, []byte, error)
}

// MetadataExtractor proposes metadata corrections from raw document text.
// Every field of the result is optional.
type MetadataExtractor interface {
	Extract(ctx context.Context, text string, current Metadata) (Metadata, error)
}

// Publisher pushes ingest-completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces paper IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
