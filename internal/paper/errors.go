package paper

import (
	"errors"
	"fmt"
)

// Sentinel errors for user-visible failure categories. The API layer maps
// each one to a distinct status code and message.
var (
	// ErrUnsupportedURL means the submitted URL is neither an arXiv page
	// nor a direct document link.
	ErrUnsupportedURL = errors.New("unsupported url")

	// ErrDuplicate means the paper already exists, matched either by
	// arXiv id or by exact submission URL.
	ErrDuplicate = errors.New("paper already exists in the library")

	// ErrMetadataIncomplete means no extraction path produced a title,
	// so nothing was persisted.
	ErrMetadataIncomplete = errors.New("could not determine a title for the document")

	// ErrNotFound means the requested paper does not exist.
	ErrNotFound = errors.New("paper not found")
)

// FetchError wraps a failure to reach or parse an upstream source.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UploadError wraps a file-store failure during archival.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload archive: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ExtractionError wraps a secondary-extractor failure. It is local to a
// single enrichment candidate and never aborts a run.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("metadata extraction: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
