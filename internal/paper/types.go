// Package paper defines core types shared across subsystems.
package paper

import (
	"time"
)

// Paper is the persisted library record for one archived document.
type Paper struct {
	ID            string     `json:"id"`
	ArxivID       string     `json:"arxiv_id,omitempty"`
	Title         string     `json:"title"`
	Authors       []string   `json:"authors"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	Abstract      string     `json:"abstract,omitempty"`
	SubmissionURL string     `json:"submission_url"`
	FileRef       string     `json:"file_ref"`
	ViewURL       string     `json:"view_url"`
	AddedAt       time.Time  `json:"added_at"`
}

// Note is the single free-text annotation attached to a Paper. It is
// created empty alongside the Paper and only ever replaced wholesale.
type Note struct {
	PaperID   string    `json:"paper_id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata is the common shape produced by every extractor. All fields
// are optional; a zero value means the source did not provide the field.
type Metadata struct {
	Title         string
	Authors       []string
	PublishedDate *time.Time
	Abstract      string
	ArxivID       string
}

// SortKey names a supported listing order.
type SortKey string

// Supported sort keys for Search.
const (
	SortAddedAt SortKey = "added_at"
	SortTitle   SortKey = "title"
)

// PageSize is the fixed number of papers per search page.
const PageSize = 20

// SearchParams captures one search/listing request.
type SearchParams struct {
	Query string
	Sort  SortKey
	Page  int
	Tag   string
}

// JobStatus is a snapshot of the enrichment job singleton.
type JobStatus struct {
	Running   bool `json:"running"`
	DoneCount int  `json:"done_count"`
}

// IngestEvent is published after a paper has been fully persisted.
type IngestEvent struct {
	PaperID       string    `json:"paper_id"`
	ArxivID       string    `json:"arxiv_id,omitempty"`
	Title         string    `json:"title"`
	SubmissionURL string    `json:"submission_url"`
	FileRef       string    `json:"file_ref"`
	IngestedAt    time.Time `json:"ingested_at"`
}
