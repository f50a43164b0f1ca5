package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgilpin/paperstore/internal/paper"
	pubmemory "github.com/wgilpin/paperstore/internal/publisher/memory"
	storememory "github.com/wgilpin/paperstore/internal/store/memory"
	blobmemory "github.com/wgilpin/paperstore/internal/storage/memory"
)

var pdfBody = []byte("%PDF-1.4\nstub body\n%%EOF\n")

type stubSource struct {
	meta paper.Metadata
	err  error
}

func (s *stubSource) Fetch(_ context.Context, _ string) (paper.Metadata, error) {
	return s.meta, s.err
}

type stubDocs struct {
	meta  paper.Metadata
	body  []byte
	err   error
	calls []string
}

func (d *stubDocs) Download(_ context.Context, url string) (paper.Metadata, []byte, error) {
	d.calls = append(d.calls, url)
	if d.err != nil {
		return paper.Metadata{}, nil, d.err
	}
	return d.meta, d.body, nil
}

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%04d", g.n), nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixture struct {
	store  *storememory.Store
	blobs  *blobmemory.BlobStore
	source *stubSource
	docs   *stubDocs
	pub    *pubmemory.Publisher
	ing    *Ingestor
}

func newFixture() *fixture {
	f := &fixture{
		store:  storememory.NewStore(),
		blobs:  blobmemory.NewBlobStore(),
		source: &stubSource{},
		docs:   &stubDocs{body: pdfBody},
		pub:    pubmemory.New(),
	}
	f.ing = New(
		f.store, f.blobs, f.source, f.docs, f.pub,
		&seqIDs{}, fixedClock{t: time.Unix(1700000000, 0).UTC()},
		Config{Topic: "paper-ingested"}, nil,
	)
	return f
}

func TestIngestArxivURL(t *testing.T) {
	f := newFixture()
	date := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	f.source.meta = paper.Metadata{
		Title:         "Attention Is All You Need",
		Authors:       []string{"A. Vaswani"},
		PublishedDate: &date,
		Abstract:      "The dominant sequence transduction models...",
	}

	got, err := f.ing.Ingest(context.Background(), "https://arxiv.org/abs/2301.00001")
	require.NoError(t, err)

	assert.Equal(t, "2301.00001", got.ArxivID)
	assert.Equal(t, "Attention Is All You Need", got.Title)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "papers/Attention Is All You Need.pdf", got.FileRef)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.AddedAt)

	// The archived bytes come from the canonical PDF URL.
	require.Len(t, f.docs.calls, 1)
	assert.Equal(t, "https://arxiv.org/pdf/2301.00001", f.docs.calls[0])

	// The record and its empty note were persisted together.
	stored, note, err := f.store.GetPaper(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.SubmissionURL, stored.SubmissionURL)
	assert.Empty(t, note.Content)

	// A completion event went out.
	msgs := f.pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "paper-ingested", msgs[0].Topic)
	event, ok := msgs[0].Payload.(paper.IngestEvent)
	require.True(t, ok)
	assert.Equal(t, got.ID, event.PaperID)
}

func TestIngestDocumentURL(t *testing.T) {
	f := newFixture()
	f.docs.meta = paper.Metadata{Title: "Quarterly Report", Authors: []string{"Ops Team"}}

	got, err := f.ing.Ingest(context.Background(), "https://example.com/reports/q3.pdf")
	require.NoError(t, err)
	assert.Empty(t, got.ArxivID)
	assert.Equal(t, "Quarterly Report", got.Title)
	assert.Equal(t, 1, f.blobs.Len())
}

func TestIngestDuplicateURL(t *testing.T) {
	f := newFixture()
	f.docs.meta = paper.Metadata{Title: "Once Only"}

	_, err := f.ing.Ingest(context.Background(), "https://example.com/once.pdf")
	require.NoError(t, err)

	_, err = f.ing.Ingest(context.Background(), "https://example.com/once.pdf")
	assert.ErrorIs(t, err, paper.ErrDuplicate)

	// Exactly one record; the duplicate attempt downloaded nothing.
	assert.Equal(t, 1, f.store.Len())
	assert.Len(t, f.docs.calls, 1)
}

func TestIngestDuplicateArxivIDAcrossURLShapes(t *testing.T) {
	f := newFixture()
	f.source.meta = paper.Metadata{Title: "Same Paper"}

	_, err := f.ing.Ingest(context.Background(), "https://arxiv.org/abs/2301.00001")
	require.NoError(t, err)

	// A different URL shape for the same identifier is still a duplicate.
	_, err = f.ing.Ingest(context.Background(), "https://arxiv.org/pdf/2301.00001v2")
	assert.ErrorIs(t, err, paper.ErrDuplicate)
	assert.Equal(t, 1, f.store.Len())
}

func TestIngestUnsupportedURL(t *testing.T) {
	f := newFixture()

	_, err := f.ing.Ingest(context.Background(), "https://example.com/blog/post")
	assert.ErrorIs(t, err, paper.ErrUnsupportedURL)
	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.docs.calls)
}

func TestIngestFetchFailureLeavesNothing(t *testing.T) {
	f := newFixture()
	f.docs.err = &paper.FetchError{URL: "https://example.com/broken.pdf", Err: errors.New("connection refused")}

	_, err := f.ing.Ingest(context.Background(), "https://example.com/broken.pdf")
	var fetchErr *paper.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, f.store.Len())
	assert.Zero(t, f.blobs.Len())
}

func TestIngestMissingTitleAborts(t *testing.T) {
	f := newFixture()
	f.docs.meta = paper.Metadata{Authors: []string{"Anonymous"}}

	_, err := f.ing.Ingest(context.Background(), "https://example.com/untitled.pdf")
	assert.ErrorIs(t, err, paper.ErrMetadataIncomplete)
	assert.Zero(t, f.store.Len())
	assert.Zero(t, f.blobs.Len())
}

func TestIngestUploadFailureLeavesNothing(t *testing.T) {
	f := newFixture()
	f.docs.meta = paper.Metadata{Title: "Doomed Upload"}
	f.blobs.UploadErr = errors.New("bucket offline")

	_, err := f.ing.Ingest(context.Background(), "https://example.com/doomed.pdf")
	var uploadErr *paper.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.pub.Messages())
}

func TestIngestPublisherOutageDoesNotFail(t *testing.T) {
	f := newFixture()
	f.docs.meta = paper.Metadata{Title: "Still Persisted"}
	f.pub.Err = errors.New("broker down")

	got, err := f.ing.Ingest(context.Background(), "https://example.com/persisted.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Len())
	assert.NotEmpty(t, got.ID)
}

func TestIngestNilPublisher(t *testing.T) {
	f := newFixture()
	f.docs.meta = paper.Metadata{Title: "No Events"}
	f.ing = New(f.store, f.blobs, f.source, f.docs, nil, &seqIDs{}, fixedClock{t: time.Now()}, Config{}, nil)

	_, err := f.ing.Ingest(context.Background(), "https://example.com/no-events.pdf")
	require.NoError(t, err)
}

func TestArchiveFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  string
	}{
		{"Attention Is All You Need", "Attention Is All You Need.pdf"},
		{"What? A/B: Testing!", "What_ A_B_ Testing_.pdf"},
		{"///", "___.pdf"},
		{"  ", "paper.pdf"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, archiveFilename(tc.title))
	}
}
