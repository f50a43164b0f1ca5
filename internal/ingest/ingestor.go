package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wgilpin/paperstore/internal/arxiv"
	"github.com/wgilpin/paperstore/internal/metrics"
	"github.com/wgilpin/paperstore/internal/paper"
)

// Config controls Ingestor behavior.
type Config struct {
	// Topic is the publisher topic for ingest-completion events.
	Topic string
}

// Ingestor sequences classification, duplicate detection, metadata
// fetching, archival and persistence into one all-or-nothing operation
// per submission.
type Ingestor struct {
	store     paper.Store
	blobs     paper.BlobStore
	source    paper.SourceFetcher
	docs      paper.DocumentFetcher
	publisher paper.Publisher
	idGen     paper.IDGenerator
	clock     paper.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Ingestor. The publisher may be nil when event
// publication is disabled.
func New(
	store paper.Store,
	blobs paper.BlobStore,
	source paper.SourceFetcher,
	docs paper.DocumentFetcher,
	publisher paper.Publisher,
	idGen paper.IDGenerator,
	clock paper.Clock,
	cfg Config,
	logger *zap.Logger,
) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		store:     store,
		blobs:     blobs,
		source:    source,
		docs:      docs,
		publisher: publisher,
		idGen:     idGen,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ingest turns a submitted URL into a persisted Paper. On any failure the
// pipeline aborts with nothing persisted; callers may resubmit, which is
// deduplicated normally once a prior attempt has succeeded.
func (i *Ingestor) Ingest(ctx context.Context, rawURL string) (paper.Paper, error) {
	src, err := Classify(rawURL)
	if err != nil {
		metrics.ObserveIngest("unsupported_url")
		return paper.Paper{}, err
	}

	if err := i.checkDuplicate(ctx, src); err != nil {
		metrics.ObserveIngest("duplicate")
		return paper.Paper{}, err
	}

	meta, body, err := i.fetch(ctx, src)
	if err != nil {
		var ue *paper.UploadError
		switch {
		case errors.Is(err, paper.ErrMetadataIncomplete):
			metrics.ObserveIngest("metadata_incomplete")
		case errors.As(err, &ue):
			metrics.ObserveIngest("upload_error")
		default:
			metrics.ObserveIngest("fetch_error")
		}
		return paper.Paper{}, err
	}

	// The record's title is mandatory. Repository fetches always carry one
	// by API contract; only the document path can reach this.
	if strings.TrimSpace(meta.Title) == "" {
		metrics.ObserveIngest("metadata_incomplete")
		return paper.Paper{}, paper.ErrMetadataIncomplete
	}

	ref, viewURL, err := i.blobs.Upload(ctx, archiveFilename(meta.Title), body)
	if err != nil {
		metrics.ObserveIngest("upload_error")
		var ue *paper.UploadError
		if !errors.As(err, &ue) {
			err = &paper.UploadError{Err: err}
		}
		return paper.Paper{}, err
	}

	id, err := i.idGen.NewID()
	if err != nil {
		metrics.ObserveIngest("internal_error")
		return paper.Paper{}, fmt.Errorf("generate paper id: %w", err)
	}

	p := paper.Paper{
		ID:            id,
		ArxivID:       meta.ArxivID,
		Title:         meta.Title,
		Authors:       meta.Authors,
		PublishedDate: meta.PublishedDate,
		Abstract:      meta.Abstract,
		SubmissionURL: rawURL,
		FileRef:       ref,
		ViewURL:       viewURL,
		AddedAt:       i.clock.Now(),
	}

	// The store's uniqueness constraints are the race-safe backstop for
	// the duplicate check above; it maps violations to ErrDuplicate.
	if err := i.store.CreatePaper(ctx, p); err != nil {
		if errors.Is(err, paper.ErrDuplicate) {
			metrics.ObserveIngest("duplicate")
		} else {
			metrics.ObserveIngest("store_error")
		}
		return paper.Paper{}, err
	}

	i.publish(ctx, p)
	metrics.ObserveIngest("ok")
	i.logger.Info("paper ingested",
		zap.String("paper_id", p.ID),
		zap.String("arxiv_id", p.ArxivID),
		zap.String("url", rawURL),
	)
	return p, nil
}

// checkDuplicate aborts before any network fetch or upload when the
// submission already exists. Races are caught again at commit time.
func (i *Ingestor) checkDuplicate(ctx context.Context, src Source) error {
	if src.ArxivID != "" {
		_, err := i.store.FindByArxivID(ctx, src.ArxivID)
		if err == nil {
			return paper.ErrDuplicate
		}
		if !errors.Is(err, paper.ErrNotFound) {
			return err
		}
	}
	_, err := i.store.FindBySubmissionURL(ctx, src.URL)
	if err == nil {
		return paper.ErrDuplicate
	}
	if !errors.Is(err, paper.ErrNotFound) {
		return err
	}
	return nil
}

func (i *Ingestor) fetch(ctx context.Context, src Source) (paper.Metadata, []byte, error) {
	switch src.Kind {
	case SourceArxiv:
		meta, err := i.source.Fetch(ctx, src.ArxivID)
		if err != nil {
			return paper.Metadata{}, nil, err
		}
		// The archived bytes come from the canonical PDF; its embedded
		// metadata is ignored in favor of the API's.
		_, body, err := i.docs.Download(ctx, arxiv.PDFURL(src.ArxivID))
		if err != nil {
			return paper.Metadata{}, nil, err
		}
		meta.ArxivID = src.ArxivID
		return meta, body, nil
	case SourceDocument:
		return i.docs.Download(ctx, src.URL)
	default:
		return paper.Metadata{}, nil, paper.ErrUnsupportedURL
	}
}

// publish emits the completion event best-effort; a publisher outage must
// not fail an already-persisted ingestion.
func (i *Ingestor) publish(ctx context.Context, p paper.Paper) {
	if i.publisher == nil {
		return
	}
	event := paper.IngestEvent{
		PaperID:       p.ID,
		ArxivID:       p.ArxivID,
		Title:         p.Title,
		SubmissionURL: p.SubmissionURL,
		FileRef:       p.FileRef,
		IngestedAt:    p.AddedAt,
	}
	if _, err := i.publisher.Publish(ctx, i.cfg.Topic, event); err != nil {
		i.logger.Warn("ingest event publish failed", zap.String("paper_id", p.ID), zap.Error(err))
	}
}

// archiveFilename sanitizes the title into a storage-safe object name.
func archiveFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		name = "paper"
	}
	return name + ".pdf"
}
