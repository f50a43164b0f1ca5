// Package enrich runs the background job that retries metadata
// extraction for papers left incomplete at ingest time.
package enrich

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wgilpin/paperstore/internal/metrics"
	"github.com/wgilpin/paperstore/internal/paper"
	"github.com/wgilpin/paperstore/internal/pdfdoc"
)

// pagesPerCandidate bounds how much archived text is sent to the extractor.
const pagesPerCandidate = 2

// candidateTimeout bounds one candidate's read+extract+update cycle.
const candidateTimeout = 2 * time.Minute

// Controller is the process-wide enrichment job. One run at a time;
// start is idempotent while a run is active.
type Controller struct {
	store     paper.Store
	blobs     paper.BlobStore
	extractor paper.MetadataExtractor
	logger    *zap.Logger

	// textOf is swapped out by tests that feed plain text instead of PDFs.
	textOf func(data []byte, maxPages int) string

	mu        sync.Mutex
	running   bool
	doneCount int
	cancel    context.CancelFunc
	finished  chan struct{}
}

// NewController constructs the singleton job controller.
func NewController(store paper.Store, blobs paper.BlobStore, extractor paper.MetadataExtractor, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:     store,
		blobs:     blobs,
		extractor: extractor,
		logger:    logger,
		textOf: func(data []byte, maxPages int) string {
			text, err := pdfdoc.FirstPagesText(data, maxPages)
			if err != nil {
				return ""
			}
			return text
		},
	}
}

// Start launches a run unless one is active, in which case it returns the
// current status unchanged.
func (c *Controller) Start() paper.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return paper.JobStatus{Running: true, DoneCount: c.doneCount}
	}

	// The run outlives the HTTP request that started it.
	runCtx, cancel := context.WithCancel(context.Background())
	c.running = true
	c.doneCount = 0
	c.cancel = cancel
	c.finished = make(chan struct{})

	go c.run(runCtx, c.finished)

	return paper.JobStatus{Running: true, DoneCount: 0}
}

// Stop requests cancellation. The run observes it between candidates, so
// the returned snapshot may still report running.
func (c *Controller) Stop() paper.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running && c.cancel != nil {
		c.cancel()
	}
	return paper.JobStatus{Running: c.running, DoneCount: c.doneCount}
}

// Status returns a snapshot safe to read during a run.
func (c *Controller) Status() paper.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return paper.JobStatus{Running: c.running, DoneCount: c.doneCount}
}

func (c *Controller) run(ctx context.Context, finished chan struct{}) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
		close(finished)
	}()

	candidates, err := c.store.ListIncomplete(ctx)
	if err != nil {
		c.logger.Error("enrichment: list candidates", zap.Error(err))
		return
	}
	c.logger.Info("enrichment run started", zap.Int("candidates", len(candidates)))

	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			c.logger.Info("enrichment run cancelled")
			return
		default:
		}
		// Cancellation applies between candidates only: the in-flight
		// candidate runs on its own context, so Stop cannot abort an
		// extraction call midway.
		candCtx, cancel := context.WithTimeout(context.Background(), candidateTimeout)
		c.process(candCtx, candidate)
		cancel()
	}
	c.logger.Info("enrichment run finished", zap.Int("updated", c.Status().DoneCount))
}

func (c *Controller) process(ctx context.Context, candidate paper.Paper) {
	log := c.logger.With(zap.String("paper_id", candidate.ID))

	data, err := c.blobs.Get(ctx, candidate.FileRef)
	if err != nil {
		log.Warn("enrichment: archived file unavailable", zap.Error(err))
		metrics.ObserveEnrichmentSkipped("text_unavailable")
		return
	}
	text := c.textOf(data, pagesPerCandidate)
	if text == "" {
		log.Warn("enrichment: no extractable text")
		metrics.ObserveEnrichmentSkipped("no_text")
		return
	}

	current := paper.MetadataOf(candidate)
	proposed, err := c.extractor.Extract(ctx, text, current)
	if err != nil {
		log.Warn("enrichment: extraction failed", zap.Error(err))
		metrics.ObserveEnrichmentSkipped("extraction_error")
		return
	}

	merged, changed := paper.Merge(current, proposed)
	if !changed {
		metrics.ObserveEnrichmentSkipped("no_improvement")
		return
	}

	if err := c.store.UpdateMetadata(ctx, candidate.ID, merged); err != nil {
		log.Warn("enrichment: persist update", zap.Error(err))
		metrics.ObserveEnrichmentSkipped("store_error")
		return
	}

	c.mu.Lock()
	c.doneCount++
	c.mu.Unlock()
	metrics.ObserveEnrichmentApplied()
	log.Info("enrichment: metadata updated")
}
