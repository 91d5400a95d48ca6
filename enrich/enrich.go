// ABOUTME: This file implements the enrichment worker pool (C6)
// ABOUTME: Fixed staggered workers draining a queue, calling the metadata client in batches
package enrich

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"romarchive/crawler"
	"romarchive/domain"
	"romarchive/metadata"
	"romarchive/metrics"
)

const (
	// Workers is the fixed pool size (§4.7).
	Workers = 4
	// BatchSize is the max items popped per provider call (§4.7).
	BatchSize = 10
	// WorkerDelay is the per-worker inter-iteration sleep (§4.7).
	WorkerDelay = 1000 * time.Millisecond
	// Stagger is the startup offset between workers, WorkerDelay/Workers.
	Stagger = WorkerDelay / Workers

	emptyQueuePoll = 100 * time.Millisecond
)

// Store is the subset of the catalog store the enrich pool depends on.
type Store interface {
	UpdateFields(ctx context.Context, id int64, fields domain.EnrichmentFields) (*domain.Game, error)
}

// Index is the subset of the search index the enrich pool depends on.
type Index interface {
	AddDocuments(docs []domain.Game) error
}

// MetadataClient is the subset of the metadata client the enrich pool
// depends on.
type MetadataClient interface {
	BatchLookup(ctx context.Context, names []string) ([]*metadata.Hit, error)
}

// CrawlerStatus reports whether the crawler has finished producing work,
// so workers know when an empty queue means "done" rather than "wait",
// and receives live progress counters for the admin status surface (§6).
type CrawlerStatus interface {
	ScrapeComplete() bool
	AddEnriched(n int)
	AddIndexed(n int)
}

// Pool is the enrichment worker pool (C6).
type Pool struct {
	store  Store
	index  Index
	client MetadataClient
	status CrawlerStatus
	logger *slog.Logger

	mu    sync.Mutex
	queue []crawler.EnrichmentItem

	enriched int64
	indexed  int64
}

// New constructs a Pool that reads items pushed onto queue.
func New(store Store, index Index, client MetadataClient, status CrawlerStatus, logger *slog.Logger) *Pool {
	return &Pool{store: store, index: index, client: client, status: status, logger: logger}
}

// Push enqueues one item. Safe for concurrent use by the crawler.
func (p *Pool) Push(item crawler.EnrichmentItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, item)
}

// Counts returns the running enriched/indexed totals.
func (p *Pool) Counts() (enriched, indexed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enriched, p.indexed
}

// Run starts the Workers-sized staggered pool and blocks until every
// worker exits (queue empty and the crawler has completed, or ctx is
// cancelled).
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < Workers; i++ {
		wg.Add(1)
		go func(workerIdx int) {
			defer wg.Done()
			select {
			case <-time.After(time.Duration(workerIdx) * Stagger):
			case <-ctx.Done():
				return
			}
			p.worker(ctx)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) worker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		complete := p.status.ScrapeComplete()
		queueLen := p.len()

		if queueLen < BatchSize && !complete {
			select {
			case <-time.After(emptyQueuePoll):
				continue
			case <-ctx.Done():
				return
			}
		}

		if queueLen == 0 && complete {
			return
		}

		batch := p.pop(BatchSize)
		if len(batch) == 0 {
			return
		}

		p.processBatch(ctx, batch)

		select {
		case <-time.After(WorkerDelay):
		case <-ctx.Done():
			return
		}
	}
}

// QueueLen reports the current depth of the enrichment queue.
func (p *Pool) QueueLen() int {
	return p.len()
}

func (p *Pool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// pop atomically removes up to n items from the front of the queue, no
// two callers observing overlapping slices.
func (p *Pool) pop(n int) []crawler.EnrichmentItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return nil
	}
	if n > len(p.queue) {
		n = len(p.queue)
	}
	batch := p.queue[:n]
	p.queue = p.queue[n:]
	return batch
}

func (p *Pool) processBatch(ctx context.Context, batch []crawler.EnrichmentItem) {
	names := make([]string, len(batch))
	for i, item := range batch {
		names[i] = item.GameName
	}

	hits, err := p.client.BatchLookup(ctx, names)
	if err != nil {
		p.logger.ErrorContext(ctx, "metadata batch lookup failed, skipping batch", "count", len(batch), "error", err)
		metrics.RecordError("enrich", "metadata")
		return
	}

	// §4.7 step 5: for each item in the popped batch, in parallel, write
	// the normalized hit (or miss) via the store. Index-correlated slices
	// rather than a reusable fan-out helper: this loop only ever fans out
	// over one batch of at most BatchSize items, so a dedicated goroutine
	// per item is simpler than a generic bounded-pool abstraction.
	updated := make([]*domain.Game, len(batch))
	updateErrs := make([]error, len(batch))

	var wg sync.WaitGroup
	wg.Add(len(batch))
	for i, item := range batch {
		var hit *metadata.Hit
		if i < len(hits) {
			hit = hits[i]
		}
		go func(idx int, id int64, hit *metadata.Hit) {
			defer wg.Done()
			game, err := p.store.UpdateFields(ctx, id, fieldsFromHit(hit))
			if err != nil {
				updateErrs[idx] = err
				return
			}
			updated[idx] = game
		}(i, item.ID, hit)
	}
	wg.Wait()

	var docs []domain.Game
	var enrichedThisBatch int64
	for i, game := range updated {
		if updateErrs[i] != nil {
			p.logger.ErrorContext(ctx, "enrichment update failed, skipping item", "id", batch[i].ID, "error", updateErrs[i])
			metrics.RecordError("enrich", "store_update")
			continue
		}
		docs = append(docs, *game)
		enrichedThisBatch++
	}

	p.mu.Lock()
	p.enriched += enrichedThisBatch
	p.mu.Unlock()
	metrics.EnrichedTotal.Add(float64(enrichedThisBatch))
	if p.status != nil {
		p.status.AddEnriched(int(enrichedThisBatch))
	}

	if len(docs) == 0 {
		return
	}

	if err := p.index.AddDocuments(docs); err != nil {
		p.logger.ErrorContext(ctx, "index batch failed", "count", len(docs), "error", err)
		metrics.RecordError("enrich", "index")
		return
	}

	p.mu.Lock()
	p.indexed += int64(len(docs))
	p.mu.Unlock()
	metrics.IndexedTotal.Add(float64(len(docs)))
	if p.status != nil {
		p.status.AddIndexed(len(docs))
	}
}

// fieldsFromHit normalizes a metadata hit into store fields, mapping a
// miss to the empty-string "attempted" sentinel (I2).
func fieldsFromHit(h *metadata.Hit) domain.EnrichmentFields {
	if h == nil {
		empty := ""
		return domain.EnrichmentFields{Description: &empty}
	}

	description := h.Description
	return domain.EnrichmentFields{
		Description: &description,
		Rating:      h.Rating,
		ReleaseDate: h.ReleaseDate,
		Developer:   h.Developer,
		Publisher:   h.Publisher,
		Genre:       h.Genre,
		Images:      h.Images,
	}
}
