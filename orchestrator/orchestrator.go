// ABOUTME: This file implements the pipeline orchestrator (C7): wires the
// ABOUTME: crawler and enrich pool together and drives one run start to finish
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"romarchive/crawler"
	"romarchive/domain"
	"romarchive/enrich"
	"romarchive/metrics"
)

// enrichQueueBuffer sizes the channel the crawler feeds and the enrich
// pool drains; large enough that a full flush batch never blocks the
// crawler on a slow enrichment pass.
const enrichQueueBuffer = 4096

// Store is the subset of the catalog store the orchestrator itself
// depends on, beyond what it hands down to the crawler and enrich pool.
type Store interface {
	crawler.Store
	enrich.Store
	Init(ctx context.Context) error
	DeleteAllGames(ctx context.Context) error
}

// Index is the subset of the search index the orchestrator itself
// depends on, beyond what it hands down to the crawler and enrich pool.
type Index interface {
	crawler.Index
	enrich.Index
	Init() error
	DeleteAllDocuments() error
}

// MetadataClient is the subset of the metadata client the orchestrator
// depends on to acquire a token before enrichment starts.
type MetadataClient interface {
	enrich.MetadataClient
	Authenticate(ctx context.Context) error
}

// Orchestrator is the pipeline orchestrator (C7). One Orchestrator
// governs one run at a time; Start rejects a second concurrent run.
type Orchestrator struct {
	archiveBaseURL string
	store          Store
	index          Index
	metadata       MetadataClient
	logger         *slog.Logger
	state          *domain.PipelineState

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New constructs an Orchestrator. state is shared with the admin
// handlers, which read it via Snapshot while a run is (or isn't) active.
func New(archiveBaseURL string, store Store, index Index, metadataClient MetadataClient, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		archiveBaseURL: archiveBaseURL,
		store:          store,
		index:          index,
		metadata:       metadataClient,
		logger:         logger,
		state:          domain.NewPipelineState(),
	}
}

// State exposes the shared run-state object for admin handlers.
func (o *Orchestrator) State() *domain.PipelineState {
	return o.state
}

// Start validates no run is in progress, marks the state running, and
// launches the run in the background. It returns as soon as that
// decision is made; the run itself continues after Start returns.
func (o *Orchestrator) Start(mode domain.Mode) error {
	o.mu.Lock()
	if o.state.IsRunning() {
		o.mu.Unlock()
		return domain.ErrAlreadyRunning
	}

	o.state.Reset(mode)
	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.mu.Unlock()

	go o.run(runCtx, mode)
	return nil
}

// Stop requests cancellation of the in-progress run. Both the state's
// cancelled flag and the run's context are set: the crawler and enrich
// workers poll ctx at every loop head (§4.6, §4.7). Archive fetches,
// provider lookups and store calls issued with that ctx are aborted when
// it is cancelled rather than run to completion; index writes take no
// ctx and are not interrupted.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.state.IsRunning() {
		return domain.ErrNotRunning
	}

	o.state.Cancel()
	if o.cancel != nil {
		o.cancel()
	}
	return nil
}

// run drives one pipeline run to a terminal status (§4.8). It always
// leaves the state in done, error, or idle (on cancellation), and never
// panics out to its caller.
func (o *Orchestrator) run(ctx context.Context, mode domain.Mode) {
	metrics.PipelineRunning.Set(1)
	defer metrics.PipelineRunning.Set(0)

	status := domain.StatusDone
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline run panicked", "panic", r)
			status = domain.StatusError
		}
		if o.state.Cancelled() && status != domain.StatusError {
			status = domain.StatusIdle
		}
		o.state.Finish(status)
		metrics.RecordRunFinished(string(mode), string(status))
		o.logger.Info("pipeline run finished", "mode", mode, "status", status)
	}()

	if err := o.store.Init(ctx); err != nil {
		o.logger.Warn("store schema init failed", "error", err)
		o.state.Log(fmt.Sprintf("store init warning: %v", err))
	}
	if err := o.index.Init(); err != nil {
		o.logger.Warn("index init failed", "error", err)
		o.state.Log(fmt.Sprintf("index init warning: %v", err))
	}

	if mode == domain.ModeClean {
		if err := o.index.DeleteAllDocuments(); err != nil {
			o.logger.Warn("clean mode index wipe failed", "error", err)
			o.state.Log(fmt.Sprintf("clean mode index wipe warning: %v", err))
		}
		if err := o.store.DeleteAllGames(ctx); err != nil {
			o.logger.Warn("clean mode store wipe failed", "error", err)
			o.state.Log(fmt.Sprintf("clean mode store wipe warning: %v", err))
		}
	}

	enrichmentEnabled := true
	if err := o.metadata.Authenticate(ctx); err != nil {
		o.logger.Error("metadata provider authentication failed, running scrape-only", "error", err)
		o.state.Log(fmt.Sprintf("metadata authentication failed, running scrape-only: %v", err))
		enrichmentEnabled = false
	}

	queue := make(chan crawler.EnrichmentItem, enrichQueueBuffer)
	crawlerInst := crawler.New(o.archiveBaseURL, o.store, o.index, queue, o.logger)
	pool := enrich.New(o.store, o.index, o.metadata, o.state, o.logger)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := crawlerInst.Run(ctx, mode == domain.ModeClean, mode == domain.ModeIncremental); err != nil {
			o.logger.Error("crawl failed", "error", err)
			o.state.Log(fmt.Sprintf("crawl error: %v", err))
		}
		close(queue)
	}()

	go func() {
		defer wg.Done()
		// Drains every item the crawler produces, whether or not
		// enrichment is enabled, so the crawler never blocks on a
		// full queue. scrapeComplete is only set once the channel is
		// closed and fully drained, so a worker never observes
		// "complete, empty" while items are still in flight.
		for item := range queue {
			if enrichmentEnabled {
				pool.Push(item)
				o.state.SetQueueSize(pool.QueueLen())
			}
		}
		o.state.SetScrapeComplete()
	}()

	if enrichmentEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(ctx)
		}()
	}

	wg.Wait()

	o.state.AddScraped(crawlerInst.ScrapedCount(), 0)
}
