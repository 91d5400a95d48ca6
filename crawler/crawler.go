// ABOUTME: This file implements the archive crawler (C5): breadth-first directory traversal
// ABOUTME: producing parsed file records, bounded to a fixed in-flight fetch concurrency
package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"romarchive/domain"
	"romarchive/metrics"
	"romarchive/parser"

	"github.com/PuerkitoBio/goquery"
)

const (
	// Concurrency is the fixed pool of in-flight fetches (§4.6).
	Concurrency = 20
	// BatchSize is how many parsed records accumulate before a flush (§4.6).
	BatchSize = 500

	fetchTimeout = 30 * time.Second
)

// Store is the subset of the catalog store the crawler depends on.
type Store interface {
	BatchUpsert(ctx context.Context, records []domain.CrawledRecord) ([]domain.UpsertResult, error)
	ReadByIDs(ctx context.Context, ids []int64) ([]domain.Game, error)
	ReadAllURLs(ctx context.Context) ([]string, error)
	DeleteByURLs(ctx context.Context, urls []string) error
}

// Index is the subset of the search index the crawler depends on, for
// re-indexing already-enriched records after a non-enriching upsert.
type Index interface {
	AddDocuments(docs []domain.Game) error
}

// EnrichmentItem is what a flush pushes onto the enrichment queue.
type EnrichmentItem struct {
	ID       int64
	GameName string
}

// Crawler traverses the archive's nested HTML directory listings.
type Crawler struct {
	rootURL string
	store   Store
	index   Index
	queue   chan<- EnrichmentItem
	logger  *slog.Logger

	httpClient *http.Client

	mu       sync.Mutex
	visited  map[string]bool
	seenUrls map[string]bool
	buffer   []domain.CrawledRecord

	inFlight sync.WaitGroup
	work     chan string

	scraped int
}

// New constructs a Crawler. queue is the channel enrichment-eligible
// items are pushed to; it is never closed by the crawler.
func New(rootURL string, store Store, index Index, queue chan<- EnrichmentItem, logger *slog.Logger) *Crawler {
	return &Crawler{
		rootURL:  rootURL,
		store:    store,
		index:    index,
		queue:    queue,
		logger:   logger,
		visited:  make(map[string]bool),
		seenUrls: make(map[string]bool),
		httpClient: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        Concurrency + 5,
				MaxIdleConnsPerHost: Concurrency + 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// ScrapedCount returns the number of file records discovered so far.
func (c *Crawler) ScrapedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scraped
}

// Run drives the breadth-first traversal to completion, or until ctx is
// cancelled. cleanMode controls whether already-enriched records are
// re-queued for enrichment regardless of prior state.
func (c *Crawler) Run(ctx context.Context, cleanMode, incremental bool) error {
	c.work = make(chan string, Concurrency*4)
	c.work <- c.rootURL

	var wg sync.WaitGroup
	sem := make(chan struct{}, Concurrency)

dispatch:
	for {
		select {
		case u, ok := <-c.work:
			if !ok {
				break dispatch
			}

			c.mu.Lock()
			already := c.visited[u]
			if !already {
				c.visited[u] = true
			}
			c.mu.Unlock()
			if already {
				continue
			}

			if ctx.Err() != nil {
				continue
			}

			sem <- struct{}{}
			wg.Add(1)
			go func(fetchURL string) {
				defer wg.Done()
				defer func() { <-sem }()
				c.fetchOne(ctx, fetchURL, cleanMode)
			}(u)

		default:
			if len(c.work) == 0 && len(sem) == 0 {
				break dispatch
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	wg.Wait()
	close(c.work)

	if err := c.flush(ctx, cleanMode); err != nil {
		c.logger.ErrorContext(ctx, "final flush failed", "error", err)
	}

	if incremental && ctx.Err() == nil {
		if err := c.pruneStale(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (c *Crawler) fetchOne(ctx context.Context, pageURL string, cleanMode bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to build request", "url", pageURL, "error", err)
		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "fetch failed", "url", pageURL, "error", err)
		metrics.RecordError("crawler", "fetch")
		return
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "parse failed", "url", pageURL, "error", err)
		metrics.RecordError("crawler", "parse")
		return
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	root, err := url.Parse(c.rootURL)
	if err != nil {
		return
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		anchor := row.Find("a")
		href, ok := anchor.Attr("href")
		if !ok || rejectHref(href) {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}

		if strings.HasSuffix(resolved.Path, "/") {
			select {
			case c.work <- resolved.String():
			default:
				c.logger.WarnContext(ctx, "work queue full, dropping directory", "url", resolved.String())
			}
			return
		}

		size := strings.TrimSpace(row.Find("td.size").Text())
		if size == "-" {
			size = ""
		}

		c.addRecord(ctx, resolved, root, size, cleanMode)
	})
}

func (c *Crawler) addRecord(ctx context.Context, fileURL *url.URL, rootURL *url.URL, size string, cleanMode bool) {
	decodedPath, err := url.PathUnescape(fileURL.Path)
	if err != nil {
		decodedPath = fileURL.Path
	}
	filename := pathLeaf(decodedPath)

	parsed := parser.Parse(filename)
	group, platform := pathSegments(rootURL, fileURL)

	record := domain.CrawledRecord{
		DownloadURL: fileURL.String(),
		GameName:    parsed.BaseName,
		Filename:    filename,
		Platform:    platform,
		GroupName:   group,
		Region:      parsed.Region,
		Size:        size,
		Eligible:    parser.Eligible(filename),
		Tags:        parsed.Tags,
	}

	c.mu.Lock()
	c.seenUrls[record.DownloadURL] = true
	c.scraped++
	c.buffer = append(c.buffer, record)
	shouldFlush := len(c.buffer) >= BatchSize
	c.mu.Unlock()

	metrics.ScrapedTotal.Inc()

	if shouldFlush {
		if err := c.flush(ctx, cleanMode); err != nil {
			c.logger.ErrorContext(ctx, "batch flush failed", "error", err)
		}
	}
}

// flush upserts the buffered batch and decides, per record, whether it
// needs enrichment or should be forwarded straight to the search index
// (§4.6).
func (c *Crawler) flush(ctx context.Context, cleanMode bool) error {
	c.mu.Lock()
	batch := c.buffer
	c.buffer = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	results, err := c.store.BatchUpsert(ctx, batch)
	if err != nil {
		c.logger.ErrorContext(ctx, "batch upsert failed, dropping batch", "count", len(batch), "error", err)
		metrics.RecordError("crawler", "upsert")
		return nil
	}

	var reindexIDs []int64
	for i, r := range results {
		eligible := i < len(batch) && batch[i].Eligible
		if r.NeedsEnrichment(cleanMode, eligible) {
			select {
			case c.queue <- EnrichmentItem{ID: r.ID, GameName: r.GameName}:
			case <-ctx.Done():
			}
			continue
		}
		reindexIDs = append(reindexIDs, r.ID)
	}

	if len(reindexIDs) == 0 {
		return nil
	}

	games, err := c.store.ReadByIDs(ctx, reindexIDs)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to read back rows for reindex", "error", err)
		return nil
	}

	if err := c.index.AddDocuments(games); err != nil {
		c.logger.ErrorContext(ctx, "reindex of unchanged rows failed", "error", err)
		metrics.RecordError("crawler", "index")
	}

	return nil
}

// pruneStale removes rows whose download_url was not observed in this
// crawl, in incremental mode only (§4.6).
func (c *Crawler) pruneStale(ctx context.Context) error {
	storeUrls, err := c.store.ReadAllURLs(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	var stale []string
	for _, u := range storeUrls {
		if !c.seenUrls[u] {
			stale = append(stale, u)
		}
	}
	c.mu.Unlock()

	if len(stale) == 0 {
		return nil
	}

	if err := c.store.DeleteByURLs(ctx, stale); err != nil {
		return err
	}
	metrics.PrunedTotal.Add(float64(len(stale)))
	return nil
}

// rejectHref implements the href-filtering rules of §4.6 step 3.
func rejectHref(href string) bool {
	if href == "" || href == "./" {
		return true
	}
	if strings.HasPrefix(href, "?") {
		return true
	}
	if strings.Contains(href, "://") {
		return true
	}
	if strings.HasPrefix(href, "/") {
		return true
	}
	if strings.Contains(href, "..") {
		return true
	}
	return false
}

func pathLeaf(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// pathSegments derives group and platform from the path segments
// between the archive root and the file leaf.
func pathSegments(root, file *url.URL) (group, platform string) {
	rootSegs := strings.Split(strings.Trim(root.Path, "/"), "/")
	fileSegs := strings.Split(strings.Trim(file.Path, "/"), "/")

	if len(fileSegs) <= len(rootSegs) {
		return "", ""
	}
	extra := fileSegs[len(rootSegs) : len(fileSegs)-1]

	switch len(extra) {
	case 0:
		return "", ""
	case 1:
		// segment[0] is group; platform falls back to group when
		// segment[1] is absent (§3).
		return extra[0], extra[0]
	default:
		return extra[0], extra[1]
	}
}
