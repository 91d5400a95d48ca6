// ABOUTME: This file implements the pipeline's observable run state
// ABOUTME: Counters and logs are written by the crawler and enrich workers, read by admin handlers
package domain

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a pipeline run.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

const logRingCapacity = 1000

// PipelineState is the process-wide, in-memory record of the current or
// most recent pipeline run. Mutated by the crawler and enrich workers
// under a single mutex, read freely by admin handlers. No field ordering
// is guaranteed across fields other than Status transitions.
type PipelineState struct {
	mu sync.RWMutex

	status    Status
	mode      Mode
	startedAt time.Time
	endedAt   time.Time

	scrapeTotal int
	scrapeNew   int
	queueSize   int
	enriched    int
	indexed     int

	scrapeComplete bool
	cancelled      bool

	logs []string
}

// NewPipelineState returns a state in the idle position.
func NewPipelineState() *PipelineState {
	return &PipelineState{status: StatusIdle}
}

// Reset reinitializes all fields for a new run. Must be called before the
// crawler and enrich workers start.
func (s *PipelineState) Reset(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusRunning
	s.mode = mode
	s.startedAt = time.Now().UTC()
	s.endedAt = time.Time{}
	s.scrapeTotal = 0
	s.scrapeNew = 0
	s.queueSize = 0
	s.enriched = 0
	s.indexed = 0
	s.scrapeComplete = false
	s.cancelled = false
	s.logs = nil
}

// Finish records the terminal status and end time of a run.
func (s *PipelineState) Finish(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	s.endedAt = time.Now().UTC()
}

// Cancel sets the cooperative cancellation flag. Idempotent.
func (s *PipelineState) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// Cancelled reports whether cancellation has been requested.
func (s *PipelineState) Cancelled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled
}

// IsRunning reports whether a run is currently in progress.
func (s *PipelineState) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusRunning
}

// SetScrapeComplete marks that the crawl (including final flush and
// pruning) has finished.
func (s *PipelineState) SetScrapeComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrapeComplete = true
}

// ScrapeComplete reports whether the crawl has finished.
func (s *PipelineState) ScrapeComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scrapeComplete
}

// AddScraped increments the scrape counters.
func (s *PipelineState) AddScraped(total, new int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrapeTotal += total
	s.scrapeNew += new
}

// SetQueueSize records the current enrichment-queue depth.
func (s *PipelineState) SetQueueSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueSize = n
}

// AddEnriched increments the enriched-record counter.
func (s *PipelineState) AddEnriched(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enriched += n
}

// AddIndexed increments the indexed-document counter.
func (s *PipelineState) AddIndexed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed += n
}

// Log appends a line to the bounded log ring, dropping the oldest line
// once capacity is reached.
func (s *PipelineState) Log(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, line)
	if len(s.logs) > logRingCapacity {
		s.logs = s.logs[len(s.logs)-logRingCapacity:]
	}
}

// Snapshot is the read-only view returned to admin callers.
type Snapshot struct {
	Status         Status    `json:"status"`
	Mode           Mode      `json:"mode"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
	ScrapeTotal    int       `json:"scrape_total"`
	ScrapeNew      int       `json:"scrape_new"`
	QueueSize      int       `json:"queue_size"`
	Enriched       int       `json:"enriched"`
	Indexed        int       `json:"indexed"`
	ScrapeComplete bool      `json:"scrape_complete"`
	Cancelled      bool      `json:"cancelled"`
	Logs           []string  `json:"logs"`
}

// Snapshot returns a consistent-per-field copy of the state for an admin
// handler to serialize.
func (s *PipelineState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]string, len(s.logs))
	copy(logs, s.logs)

	return Snapshot{
		Status:         s.status,
		Mode:           s.mode,
		StartedAt:      s.startedAt,
		EndedAt:        s.endedAt,
		ScrapeTotal:    s.scrapeTotal,
		ScrapeNew:      s.scrapeNew,
		QueueSize:      s.queueSize,
		Enriched:       s.enriched,
		Indexed:        s.indexed,
		ScrapeComplete: s.scrapeComplete,
		Cancelled:      s.cancelled,
		Logs:           logs,
	}
}
