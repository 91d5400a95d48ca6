// ABOUTME: This file implements the full-text search index adapter (C3) against Meilisearch
// ABOUTME: Schema initialization and idempotent batched document upserts
package searchindex

import (
	"fmt"
	"log/slog"
	"time"

	"romarchive/domain"

	"github.com/meilisearch/meilisearch-go"
)

const indexUID = "games"

// Index wraps a Meilisearch client scoped to the games index.
type Index struct {
	client meilisearch.ServiceManager
	logger *slog.Logger
}

// New constructs an Index client against a Meilisearch host.
func New(host, apiKey string, logger *slog.Logger) *Index {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	return &Index{client: client, logger: logger}
}

// Init ensures the games index exists with the searchable, filterable,
// and sortable attributes required by the catalog search experience
// (§4.4). It is idempotent: safe to call on every pipeline run.
func (ix *Index) Init() error {
	idx := ix.client.Index(indexUID)

	if _, err := idx.FetchInfo(); err != nil {
		if _, createErr := ix.client.CreateIndex(&meilisearch.IndexConfig{
			Uid:        indexUID,
			PrimaryKey: "id",
		}); createErr != nil {
			return fmt.Errorf("create index: %w", createErr)
		}
	}

	searchable := []string{"game_name", "genre", "developer", "description", "tags"}
	if _, err := idx.UpdateSearchableAttributes(&searchable); err != nil {
		return fmt.Errorf("update searchable attributes: %w", err)
	}

	filterable := []string{"platform", "region", "tags", "genre"}
	if _, err := idx.UpdateFilterableAttributes(&filterable); err != nil {
		return fmt.Errorf("update filterable attributes: %w", err)
	}

	sortable := []string{"rating", "release_date"}
	if _, err := idx.UpdateSortableAttributes(&sortable); err != nil {
		return fmt.Errorf("update sortable attributes: %w", err)
	}

	return nil
}

// document is the wire shape sent to Meilisearch: release_date as
// YYYY-MM-DD, rating as a bare number, absent fields transmitted as null.
type document struct {
	ID          int64    `json:"id"`
	GameName    string   `json:"game_name"`
	Platform    string   `json:"platform"`
	GroupName   string   `json:"group_name"`
	Region      string   `json:"region"`
	Tags        []string `json:"tags"`
	Description *string  `json:"description"`
	Rating      *float64 `json:"rating"`
	ReleaseDate *string  `json:"release_date"`
	Developer   *string  `json:"developer"`
	Publisher   *string  `json:"publisher"`
	Genre       *string  `json:"genre"`
	Images      []string `json:"images"`
}

func toDocument(g domain.Game) document {
	doc := document{
		ID:          g.ID,
		GameName:    g.GameName,
		Platform:    g.Platform,
		GroupName:   g.GroupName,
		Region:      g.Region,
		Tags:        g.Tags,
		Description: g.Description,
		Rating:      g.Rating,
		Developer:   g.Developer,
		Publisher:   g.Publisher,
		Genre:       g.Genre,
		Images:      g.Images,
	}

	if g.ReleaseDate != nil {
		formatted := g.ReleaseDate.Format("2006-01-02")
		doc.ReleaseDate = &formatted
	}

	return doc
}

// AddDocuments upserts a batch of games by primary key (§4.4). A failed
// batch is logged and counted by the caller; it never fails the catalog
// writes that preceded it.
func (ix *Index) AddDocuments(docs []domain.Game) error {
	if len(docs) == 0 {
		return nil
	}

	payload := make([]document, len(docs))
	for i, g := range docs {
		payload[i] = toDocument(g)
	}

	task, err := ix.client.Index(indexUID).AddDocuments(payload, nil)
	if err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	ix.logger.Debug("submitted index batch", "task_uid", task.TaskUID, "documents", len(payload))
	return nil
}

// DeleteAllDocuments wipes the games index. Used by clean-mode runs (§4.8)
// before the crawl begins.
func (ix *Index) DeleteAllDocuments() error {
	if _, err := ix.client.Index(indexUID).DeleteAllDocuments(); err != nil {
		return fmt.Errorf("delete all documents: %w", err)
	}
	return nil
}

// WaitForTask blocks until Meilisearch finishes processing a task,
// polling its status every interval. AddDocuments does not call it.
func (ix *Index) WaitForTask(taskUID int64, interval time.Duration) (*meilisearch.Task, error) {
	return ix.client.WaitForTask(taskUID, interval)
}

// DocumentCount reports the number of documents currently in the games
// index, for the admin status surface (§6).
func (ix *Index) DocumentCount() (int64, error) {
	stats, err := ix.client.Index(indexUID).GetStats()
	if err != nil {
		return 0, fmt.Errorf("get index stats: %w", err)
	}
	return int64(stats.NumberOfDocuments), nil
}

// Health checks connectivity to the search engine, for the admin status
// surface (§6).
func (ix *Index) Health() error {
	if !ix.client.IsHealthy() {
		return fmt.Errorf("meilisearch reported unhealthy")
	}
	return nil
}
