// ABOUTME: This file defines the canonical game catalog record and its enrichment-state rules
// ABOUTME: Shared by the store, search index, crawler, and enrichment packages
package domain

import "time"

// Game is one row in the catalog store: a ROM file discovered in the
// archive, optionally enriched with metadata from an external provider.
type Game struct {
	ID           int64      `db:"id" json:"id"`
	DownloadURL  string     `db:"download_url" json:"download_url"`
	GameName     string     `db:"game_name" json:"game_name"`
	Filename     string     `db:"filename" json:"filename"`
	Platform     string     `db:"platform" json:"platform"`
	GroupName    string     `db:"group_name" json:"group_name"`
	Region       string     `db:"region" json:"region"`
	Size         string     `db:"size" json:"size"`
	Tags         []string   `db:"tags" json:"tags"`
	Description  *string    `db:"description" json:"description"`
	Rating       *float64   `db:"rating" json:"rating"`
	ReleaseDate  *time.Time `db:"release_date" json:"release_date"`
	Developer    *string    `db:"developer" json:"developer"`
	Publisher    *string    `db:"publisher" json:"publisher"`
	Genre        *string    `db:"genre" json:"genre"`
	Images       []string   `db:"images" json:"images"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Enriched reports I2: a record is enriched once description has been set,
// even to the empty-string "attempted, no hit" sentinel.
func (g *Game) Enriched() bool {
	return g.Description != nil
}

// EnrichmentFields carries the subset of Game columns that enrichment is
// allowed to write. Fields left nil are not updated.
type EnrichmentFields struct {
	Description *string
	Rating      *float64
	ReleaseDate *time.Time
	Developer   *string
	Publisher   *string
	Genre       *string
	Images      []string
}

// CrawledRecord is what the crawler (C5) produces per file leaf, before it
// has been assigned a store identity.
type CrawledRecord struct {
	DownloadURL string
	GameName    string
	Filename    string
	Platform    string
	GroupName   string
	Region      string
	Size        string
	Tags        []string

	// Eligible is the §4.2 non-game filter verdict for Filename. It governs
	// only enrichment-queue admission (NeedsEnrichment below); the record
	// is always upserted regardless of its value (S2).
	Eligible bool
}

// UpsertResult is what batchUpsert returns per input row, in input order.
type UpsertResult struct {
	ID          int64
	GameName    string
	Description *string
	Filename    string
}

// NeedsEnrichment implements the enrichment-queue decision of §4.6: the
// record requires a provider lookup when the run mode demands it
// regardless of prior state (or it has never been enriched), AND the
// filename clears the §4.2 non-game filter.
func (u *UpsertResult) NeedsEnrichment(cleanMode, eligible bool) bool {
	return eligible && (cleanMode || u.Description == nil)
}
