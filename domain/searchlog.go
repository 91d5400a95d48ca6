package domain

import "time"

// SearchLogEntry is an append-only record of a catalog search query.
type SearchLogEntry struct {
	Query      string    `db:"query" json:"query"`
	Results    int       `db:"results" json:"results"`
	SearchedAt time.Time `db:"searched_at" json:"searched_at"`
}
