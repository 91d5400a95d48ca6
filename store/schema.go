package store

import "context"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS games (
	id             BIGSERIAL PRIMARY KEY,
	download_url   TEXT NOT NULL UNIQUE,
	game_name      TEXT NOT NULL,
	filename       TEXT NOT NULL,
	platform       TEXT NOT NULL,
	group_name     TEXT NOT NULL,
	region         TEXT NOT NULL DEFAULT '',
	size           TEXT NOT NULL DEFAULT '',
	tags           TEXT[] NOT NULL DEFAULT '{}',
	description    TEXT,
	rating         NUMERIC(3,2),
	release_date   DATE,
	developer      TEXT,
	publisher      TEXT,
	genre          TEXT,
	images         TEXT[] NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_games_platform   ON games (platform);
CREATE INDEX IF NOT EXISTS idx_games_group_name ON games (group_name);

CREATE TABLE IF NOT EXISTS search_logs (
	query       TEXT NOT NULL,
	results     INTEGER NOT NULL,
	searched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_search_logs_searched_at ON search_logs (searched_at);
CREATE INDEX IF NOT EXISTS idx_search_logs_query       ON search_logs (query);
`

const pruneSearchLogsSQL = `DELETE FROM search_logs WHERE searched_at < now() - interval '1 year'`

// Init ensures the schema is present and prunes search_logs rows older
// than one year, per §4.3.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, pruneSearchLogsSQL); err != nil {
		return err
	}

	return nil
}
