// ABOUTME: This file implements the catalog store adapter (C2) against PostgreSQL
// ABOUTME: Batched upsert, selective update, bulk read, stale-row pruning, search-log append
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"romarchive/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxIface is the subset of pgxpool.Pool operations the store depends on,
// narrow enough that github.com/pashagolub/pgxmock/v4 can stand in for it
// in tests.
type PgxIface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var _ PgxIface = (*pgxpool.Pool)(nil)

// Store is the catalog store adapter (C2).
type Store struct {
	pool   PgxIface
	logger *slog.Logger
}

// New wraps an already-connected pool.
func New(pool PgxIface, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Connect opens a pgxpool connection pool sized for the crawl, enrich, and
// admin concurrency (§5), following the teacher's explicit pool-tuning
// style (MaxConns/MinConns/lifetimes set directly on the parsed config,
// plus a QueryTracer for slow-query logging).
func Connect(ctx context.Context, dsn string, maxConns, minConns int32, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.ConnConfig.Tracer = &QueryTracer{Logger: logger}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return pool, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// BatchUpsert inserts or updates N records in a single statement (§4.3).
// On a download_url conflict, only game_name/platform/group_name/region/
// size/tags are updated — enrichment fields are preserved (I4, S4).
// Returns one UpsertResult per input row, in input order.
func (s *Store) BatchUpsert(ctx context.Context, records []domain.CrawledRecord) ([]domain.UpsertResult, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO games (download_url, game_name, filename, platform, group_name, region, size, tags) VALUES `)

	args := make([]interface{}, 0, len(records)*8)
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args, r.DownloadURL, r.GameName, r.Filename, r.Platform, r.GroupName, r.Region, r.Size, r.Tags)
	}

	b.WriteString(`
		ON CONFLICT (download_url) DO UPDATE SET
			game_name  = EXCLUDED.game_name,
			platform   = EXCLUDED.platform,
			group_name = EXCLUDED.group_name,
			region     = EXCLUDED.region,
			size       = EXCLUDED.size,
			tags       = EXCLUDED.tags
		RETURNING id, game_name, description, filename
	`)

	rows, err := s.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("batch upsert games: %w", err)
	}
	defer rows.Close()

	results := make([]domain.UpsertResult, 0, len(records))
	for rows.Next() {
		var res domain.UpsertResult
		if err := rows.Scan(&res.ID, &res.GameName, &res.Description, &res.Filename); err != nil {
			return nil, fmt.Errorf("scan upsert result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upsert results: %w", err)
	}

	return results, nil
}

// fieldSetter builds one "column = $n" clause per non-nil enrichment
// field, in a stable order.
func fieldSetter(fields domain.EnrichmentFields) (clauses []string, args []interface{}) {
	add := func(col string, val interface{}) {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)+1))
		args = append(args, val)
	}

	if fields.Description != nil {
		add("description", *fields.Description)
	}
	if fields.Rating != nil {
		add("rating", *fields.Rating)
	}
	if fields.ReleaseDate != nil {
		add("release_date", *fields.ReleaseDate)
	}
	if fields.Developer != nil {
		add("developer", *fields.Developer)
	}
	if fields.Publisher != nil {
		add("publisher", *fields.Publisher)
	}
	if fields.Genre != nil {
		add("genre", *fields.Genre)
	}
	if fields.Images != nil {
		add("images", fields.Images)
	}

	return clauses, args
}

// UpdateFields sets the provided subset of enrichment fields on one
// record and returns the full resulting row (§4.3).
func (s *Store) UpdateFields(ctx context.Context, id int64, fields domain.EnrichmentFields) (*domain.Game, error) {
	clauses, args := fieldSetter(fields)
	if len(clauses) == 0 {
		return s.readOne(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE games SET %s WHERE id = $%d
		 RETURNING id, download_url, game_name, filename, platform, group_name, region, size, tags,
		           description, rating, release_date, developer, publisher, genre, images, created_at`,
		strings.Join(clauses, ", "), len(args))

	row := s.pool.QueryRow(ctx, query, args...)
	return scanGame(row)
}

func (s *Store) readOne(ctx context.Context, id int64) (*domain.Game, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, download_url, game_name, filename, platform, group_name, region, size, tags,
		       description, rating, release_date, developer, publisher, genre, images, created_at
		FROM games WHERE id = $1`, id)
	return scanGame(row)
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var g domain.Game
	if err := row.Scan(
		&g.ID, &g.DownloadURL, &g.GameName, &g.Filename, &g.Platform, &g.GroupName, &g.Region, &g.Size, &g.Tags,
		&g.Description, &g.Rating, &g.ReleaseDate, &g.Developer, &g.Publisher, &g.Genre, &g.Images, &g.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan game: %w", err)
	}
	return &g, nil
}

// ReadByIDs bulk-selects full rows by id (§4.3).
func (s *Store) ReadByIDs(ctx context.Context, ids []int64) ([]domain.Game, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, download_url, game_name, filename, platform, group_name, region, size, tags,
		       description, rating, release_date, developer, publisher, genre, images, created_at
		FROM games WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("read games by id: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// ReadAllURLs streams every download_url currently in the store, for
// stale-pruning comparison (§4.6).
func (s *Store) ReadAllURLs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT download_url FROM games`)
	if err != nil {
		return nil, fmt.Errorf("read all urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// DeleteByURLs bulk-deletes rows by download_url.
func (s *Store) DeleteByURLs(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM games WHERE download_url = ANY($1)`, urls)
	if err != nil {
		return fmt.Errorf("delete games by url: %w", err)
	}
	return nil
}

// DeleteAllGames wipes the catalog table. Used by clean-mode runs (§4.8)
// before the crawl begins.
func (s *Store) DeleteAllGames(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM games`)
	if err != nil {
		return fmt.Errorf("delete all games: %w", err)
	}
	return nil
}

// Ping checks connectivity to the catalog store, for the admin status
// surface (§6).
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CountGames returns the total row count in the catalog store, for the
// admin status surface (§6).
func (s *Store) CountGames(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM games`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return count, nil
}

// AppendSearchLog is best-effort: errors are logged, never raised to the
// caller (§4.3).
func (s *Store) AppendSearchLog(ctx context.Context, query string, results int) {
	_, err := s.pool.Exec(ctx, `INSERT INTO search_logs (query, results) VALUES ($1, $2)`,
		strings.ToLower(strings.TrimSpace(query)), results)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to append search log", "error", err)
	}
}
