package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"romarchive/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBatchUpsert_SingleRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	rows := pgxmock.NewRows([]string{"id", "game_name", "description", "filename"}).
		AddRow(int64(1), "Super Mario Bros.", (*string)(nil), "Super Mario Bros. (USA).nes")

	mock.ExpectQuery("INSERT INTO games").
		WillReturnRows(rows)

	results, err := s.BatchUpsert(context.Background(), []domain.CrawledRecord{
		{
			DownloadURL: "https://archive.example/roms/smb.nes",
			GameName:    "Super Mario Bros.",
			Filename:    "Super Mario Bros. (USA).nes",
			Platform:    "nes",
			GroupName:   "",
			Region:      "USA",
			Size:        "40K",
			Tags:        []string{"USA"},
		},
	})

	assert.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)
	assert.True(t, results[0].NeedsEnrichment(false, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchUpsert_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	results, err := s.BatchUpsert(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchUpsert_PreservesEnrichment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	existingDescription := "An iconic platformer."
	rows := pgxmock.NewRows([]string{"id", "game_name", "description", "filename"}).
		AddRow(int64(7), "Super Mario Bros.", &existingDescription, "Super Mario Bros. (USA).nes")

	mock.ExpectQuery("INSERT INTO games").
		WillReturnRows(rows)

	results, err := s.BatchUpsert(context.Background(), []domain.CrawledRecord{
		{DownloadURL: "https://archive.example/roms/smb.nes", GameName: "Super Mario Bros.", Filename: "Super Mario Bros. (USA).nes", Platform: "nes", Region: "USA"},
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].NeedsEnrichment(false, true))
	assert.True(t, results[0].NeedsEnrichment(true, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFields_PartialUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	description := "An iconic platformer."
	rating := 4.5
	releaseDate := time.Date(1985, time.September, 13, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"id", "download_url", "game_name", "filename", "platform", "group_name", "region", "size", "tags",
		"description", "rating", "release_date", "developer", "publisher", "genre", "images", "created_at",
	}).AddRow(
		int64(1), "https://archive.example/roms/smb.nes", "Super Mario Bros.", "Super Mario Bros. (USA).nes",
		"nes", "", "USA", "40K", []string{"USA"},
		&description, &rating, &releaseDate, (*string)(nil), (*string)(nil), (*string)(nil), []string{}, time.Now(),
	)

	mock.ExpectQuery("UPDATE games SET").
		WillReturnRows(rows)

	result, err := s.UpdateFields(context.Background(), 1, domain.EnrichmentFields{
		Description: &description,
		Rating:      &rating,
		ReleaseDate: &releaseDate,
	})

	require.NoError(t, err)
	assert.True(t, result.Enriched())
	assert.Equal(t, "Super Mario Bros.", result.GameName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFields_NoFieldsReadsRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	rows := pgxmock.NewRows([]string{
		"id", "download_url", "game_name", "filename", "platform", "group_name", "region", "size", "tags",
		"description", "rating", "release_date", "developer", "publisher", "genre", "images", "created_at",
	}).AddRow(
		int64(2), "https://archive.example/roms/other.nes", "Other Game", "Other Game.nes",
		"nes", "", "", "", []string{},
		(*string)(nil), (*float64)(nil), (*time.Time)(nil), (*string)(nil), (*string)(nil), (*string)(nil), []string{}, time.Now(),
	)

	mock.ExpectQuery("SELECT id, download_url").
		WillReturnRows(rows)

	result, err := s.UpdateFields(context.Background(), 2, domain.EnrichmentFields{})

	require.NoError(t, err)
	assert.False(t, result.Enriched())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadAllURLs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	rows := pgxmock.NewRows([]string{"download_url"}).
		AddRow("https://archive.example/roms/a.nes").
		AddRow("https://archive.example/roms/b.nes")

	mock.ExpectQuery("SELECT download_url FROM games").
		WillReturnRows(rows)

	urls, err := s.ReadAllURLs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://archive.example/roms/a.nes",
		"https://archive.example/roms/b.nes",
	}, urls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByURLs_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	err = s.DeleteByURLs(context.Background(), nil)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByURLs_ExecutesDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	mock.ExpectExec("DELETE FROM games WHERE download_url = ANY").
		WithArgs([]string{"https://archive.example/roms/stale.nes"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = s.DeleteByURLs(context.Background(), []string{"https://archive.example/roms/stale.nes"})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendSearchLog_NeverReturnsError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	mock.ExpectExec("INSERT INTO search_logs").
		WithArgs("mario", 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s.AppendSearchLog(context.Background(), "Mario ", 3)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendSearchLog_SwallowsError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := New(mock, testLogger())

	mock.ExpectExec("INSERT INTO search_logs").
		WillReturnError(assert.AnError)

	s.AppendSearchLog(context.Background(), "broken", 0)

	assert.NoError(t, mock.ExpectationsWereMet())
}
