package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podreplay/internal/entity"
	"podreplay/internal/infra/adapter/persistence/postgres"
)

func TestFeedStore_GetByURI_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, uri, first_fetched, last_fetched, etag`)).
		WithArgs("https://example.com/feed.xml").
		WillReturnError(sql.ErrNoRows)

	store := postgres.NewFeedStore(db)
	_, err = store.GetByURI(context.Background(), "https://example.com/feed.xml")
	assert.ErrorIs(t, err, entity.ErrFeedNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedStore_GetByURI_Found(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	etag := `"abc"`
	rows := sqlmock.NewRows([]string{"id", "uri", "first_fetched", "last_fetched", "etag"}).
		AddRow(int64(1), "https://example.com/feed.xml", now, now, etag)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, uri, first_fetched, last_fetched, etag`)).
		WithArgs("https://example.com/feed.xml").
		WillReturnRows(rows)

	store := postgres.NewFeedStore(db)
	got, err := store.GetByURI(context.Background(), "https://example.com/feed.xml")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	require.NotNil(t, got.ETag)
	assert.Equal(t, etag, *got.ETag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedStore_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	etag := `"xyz"`
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO feeds`)).
		WithArgs("https://example.com/feed.xml", now, &etag).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	store := postgres.NewFeedStore(db)
	id, err := store.Upsert(context.Background(), "https://example.com/feed.xml", now, &etag)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedStore_ListAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "uri", "first_fetched", "last_fetched", "etag"}).
		AddRow(int64(1), "https://a.example/feed.xml", now, now, nil).
		AddRow(int64(2), "https://b.example/feed.xml", now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, uri, first_fetched, last_fetched, etag FROM feeds`)).
		WillReturnRows(rows)

	store := postgres.NewFeedStore(db)
	got, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedStore_AppendBatch_Empty(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := postgres.NewFeedStore(db)
	assert.NoError(t, store.AppendBatch(context.Background(), nil))
}

func TestFeedStore_AppendBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	published := now.Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO entries`)).
		WithArgs("item-1", int64(3), now, published).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := postgres.NewFeedStore(db)
	err = store.AppendBatch(context.Background(), []entity.CachedEntry{
		{ID: "item-1", FeedID: 3, Noticed: now, Published: &published},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedStore_History(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "feed_id", "noticed", "published"}).
		AddRow("a", int64(3), now, now).
		AddRow("b", int64(3), now, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM entries`)).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	store := postgres.NewFeedStore(db)
	got, err := store.History(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Nil(t, got[1].Published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedStore_LatestByFeed_KeepsMostRecentNotice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	older := time.Now().Add(-time.Hour).UTC()
	newer := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "feed_id", "noticed", "published"}).
		AddRow("a", int64(3), older, older).
		AddRow("a", int64(3), newer, newer)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM entries`)).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	store := postgres.NewFeedStore(db)
	got, err := store.LatestByFeed(context.Background(), 3)
	require.NoError(t, err)
	require.Contains(t, got, "a")
	assert.True(t, got["a"].Noticed.Equal(newer))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedStore_GetByURI_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, uri, first_fetched, last_fetched, etag`)).
		WithArgs("https://example.com/feed.xml").
		WillReturnError(errors.New("connection reset"))

	store := postgres.NewFeedStore(db)
	_, err = store.GetByURI(context.Background(), "https://example.com/feed.xml")
	assert.ErrorIs(t, err, entity.ErrDatabase)
	assert.NoError(t, mock.ExpectationsWereMet())
}
