package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/sparkify/internal/models"
	"github.com/desertthunder/sparkify/internal/shared"
)

func newMockStore(t *testing.T, dialect shared.Dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, dialect), mock
}

func TestSQLStoreStatements(t *testing.T) {
	ctx := context.Background()

	t.Run("wraps each statement in a savepoint", func(t *testing.T) {
		store, mock := newMockStore(t, shared.Postgres)

		mock.ExpectBegin()
		mock.ExpectExec("^SAVEPOINT sparkify_row$").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`^INSERT INTO songs .* VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
			WithArgs("SO1", "Title", "AR1", 2004, 200.5).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("^RELEASE SAVEPOINT sparkify_row$").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.InsertSong(ctx, models.Song{SongID: "SO1", Title: "Title", ArtistID: "AR1", Year: 2004, Duration: 200.5}))
		require.NoError(t, tx.Commit(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rebinds placeholders for sqlite", func(t *testing.T) {
		store, mock := newMockStore(t, shared.SQLite)

		mock.ExpectBegin()
		mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`^INSERT INTO artists .* VALUES \(\?, \?, \?, \?, \?\)`).
			WithArgs("AR1", "Name", "", nil, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.InsertArtist(ctx, models.Artist{ArtistID: "AR1", Name: "Name"}))
		require.NoError(t, tx.Commit(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back to the savepoint on failure", func(t *testing.T) {
		store, mock := newMockStore(t, shared.Postgres)
		boom := errors.New("value too long")

		mock.ExpectBegin()
		mock.ExpectExec("^SAVEPOINT sparkify_row$").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("^INSERT INTO users").WillReturnError(boom)
		mock.ExpectExec("^ROLLBACK TO SAVEPOINT sparkify_row$").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("^RELEASE SAVEPOINT sparkify_row$").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("^SAVEPOINT sparkify_row$").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("^INSERT INTO time").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("^RELEASE SAVEPOINT sparkify_row$").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		tx, err := store.Begin(ctx)
		require.NoError(t, err)

		err = tx.UpsertUser(ctx, models.User{UserID: "1", Gender: "FF", Level: "free"})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrQueryFailure)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), StmtUpsertUser)

		entry, err := models.DecomposeMillis(1541121934796)
		require.NoError(t, err)
		require.NoError(t, tx.InsertTime(ctx, entry))

		require.NoError(t, tx.Commit(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lookup hit", func(t *testing.T) {
		store, mock := newMockStore(t, shared.Postgres)

		mock.ExpectBegin()
		mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("^SELECT s.song_id, a.artist_id").
			WithArgs("Title", "Artist", 200.5).
			WillReturnRows(sqlmock.NewRows([]string{"song_id", "artist_id"}).AddRow("SO1", "AR1"))
		mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		match, found, err := tx.LookupSongArtist(ctx, "Title", "Artist", 200.5)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, SongArtistMatch{SongID: "SO1", ArtistID: "AR1"}, match)
		require.NoError(t, tx.Rollback(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lookup miss is not an error", func(t *testing.T) {
		store, mock := newMockStore(t, shared.Postgres)

		mock.ExpectBegin()
		mock.ExpectExec("^SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("^SELECT s.song_id, a.artist_id").
			WillReturnRows(sqlmock.NewRows([]string{"song_id", "artist_id"}))
		mock.ExpectExec("^RELEASE SAVEPOINT").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		tx, err := store.Begin(ctx)
		require.NoError(t, err)
		match, found, err := tx.LookupSongArtist(ctx, "Nope", "Nobody", 1)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, match)
		require.NoError(t, tx.Commit(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		store, mock := newMockStore(t, shared.Postgres)
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		_, err := store.Begin(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
