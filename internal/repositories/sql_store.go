package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/sparkify/internal/models"
	"github.com/desertthunder/sparkify/internal/shared"
)

const savepointName = "sparkify_row"

// SQLStore implements [Store] over [database/sql].
type SQLStore struct {
	db      *sql.DB
	dialect shared.Dialect
}

// NewSQLStore creates a new SQLStore speaking the given dialect over db.
func NewSQLStore(db *sql.DB, dialect shared.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Begin starts a transaction for one file.
func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx, dialect: s.dialect}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// sqlTx implements [Tx] for a [sql.Tx].
type sqlTx struct {
	tx      *sql.Tx
	dialect shared.Dialect
}

func (t *sqlTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// savepoint runs fn between SAVEPOINT and RELEASE, rolling back to the savepoint when fn fails.
func (t *sqlTx) savepoint(ctx context.Context, stmt string, fn func() error) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return queryError(stmt, err)
	}

	if err := fn(); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
			return queryError(stmt, errors.Join(err, rbErr))
		}
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName); relErr != nil {
			return queryError(stmt, errors.Join(err, relErr))
		}
		return queryError(stmt, err)
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return queryError(stmt, err)
	}
	return nil
}

func (t *sqlTx) exec(ctx context.Context, stmt, query string, args ...any) error {
	return t.savepoint(ctx, stmt, func() error {
		_, err := t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...)
		return err
	})
}

func (t *sqlTx) InsertSong(ctx context.Context, song models.Song) error {
	return t.exec(ctx, StmtInsertSong, insertSongQuery, songArgs(song)...)
}

func (t *sqlTx) InsertArtist(ctx context.Context, artist models.Artist) error {
	return t.exec(ctx, StmtInsertArtist, insertArtistQuery, artistArgs(artist)...)
}

func (t *sqlTx) InsertTime(ctx context.Context, entry models.TimeEntry) error {
	return t.exec(ctx, StmtInsertTime, insertTimeQuery, timeArgs(entry)...)
}

func (t *sqlTx) UpsertUser(ctx context.Context, user models.User) error {
	return t.exec(ctx, StmtUpsertUser, upsertUserQuery, userArgs(user)...)
}

func (t *sqlTx) InsertSongplay(ctx context.Context, play models.Songplay) error {
	return t.exec(ctx, StmtInsertSongplay, insertSongplayQuery, songplayArgs(play)...)
}

func (t *sqlTx) LookupSongArtist(ctx context.Context, title, artistName string, duration float64) (SongArtistMatch, bool, error) {
	var match SongArtistMatch
	found := false

	err := t.savepoint(ctx, StmtLookupSongArtist, func() error {
		row := t.tx.QueryRowContext(ctx, t.dialect.Rebind(lookupSongArtistQuery), title, artistName, duration)
		err := row.Scan(&match.SongID, &match.ArtistID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return SongArtistMatch{}, false, err
	}

	return match, found, nil
}
