package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/sparkify/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxStore implements [Store] over a [pgxpool.Pool].
//
// Row isolation uses pgx pseudo-nested transactions, which PostgreSQL executes as savepoints.
type PgxStore struct {
	pool *pgxpool.Pool
}

// NewPgxStore creates a new PgxStore with the given pool.
func NewPgxStore(pool *pgxpool.Pool) *PgxStore {
	return &PgxStore{pool: pool}
}

// Begin starts a transaction for one file.
func (s *PgxStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgxTx{tx: tx}, nil
}

// Close closes the pool.
func (s *PgxStore) Close() error {
	s.pool.Close()
	return nil
}

// pgxTx implements [Tx] for a [pgx.Tx].
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// savepoint runs fn inside a nested transaction that is committed on success and rolled back on failure.
func (t *pgxTx) savepoint(ctx context.Context, stmt string, fn func(pgx.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return queryError(stmt, err)
	}

	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return queryError(stmt, errors.Join(err, rbErr))
		}
		return queryError(stmt, err)
	}

	if err := sp.Commit(ctx); err != nil {
		return queryError(stmt, err)
	}
	return nil
}

func (t *pgxTx) exec(ctx context.Context, stmt, query string, args ...any) error {
	return t.savepoint(ctx, stmt, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, query, args...)
		return err
	})
}

func (t *pgxTx) InsertSong(ctx context.Context, song models.Song) error {
	return t.exec(ctx, StmtInsertSong, insertSongQuery, songArgs(song)...)
}

func (t *pgxTx) InsertArtist(ctx context.Context, artist models.Artist) error {
	return t.exec(ctx, StmtInsertArtist, insertArtistQuery, artistArgs(artist)...)
}

func (t *pgxTx) InsertTime(ctx context.Context, entry models.TimeEntry) error {
	return t.exec(ctx, StmtInsertTime, insertTimeQuery, timeArgs(entry)...)
}

func (t *pgxTx) UpsertUser(ctx context.Context, user models.User) error {
	return t.exec(ctx, StmtUpsertUser, upsertUserQuery, userArgs(user)...)
}

func (t *pgxTx) InsertSongplay(ctx context.Context, play models.Songplay) error {
	return t.exec(ctx, StmtInsertSongplay, insertSongplayQuery, songplayArgs(play)...)
}

func (t *pgxTx) LookupSongArtist(ctx context.Context, title, artistName string, duration float64) (SongArtistMatch, bool, error) {
	var match SongArtistMatch
	found := false

	err := t.savepoint(ctx, StmtLookupSongArtist, func(sp pgx.Tx) error {
		err := sp.QueryRow(ctx, lookupSongArtistQuery, title, artistName, duration).Scan(&match.SongID, &match.ArtistID)
		if errors.Is(err, pgx.ErrNoRows) {
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
