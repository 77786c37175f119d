// package repositories provides persistence for songs, artists, users, time and songplays.
package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/sparkify/internal/models"
	"github.com/desertthunder/sparkify/internal/shared"
)

// Statement names used in errors and logs.
const (
	StmtInsertSong       = "insert-song"
	StmtInsertArtist     = "insert-artist"
	StmtInsertTime       = "insert-time"
	StmtUpsertUser       = "upsert-user"
	StmtInsertSongplay   = "insert-songplay"
	StmtLookupSongArtist = "lookup-song-artist"
)

// Statement text in PostgreSQL placeholder form; [shared.Dialect.Rebind] adapts it for SQLite.
const (
	insertSongQuery = `
		INSERT INTO songs (song_id, title, artist_id, year, duration)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (song_id) DO NOTHING
	`

	insertArtistQuery = `
		INSERT INTO artists (artist_id, name, location, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (artist_id) DO NOTHING
	`

	insertTimeQuery = `
		INSERT INTO time (start_time, hour, day, week, month, year, weekday)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (start_time) DO NOTHING
	`

	upsertUserQuery = `
		INSERT INTO users (user_id, first_name, last_name, gender, level)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET first_name = excluded.first_name,
			last_name = excluded.last_name,
			gender = excluded.gender,
			level = excluded.level
	`

	insertSongplayQuery = `
		INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	lookupSongArtistQuery = `
		SELECT s.song_id, a.artist_id
		FROM songs s
		JOIN artists a ON s.artist_id = a.artist_id
		WHERE s.title = $1 AND a.name = $2 AND s.duration = $3
		LIMIT 1
	`
)

// SongArtistMatch is the catalog entry a logged play resolved to.
type SongArtistMatch struct {
	SongID   string
	ArtistID string
}

// Writer is the set of parameterized statements the loaders run.
type Writer interface {
	InsertSong(ctx context.Context, song models.Song) error
	InsertArtist(ctx context.Context, artist models.Artist) error
	InsertTime(ctx context.Context, entry models.TimeEntry) error
	UpsertUser(ctx context.Context, user models.User) error
	InsertSongplay(ctx context.Context, play models.Songplay) error

	// LookupSongArtist finds the song and artist matching a logged play. found is false on a miss, which is not an error.
	LookupSongArtist(ctx context.Context, title, artistName string, duration float64) (match SongArtistMatch, found bool, err error)
}

// Tx is a unit of work covering one input file.
type Tx interface {
	Writer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens units of work against the destination database.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

func songArgs(s models.Song) []any {
	return []any{s.SongID, s.Title, s.ArtistID, s.Year, s.Duration}
}

func artistArgs(a models.Artist) []any {
	return []any{a.ArtistID, a.Name, a.Location, a.Latitude, a.Longitude}
}

func timeArgs(t models.TimeEntry) []any {
	return []any{t.StartTime.UTC(), t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday}
}

func userArgs(u models.User) []any {
	return []any{u.UserID, u.FirstName, u.LastName, u.Gender, u.Level}
}

func songplayArgs(p models.Songplay) []any {
	return []any{p.StartTime.UTC(), p.UserID, p.Level, p.SongID, p.ArtistID, p.SessionID, p.Location, p.UserAgent}
}

// queryError wraps a statement failure with [shared.ErrQueryFailure] and the statement name.
func queryError(stmt string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrQueryFailure, stmt, err)
}
