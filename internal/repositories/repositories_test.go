package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/sparkify/internal/models"
	"github.com/desertthunder/sparkify/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db, shared.SQLite); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func ptr[T any](v T) *T { return &v }

// withTx runs fn in a committed transaction.
func withTx(t *testing.T, store Store, fn func(tx Tx)) {
	t.Helper()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	fn(tx)
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

var (
	testSong   = models.Song{SongID: "SOSKGWX12AB0182951", Title: "-", ArtistID: "ARWUNH81187FB4CF20", Year: 0, Duration: 191.68}
	testArtist = models.Artist{ArtistID: "ARWUNH81187FB4CF20", Name: "Lionel Richie", Location: "New York, NY", Latitude: ptr(40.71455), Longitude: ptr(-74.00712)}
)

func TestSQLStore(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertSong is idempotent on song_id", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewSQLStore(db, shared.SQLite)

		for i := 0; i < 2; i++ {
			withTx(t, store, func(tx Tx) {
				if err := tx.InsertSong(ctx, testSong); err != nil {
					t.Fatalf("failed to insert song: %v", err)
				}
				if err := tx.InsertArtist(ctx, testArtist); err != nil {
					t.Fatalf("failed to insert artist: %v", err)
				}
			})
		}

		if n := countRows(t, db, "songs"); n != 1 {
			t.Errorf("expected 1 song, got %d", n)
		}
		if n := countRows(t, db, "artists"); n != 1 {
			t.Errorf("expected 1 artist, got %d", n)
		}

		var year int
		var duration float64
		if err := db.QueryRow("SELECT year, duration FROM songs WHERE song_id = ?", testSong.SongID).Scan(&year, &duration); err != nil {
			t.Fatalf("failed to read song: %v", err)
		}
		if year != 0 || duration != 191.68 {
			t.Errorf("unexpected song values year=%d duration=%v", year, duration)
		}
	})

	t.Run("InsertArtist stores null coordinates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewSQLStore(db, shared.SQLite)

		withTx(t, store, func(tx Tx) {
			if err := tx.InsertArtist(ctx, models.Artist{ArtistID: "AR1", Name: "Nobody"}); err != nil {
				t.Fatalf("failed to insert artist: %v", err)
			}
		})

		var lat, lon sql.NullFloat64
		if err := db.QueryRow("SELECT latitude, longitude FROM artists WHERE artist_id = 'AR1'").Scan(&lat, &lon); err != nil {
			t.Fatalf("failed to read artist: %v", err)
		}
		if lat.Valid || lon.Valid {
			t.Errorf("expected NULL coordinates, got %v %v", lat, lon)
		}
	})

	t.Run("UpsertUser keeps the latest level", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewSQLStore(db, shared.SQLite)

		withTx(t, store, func(tx Tx) {
			for _, level := range []string{"free", "paid"} {
				u := models.User{UserID: "15", FirstName: "Lily", LastName: "Koch", Gender: "F", Level: level}
				if err := tx.UpsertUser(ctx, u); err != nil {
					t.Fatalf("failed to upsert user: %v", err)
				}
			}
		})

		if n := countRows(t, db, "users"); n != 1 {
			t.Errorf("expected 1 user, got %d", n)
		}
		var level string
		if err := db.QueryRow("SELECT level FROM users WHERE user_id = '15'").Scan(&level); err != nil {
			t.Fatalf("failed to read user: %v", err)
		}
		if level != "paid" {
			t.Errorf("expected level paid, got %s", level)
		}
	})

	t.Run("InsertTime is idempotent on start_time", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewSQLStore(db, shared.SQLite)

		entry, err := models.DecomposeMillis(1541121934796)
		if err != nil {
			t.Fatalf("failed to decompose: %v", err)
		}

		withTx(t, store, func(tx Tx) {
			for i := 0; i < 3; i++ {
				if err := tx.InsertTime(ctx, entry); err != nil {
					t.Fatalf("failed to insert time: %v", err)
				}
			}
		})

		if n := countRows(t, db, "time"); n != 1 {
			t.Errorf("expected 1 time row, got %d", n)
		}

		var start time.Time
		var hour, month int
		if err := db.QueryRow("SELECT start_time, hour, month FROM time").Scan(&start, &hour, &month); err != nil {
			t.Fatalf("failed to read time: %v", err)
		}
		if !start.Equal(entry.StartTime) || hour != 1 || month != 11 {
			t.Errorf("unexpected time row start=%s hour=%d month=%d", start, hour, month)
		}
	})

	t.Run("InsertSongplay with unresolved references", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewSQLStore(db, shared.SQLite)

		play := models.Songplay{
			StartTime: time.UnixMilli(1541121934796).UTC(),
			UserID:    "15",
			Level:     "paid",
			SessionID: 818,
			Location:  "Chicago, IL",
			UserAgent: "Mozilla/5.0",
		}
		withTx(t, store, func(tx Tx) {
			if err := tx.InsertSongplay(ctx, play); err != nil {
				t.Fatalf("failed to insert songplay: %v", err)
			}
		})

		var songID, artistID sql.NullString
		var session int
		if err := db.QueryRow("SELECT song_id, artist_id, session_id FROM songplays").Scan(&songID, &artistID, &session); err != nil {
			t.Fatalf("failed to read songplay: %v", err)
		}
		if songID.Valid || artistID.Valid {
			t.Errorf("expected NULL references, got %v %v", songID, artistID)
		}
		if session != 818 {
			t.Errorf("expected session 818, got %d", session)
		}
	})

	t.Run("LookupSongArtist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewSQLStore(db, shared.SQLite)

		withTx(t, store, func(tx Tx) {
			if err := tx.InsertSong(ctx, testSong); err != nil {
				t.Fatalf("failed to insert song: %v", err)
			}
			if err := tx.InsertArtist(ctx, testArtist); err != nil {
				t.Fatalf("failed to insert artist: %v", err)
			}
		})

		withTx(t, store, func(tx Tx) {
			match, found, err := tx.LookupSongArtist(ctx, "-", "Lionel Richie", 191.68)
			if err != nil {
				t.Fatalf("lookup failed: %v", err)
			}
			if !found || match.SongID != testSong.SongID || match.ArtistID != testArtist.ArtistID {
				t.Errorf("unexpected match %+v found=%v", match, found)
			}

			_, found, err = tx.LookupSongArtist(ctx, "Unknown Track", "Unknown Artist", 200.0)
			if err != nil {
				t.Fatalf("lookup miss should not error: %v", err)
			}
			if found {
				t.Error("expected lookup miss")
			}

			_, found, err = tx.LookupSongArtist(ctx, "-", "Lionel Richie", 191.0)
			if err != nil || found {
				t.Errorf("duration must match exactly, found=%v err=%v", found, err)
			}
		})
	})

	t.Run("failed statement does not abort the transaction", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := db.Exec("DROP TABLE users"); err != nil {
			t.Fatalf("failed to drop users: %v", err)
		}
		store := NewSQLStore(db, shared.SQLite)

		withTx(t, store, func(tx Tx) {
			err := tx.UpsertUser(ctx, models.User{UserID: "1", Level: "free"})
			if !errors.Is(err, shared.ErrQueryFailure) {
				t.Fatalf("expected ErrQueryFailure, got %v", err)
			}
			if err := tx.InsertSong(ctx, testSong); err != nil {
				t.Fatalf("insert after failure should succeed: %v", err)
			}
		})

		if n := countRows(t, db, "songs"); n != 1 {
			t.Errorf("expected song committed after row failure, got %d", n)
		}
	})

	t.Run("Rollback discards the file", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		store := NewSQLStore(db, shared.SQLite)

		tx, err := store.Begin(ctx)
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		if err := tx.InsertSong(ctx, testSong); err != nil {
			t.Fatalf("failed to insert song: %v", err)
		}
		if err := tx.Rollback(ctx); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}
		if err := tx.Rollback(ctx); err != nil {
			t.Errorf("second rollback should be a no-op, got %v", err)
		}

		if n := countRows(t, db, "songs"); n != 0 {
			t.Errorf("expected no songs after rollback, got %d", n)
		}
	})
}
