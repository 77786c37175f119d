package testing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/desertthunder/sparkify/internal/models"
	"github.com/desertthunder/sparkify/internal/repositories"
	"github.com/desertthunder/sparkify/internal/shared"
)

// MemoryStore is an in-memory [repositories.Store] with the same conflict rules as the SQL schema.
//
// Writes are staged per transaction and applied on Commit. Failures can be injected per statement and key
// with [MemoryStore.FailOn]; a failed statement changes nothing and the transaction stays usable.
type MemoryStore struct {
	mu sync.Mutex

	Songs     map[string]models.Song
	Artists   map[string]models.Artist
	Users     map[string]models.User
	Times     map[int64]models.TimeEntry
	Songplays []models.Songplay

	BeginErr  error
	CommitErr error

	Begins    int
	Commits   int
	Rollbacks int
	Lookups   int
	Closed    bool

	failures []failure
}

type failure struct {
	stmt string
	key  string
	err  error
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Songs:   make(map[string]models.Song),
		Artists: make(map[string]models.Artist),
		Users:   make(map[string]models.User),
		Times:   make(map[int64]models.TimeEntry),
	}
}

// FailOn makes stmt fail with err whenever its key matches. An empty key matches every call.
//
// Keys are the song id, artist id, start time in epoch milliseconds, user id,
// songplay user id and looked up title respectively.
func (s *MemoryStore) FailOn(stmt, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{stmt: stmt, key: key, err: err})
}

func (s *MemoryStore) Begin(ctx context.Context) (repositories.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	s.Begins++
	return &memoryTx{store: s, staged: newStaged()}, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

func (s *MemoryStore) injected(stmt, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.failures {
		if f.stmt == stmt && (f.key == "" || f.key == key) {
			return fmt.Errorf("%w: %s: %w", shared.ErrQueryFailure, stmt, f.err)
		}
	}
	return nil
}

type staged struct {
	songs     map[string]models.Song
	artists   map[string]models.Artist
	users     map[string]models.User
	times     map[int64]models.TimeEntry
	songplays []models.Songplay
}

func newStaged() *staged {
	return &staged{
		songs:   make(map[string]models.Song),
		artists: make(map[string]models.Artist),
		users:   make(map[string]models.User),
		times:   make(map[int64]models.TimeEntry),
	}
}

type memoryTx struct {
	store  *MemoryStore
	staged *staged
	done   bool
}

var errTxDone = errors.New("transaction already finished")

func (t *memoryTx) check(stmt, key string) error {
	if t.done {
		return fmt.Errorf("%w: %s: %w", shared.ErrQueryFailure, stmt, errTxDone)
	}
	return t.store.injected(stmt, key)
}

func (t *memoryTx) InsertSong(ctx context.Context, song models.Song) error {
	if err := t.check(repositories.StmtInsertSong, song.SongID); err != nil {
		return err
	}
	t.store.mu.Lock()
	_, exists := t.store.Songs[song.SongID]
	t.store.mu.Unlock()
	if _, staged := t.staged.songs[song.SongID]; !exists && !staged {
		t.staged.songs[song.SongID] = song
	}
	return nil
}

func (t *memoryTx) InsertArtist(ctx context.Context, artist models.Artist) error {
	if err := t.check(repositories.StmtInsertArtist, artist.ArtistID); err != nil {
		return err
	}
	t.store.mu.Lock()
	_, exists := t.store.Artists[artist.ArtistID]
	t.store.mu.Unlock()
	if _, staged := t.staged.artists[artist.ArtistID]; !exists && !staged {
		t.staged.artists[artist.ArtistID] = artist
	}
	return nil
}

func (t *memoryTx) InsertTime(ctx context.Context, entry models.TimeEntry) error {
	ms := entry.StartTime.UnixMilli()
	if err := t.check(repositories.StmtInsertTime, strconv.FormatInt(ms, 10)); err != nil {
		return err
	}
	t.store.mu.Lock()
	_, exists := t.store.Times[ms]
	t.store.mu.Unlock()
	if _, staged := t.staged.times[ms]; !exists && !staged {
		t.staged.times[ms] = entry
	}
	return nil
}

func (t *memoryTx) UpsertUser(ctx context.Context, user models.User) error {
	if err := t.check(repositories.StmtUpsertUser, user.UserID); err != nil {
		return err
	}
	t.staged.users[user.UserID] = user
	return nil
}

func (t *memoryTx) InsertSongplay(ctx context.Context, play models.Songplay) error {
	if err := t.check(repositories.StmtInsertSongplay, play.UserID); err != nil {
		return err
	}
	t.staged.songplays = append(t.staged.songplays, play)
	return nil
}

func (t *memoryTx) LookupSongArtist(ctx context.Context, title, artistName string, duration float64) (repositories.SongArtistMatch, bool, error) {
	if err := t.check(repositories.StmtLookupSongArtist, title); err != nil {
		return repositories.SongArtistMatch{}, false, err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.Lookups++

	songs := make([]models.Song, 0, len(t.store.Songs)+len(t.staged.songs))
	for _, song := range t.store.Songs {
		songs = append(songs, song)
	}
	for _, song := range t.staged.songs {
		songs = append(songs, song)
	}
	slices.SortFunc(songs, func(a, b models.Song) int {
		switch {
		case a.SongID < b.SongID:
			return -1
		case a.SongID > b.SongID:
			return 1
		}
		return 0
	})

	for _, song := range songs {
		if song.Title != title || song.Duration != duration {
			continue
		}
		artist, ok := t.store.Artists[song.ArtistID]
		if !ok {
			artist, ok = t.staged.artists[song.ArtistID]
		}
		if ok && artist.Name == artistName {
			return repositories.SongArtistMatch{SongID: song.SongID, ArtistID: artist.ArtistID}, true, nil
		}
	}
	return repositories.SongArtistMatch{}, false, nil
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.store.CommitErr != nil {
		return t.store.CommitErr
	}

	for id, song := range t.staged.songs {
		if _, ok := t.store.Songs[id]; !ok {
			t.store.Songs[id] = song
		}
	}
	for id, artist := range t.staged.artists {
		if _, ok := t.store.Artists[id]; !ok {
			t.store.Artists[id] = artist
		}
	}
	for ms, entry := range t.staged.times {
		if _, ok := t.store.Times[ms]; !ok {
			t.store.Times[ms] = entry
		}
	}
	for id, user := range t.staged.users {
		t.store.Users[id] = user
	}
	t.store.Songplays = append(t.store.Songplays, t.staged.songplays...)
	t.store.Commits++
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.Rollbacks++
	return nil
}

var _ repositories.Store = (*MemoryStore)(nil)
