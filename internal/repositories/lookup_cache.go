package repositories

import (
	"context"
	"sync"
)

type lookupKey struct {
	title    string
	artist   string
	duration float64
}

type lookupEntry struct {
	match SongArtistMatch
	found bool
}

// LookupCache memoizes song/artist resolution for the events of one log file.
//
// Hits and misses are both cached. Errors are not, so a failed lookup is retried on the next event.
// A cache is only valid while the songs and artists tables are not being written, so it lives for one file transaction.
type LookupCache struct {
	mu      sync.RWMutex
	entries map[lookupKey]lookupEntry
	hits    int
}

// NewLookupCache creates an empty LookupCache
func NewLookupCache() *LookupCache {
	return &LookupCache{entries: make(map[lookupKey]lookupEntry)}
}

// Wrap returns a [Writer] that answers LookupSongArtist from the cache before falling through to w.
func (c *LookupCache) Wrap(w Writer) Writer {
	return &cachedWriter{Writer: w, cache: c}
}

// Len reports the number of cached keys.
func (c *LookupCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Hits reports how many lookups were served from the cache.
func (c *LookupCache) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}

func (c *LookupCache) get(k lookupKey) (lookupEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if ok {
		c.hits++
	}
	return e, ok
}

func (c *LookupCache) put(k lookupKey, e lookupEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = e
}

type cachedWriter struct {
	Writer
	cache *LookupCache
}

func (w *cachedWriter) LookupSongArtist(ctx context.Context, title, artistName string, duration float64) (SongArtistMatch, bool, error) {
	k := lookupKey{title: title, artist: artistName, duration: duration}
	if e, ok := w.cache.get(k); ok {
		return e.match, e.found, nil
	}

	match, found, err := w.Writer.LookupSongArtist(ctx, title, artistName, duration)
	if err != nil {
		return SongArtistMatch{}, false, err
	}
	w.cache.put(k, lookupEntry{match: match, found: found})
	return match, found, nil
}

var _ Writer = (*cachedWriter)(nil)
