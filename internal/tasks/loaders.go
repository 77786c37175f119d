package tasks

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/sparkify/internal/models"
	"github.com/desertthunder/sparkify/internal/repositories"
	"github.com/desertthunder/sparkify/internal/shared"
)

const maxLineSize = 1024 * 1024

// line is a non-empty input line with its 1-based position.
type line struct {
	n    int
	text []byte
}

// readLines returns the non-empty lines of the file at path.
func readLines(path string) ([]line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var lines []line
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		lines = append(lines, line{n: n, text: bytes.Clone(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

// LoadSongFile inserts the song and artist described by the first record of a song file.
//
// A missing or malformed record fails the file with [shared.ErrMalformedRecord].
// A rejected insert is logged and counted; the other insert still runs.
func (e *Engine) LoadSongFile(ctx context.Context, w repositories.Writer, path string) (FileStats, error) {
	var stats FileStats
	logger := e.logger.With("file", path)

	lines, err := readLines(path)
	if err != nil {
		return stats, err
	}
	stats.Lines = len(lines)

	if len(lines) == 0 {
		return stats, fmt.Errorf("%w: %s: no song record", shared.ErrMalformedRecord, path)
	}
	if len(lines) > 1 {
		logger.Warn("ignoring extra records in song file", "extra", len(lines)-1)
	}

	rec, err := models.ParseSongRecord(lines[0].text)
	if err != nil {
		return stats, fmt.Errorf("%s:%d: %w", path, lines[0].n, err)
	}

	song := rec.Song()
	if err := w.InsertSong(ctx, song); err != nil {
		stats.Rows.Failed++
		logger.Warn("failed to insert song", "song", song, "err", err)
	} else {
		stats.Rows.Songs++
	}

	artist := rec.Artist()
	if err := w.InsertArtist(ctx, artist); err != nil {
		stats.Rows.Failed++
		logger.Warn("failed to insert artist", "artist", artist, "err", err)
	} else {
		stats.Rows.Artists++
	}

	return stats, nil
}

// play is a retained NextSong event with its decomposed start time.
type play struct {
	line  int
	event *models.LogEvent
	start *models.TimeEntry
}

// LoadLogFile loads the NextSong events of an activity log file.
//
// Time rows are inserted first, then users are upserted, then each play is resolved against the song catalog
// and inserted. Every row is independent: a malformed line, an invalid timestamp or a rejected statement is
// logged and counted without affecting the others. A play whose song cannot be resolved is still inserted
// with null song and artist ids.
func (e *Engine) LoadLogFile(ctx context.Context, w repositories.Writer, path string) (FileStats, error) {
	var stats FileStats
	logger := e.logger.With("file", path)

	lines, err := readLines(path)
	if err != nil {
		return stats, err
	}
	stats.Lines = len(lines)

	plays := make([]play, 0, len(lines))
	for _, l := range lines {
		ev, err := models.ParseLogEvent(l.text)
		if err != nil {
			stats.Rows.Malformed++
			logger.Warn("skipping malformed event", "line", l.n, "record", string(l.text), "err", err)
			continue
		}
		if !ev.IsNextSong() {
			stats.Rows.Ignored++
			continue
		}
		plays = append(plays, play{line: l.n, event: ev})
	}

	for i := range plays {
		p := &plays[i]
		ts, err := p.event.Timestamp()
		if err != nil {
			stats.Rows.Malformed++
			logger.Warn("skipping event with invalid timestamp", "line", p.line, "ts", p.event.TS, "err", err)
			continue
		}
		entry := models.Decompose(ts)
		p.start = &entry

		if err := w.InsertTime(ctx, entry); err != nil {
			stats.Rows.Failed++
			logger.Warn("failed to insert time", "line", p.line, "time", entry, "err", err)
			continue
		}
		stats.Rows.Times++
	}

	for _, p := range plays {
		user := p.event.User()
		if err := w.UpsertUser(ctx, user); err != nil {
			stats.Rows.Failed++
			logger.Warn("failed to upsert user", "line", p.line, "user", user, "err", err)
			continue
		}
		stats.Rows.Users++
	}

	for _, p := range plays {
		if p.start == nil {
			continue
		}

		var songID, artistID *string
		match, found, err := w.LookupSongArtist(ctx, p.event.Song, p.event.Artist, p.event.Length)
		switch {
		case err != nil:
			stats.Rows.LookupErrors++
			logger.Warn("song lookup failed, recording play without song", "line", p.line, "song", p.event.Song, "artist", p.event.Artist, "err", err)
		case found:
			songID, artistID = &match.SongID, &match.ArtistID
		}

		sp := p.event.Songplay(p.start.StartTime, songID, artistID)
		if err := w.InsertSongplay(ctx, sp); err != nil {
			stats.Rows.Failed++
			logger.Warn("failed to insert songplay", "line", p.line, "songplay", sp, "err", err)
			continue
		}
		stats.Rows.Songplays++
		if sp.Matched() {
			stats.Rows.Matched++
		}
	}

	logger.Debug("loaded log file", "events", len(plays), "songplays", stats.Rows.Songplays, "matched", stats.Rows.Matched)
	return stats, nil
}
