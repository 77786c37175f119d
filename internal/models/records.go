package models

import (
	"time"
)

// NextSongPage is the page value of events that represent a song being played.
const NextSongPage = "NextSong"

// SongRecord is one line of a song-metadata file.
type SongRecord struct {
	SongID          string
	Title           string
	ArtistID        string
	Year            int
	Duration        float64
	ArtistName      string
	ArtistLocation  string
	ArtistLatitude  *float64
	ArtistLongitude *float64
}

// ParseSongRecord decodes a song-metadata line, coercing each column to its type.
func ParseSongRecord(line []byte) (*SongRecord, error) {
	f, err := decodeFields(line)
	if err != nil {
		return nil, err
	}

	var r SongRecord
	if r.SongID, err = f.String("song_id"); err != nil {
		return nil, err
	}
	if r.Title, err = f.String("title"); err != nil {
		return nil, err
	}
	if r.ArtistID, err = f.String("artist_id"); err != nil {
		return nil, err
	}
	if r.Year, err = f.Int("year"); err != nil {
		return nil, err
	}
	if r.Duration, err = f.Float("duration"); err != nil {
		return nil, err
	}
	if r.ArtistName, err = f.String("artist_name"); err != nil {
		return nil, err
	}
	if r.ArtistLocation, err = f.OptionalString("artist_location"); err != nil {
		return nil, err
	}
	if r.ArtistLatitude, err = f.OptionalFloat("artist_latitude"); err != nil {
		return nil, err
	}
	if r.ArtistLongitude, err = f.OptionalFloat("artist_longitude"); err != nil {
		return nil, err
	}

	if r.SongID == "" {
		return nil, &FieldError{Field: "song_id", Reason: "is empty"}
	}
	if r.ArtistID == "" {
		return nil, &FieldError{Field: "artist_id", Reason: "is empty"}
	}

	return &r, nil
}

// Song projects the songs row.
func (r *SongRecord) Song() Song {
	return Song{
		SongID:   r.SongID,
		Title:    r.Title,
		ArtistID: r.ArtistID,
		Year:     r.Year,
		Duration: r.Duration,
	}
}

// Artist projects the artists row.
func (r *SongRecord) Artist() Artist {
	return Artist{
		ArtistID:  r.ArtistID,
		Name:      r.ArtistName,
		Location:  r.ArtistLocation,
		Latitude:  r.ArtistLatitude,
		Longitude: r.ArtistLongitude,
	}
}

// LogEvent is one line of an activity-log file.
//
// Only the page is required for every event; the remaining columns are required for NextSong events.
// A bad ts does not fail the parse: it is reported by [LogEvent.Timestamp] so the user row can still be loaded.
type LogEvent struct {
	Page      string
	TS        int64
	tsErr     error
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
	Song      string
	Artist    string
	Length    float64
	SessionID int
	Location  string
	UserAgent string
}

// ParseLogEvent decodes an activity-log line. Events other than NextSong are returned with only Page set.
func ParseLogEvent(line []byte) (*LogEvent, error) {
	f, err := decodeFields(line)
	if err != nil {
		return nil, err
	}

	var e LogEvent
	if e.Page, err = f.String("page"); err != nil {
		return nil, err
	}
	if !e.IsNextSong() {
		return &e, nil
	}

	e.TS, e.tsErr = f.Int64("ts")
	if e.UserID, err = f.String("userId"); err != nil {
		return nil, err
	}
	if e.Level, err = f.String("level"); err != nil {
		return nil, err
	}
	if e.SessionID, err = f.Int("sessionId"); err != nil {
		return nil, err
	}
	if e.FirstName, err = f.OptionalString("firstName"); err != nil {
		return nil, err
	}
	if e.LastName, err = f.OptionalString("lastName"); err != nil {
		return nil, err
	}
	if e.Gender, err = f.OptionalString("gender"); err != nil {
		return nil, err
	}
	if e.Song, err = f.OptionalString("song"); err != nil {
		return nil, err
	}
	if e.Artist, err = f.OptionalString("artist"); err != nil {
		return nil, err
	}
	if e.Location, err = f.OptionalString("location"); err != nil {
		return nil, err
	}
	if e.UserAgent, err = f.OptionalString("userAgent"); err != nil {
		return nil, err
	}

	length, err := f.OptionalFloat("length")
	if err != nil {
		return nil, err
	}
	if length != nil {
		e.Length = *length
	}

	if e.UserID == "" {
		return nil, &FieldError{Field: "userId", Reason: "is empty"}
	}

	return &e, nil
}

// IsNextSong reports whether the event is a song play.
func (e *LogEvent) IsNextSong() bool {
	return e.Page == NextSongPage
}

// Timestamp converts the event's millisecond epoch into a UTC time.
//
// A missing or non-numeric ts fails with the [FieldError] recorded during parsing.
func (e *LogEvent) Timestamp() (time.Time, error) {
	if e.tsErr != nil {
		return time.Time{}, e.tsErr
	}
	return FromMillis(e.TS)
}

// User projects the users row.
func (e *LogEvent) User() User {
	return User{
		UserID:    e.UserID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Gender:    e.Gender,
		Level:     e.Level,
	}
}

// Songplay projects the songplays row for the given start time and resolved references.
func (e *LogEvent) Songplay(start time.Time, songID, artistID *string) Songplay {
	return Songplay{
		StartTime: start,
		UserID:    e.UserID,
		Level:     e.Level,
		SongID:    songID,
		ArtistID:  artistID,
		SessionID: e.SessionID,
		Location:  e.Location,
		UserAgent: e.UserAgent,
	}
}
