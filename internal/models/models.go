// package models defines the data model for the song play ETL
package models

import (
	"fmt"
	"time"
)

// Song is a row of the songs dimension.
type Song struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Artist is a row of the artists dimension. Nil coordinates are stored as NULL.
type Artist struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// User is a row of the users dimension. Later events for the same UserID overwrite Level.
type User struct {
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// TimeEntry is a row of the time dimension, keyed by StartTime.
type TimeEntry struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

// Songplay is a row of the songplays fact table.
//
// SongID and ArtistID are nil when the play could not be matched against the song catalog.
type Songplay struct {
	StartTime time.Time
	UserID    string
	Level     string
	SongID    *string
	ArtistID  *string
	SessionID int
	Location  string
	UserAgent string
}

// Matched reports whether the play references a known song.
func (s Songplay) Matched() bool {
	return s.SongID != nil && s.ArtistID != nil
}

func (s Song) String() string {
	return fmt.Sprintf("song{id=%s title=%q artist=%s year=%d duration=%g}", s.SongID, s.Title, s.ArtistID, s.Year, s.Duration)
}

func (a Artist) String() string {
	return fmt.Sprintf("artist{id=%s name=%q location=%q lat=%s lon=%s}", a.ArtistID, a.Name, a.Location, fmtFloatPtr(a.Latitude), fmtFloatPtr(a.Longitude))
}

func (u User) String() string {
	return fmt.Sprintf("user{id=%s first=%q last=%q gender=%s level=%s}", u.UserID, u.FirstName, u.LastName, u.Gender, u.Level)
}

func (t TimeEntry) String() string {
	return fmt.Sprintf("time{start=%s hour=%d day=%d week=%d month=%d year=%d weekday=%d}",
		t.StartTime.Format(time.RFC3339Nano), t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday)
}

func (s Songplay) String() string {
	return fmt.Sprintf("songplay{start=%s user=%s level=%s song=%s artist=%s session=%d}",
		s.StartTime.Format(time.RFC3339Nano), s.UserID, s.Level, fmtStringPtr(s.SongID), fmtStringPtr(s.ArtistID), s.SessionID)
}

func fmtFloatPtr(f *float64) string {
	if f == nil {
		return "null"
	}
	return fmt.Sprintf("%g", *f)
}

func fmtStringPtr(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
