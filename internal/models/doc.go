// Package models defines the rows of the song play star schema and the typed parsers that produce them from raw JSON lines.
//
// The package contains two categories of types:
//
// 1. Input records: one decoded line of an input file
//   - [SongRecord] : a song-metadata line, projected into a [Song] and an [Artist]
//   - [LogEvent] : an activity-log line (page view), projected into a [User] and a [Songplay]
//
// 2. Rows: transient values handed to the storage layer
//   - [Song], [Artist], [User] : dimension rows keyed by their natural ids
//   - [TimeEntry] : calendar dimension row derived from a timestamp by [Decompose]
//   - [Songplay] : fact row whose song and artist references may be nil
//
// Parsing is explicit and per field. A field that is missing or cannot be coerced to its type produces a [FieldError] naming it,
// which matches shared.ErrMalformedRecord under errors.Is.
package models
