// Package tasks loads song and activity-log files into the star schema with real-time progress reporting.
//
// # Core Operations
//
// [Engine] exposes two loaders and a batch runner:
//
//  1. [Engine.LoadSongFile] : one song metadata record per file
//     - Parses the first non-empty line into a [models.SongRecord]
//     - Inserts the songs row then the artists row
//
//  2. [Engine.LoadLogFile] : one activity event per line
//     - Keeps only NextSong events
//     - Inserts time rows, upserts users, resolves song and artist ids, inserts songplays
//     - Unresolved plays are still recorded with null song and artist ids
//
//  3. [Engine.Process] : walks a data root and runs a [Loader] over every file in sorted order
//     - One transaction per file, committed after the loader returns
//     - A failing file is rolled back, logged and counted; the batch moves on
//
// # Error Handling
//
// Row-level failures (a malformed line, a rejected statement, an unparsable timestamp) are logged at WARN and counted
// in [RowStats]. They never stop the file. File-level failures (unreadable file, malformed song record, commit failure)
// roll the file back and are recorded in [BatchResult.Failures].
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// The textual progress ("N files found in DIR", "i/N files processed.") is written to the engine output regardless.
package tasks
