// package tasks implements the song and log loaders and the batch runner that drives them.
//
// The core abstraction is Engine, which runs one [Loader] per file inside its own transaction.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/sparkify/internal/files"
	"github.com/desertthunder/sparkify/internal/repositories"
	"github.com/desertthunder/sparkify/internal/shared"
)

// RowStats counts row-level outcomes.
//
// Insert counters are successful statements: an idempotent insert that hit an existing key still counts.
type RowStats struct {
	Songs        int // insert-song statements
	Artists      int // insert-artist statements
	Times        int // insert-time statements
	Users        int // upsert-user statements
	Songplays    int // insert-songplay statements
	Matched      int // Songplays resolved to a song and artist
	Ignored      int // Events whose page is not NextSong
	Malformed    int // Lines or timestamps that could not be parsed
	Failed       int // Statements rejected by the store
	LookupErrors int // Song/artist lookups that failed and were treated as misses
}

// Add accumulates o into r.
func (r *RowStats) Add(o RowStats) {
	r.Songs += o.Songs
	r.Artists += o.Artists
	r.Times += o.Times
	r.Users += o.Users
	r.Songplays += o.Songplays
	r.Matched += o.Matched
	r.Ignored += o.Ignored
	r.Malformed += o.Malformed
	r.Failed += o.Failed
	r.LookupErrors += o.LookupErrors
}

// Written is the number of successful write statements.
func (r RowStats) Written() int {
	return r.Songs + r.Artists + r.Times + r.Users + r.Songplays
}

// FileStats describes what a loader did with one file.
type FileStats struct {
	Lines int // Non-empty lines read
	Rows  RowStats
}

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	Path     string
	Stats    FileStats
	Err      error // File-level failure; the file's transaction was rolled back
	Duration time.Duration
}

// Failed reports whether the file was rolled back.
func (r FileResult) Failed() bool {
	return r.Err != nil
}

// BatchResult summarizes one [Engine.Process] call.
type BatchResult struct {
	Phase          Phase
	Root           string
	FilesFound     int
	FilesProcessed int             // Files loaded and committed
	FilesFailed    int             // Files rolled back
	Rows           RowStats        // Row counters across committed files
	Failures       []FileResult    // Rolled back files in processing order
	Skipped        []files.Skipped // Unreadable subtrees found during discovery
	Err            error           // Discovery or cancellation error that ended the batch
	Elapsed        time.Duration
}

// RootSkippable reports whether err only concerns the batch's root, so a run can continue with its next root.
func RootSkippable(err error) bool {
	return errors.Is(err, shared.ErrPathNotFound) || errors.Is(err, shared.ErrPermissionDenied)
}

// LoadFunc loads a single file through w.
type LoadFunc func(ctx context.Context, w repositories.Writer, path string) (FileStats, error)

// Loader binds a [LoadFunc] to the phase it reports progress under.
type Loader struct {
	Phase Phase
	Load  LoadFunc

	// CacheLookups memoizes song/artist resolution within each file.
	CacheLookups bool
}

// EngineOpts configures an [Engine]. Zero values fall back to defaults.
type EngineOpts struct {
	Store     repositories.Store
	Logger    *log.Logger
	Output    io.Writer // Receives the textual progress lines (default: os.Stdout)
	Extension string    // Input file extension (default: json)
	RateLimit float64   // Files per second, 0 for unlimited
}

// Engine loads song and log files into a [repositories.Store].
type Engine struct {
	store     repositories.Store
	logger    *log.Logger
	output    io.Writer
	extension string
	limiter   *rate.Limiter
}

// NewEngine creates an Engine with the given options
func NewEngine(opts EngineOpts) *Engine {
	e := &Engine{
		store:     opts.Store,
		logger:    opts.Logger,
		output:    opts.Output,
		extension: opts.Extension,
	}

	if e.logger == nil {
		e.logger = shared.NewLogger(os.Stderr)
	}
	if e.output == nil {
		e.output = os.Stdout
	}
	if e.extension == "" {
		e.extension = "json"
	}
	if opts.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return e
}

// SongLoader returns the loader for the song metadata tree.
func (e *Engine) SongLoader() Loader {
	return Loader{Phase: LoadSongs, Load: e.LoadSongFile}
}

// LogLoader returns the loader for the activity log tree.
func (e *Engine) LogLoader() Loader {
	return Loader{Phase: LoadLogs, Load: e.LoadLogFile, CacheLookups: true}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}
