// package formatter renders run summaries as text, JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/sparkify/internal/shared"
	"github.com/desertthunder/sparkify/internal/tasks"
)

// Supported summary formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Formats lists the accepted values of --summary.
var Formats = []string{FormatText, FormatJSON, FormatCSV}

// Summary is the report for one run over the song and log roots.
type Summary struct {
	RunID   string         `json:"run_id"`
	Driver  string         `json:"driver"`
	Started time.Time      `json:"started"`
	Elapsed time.Duration  `json:"-"`
	Batches []BatchSummary `json:"batches"`
	Totals  tasks.RowStats `json:"-"`
	Rows    RowSummary     `json:"totals"`
}

// BatchSummary is the serializable view of a [tasks.BatchResult].
type BatchSummary struct {
	Phase          string       `json:"phase"`
	Root           string       `json:"root"`
	FilesFound     int          `json:"files_found"`
	FilesProcessed int          `json:"files_processed"`
	FilesFailed    int          `json:"files_failed"`
	ElapsedMS      int64        `json:"elapsed_ms"`
	Rows           RowSummary   `json:"rows"`
	Failures       []FailedFile `json:"failures,omitempty"`
	Error          string       `json:"error,omitempty"` // Set when the root could not be loaded
}

// RowSummary is the serializable view of [tasks.RowStats].
type RowSummary struct {
	Songs        int `json:"songs"`
	Artists      int `json:"artists"`
	Times        int `json:"time"`
	Users        int `json:"users"`
	Songplays    int `json:"songplays"`
	Matched      int `json:"matched"`
	Ignored      int `json:"ignored"`
	Malformed    int `json:"malformed"`
	Failed       int `json:"failed"`
	LookupErrors int `json:"lookup_errors"`
}

// FailedFile is a rolled back file and its error.
type FailedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// NewSummary builds a Summary from the batch results of a run. Nil results are skipped.
func NewSummary(runID, driver string, started time.Time, results ...*tasks.BatchResult) *Summary {
	s := &Summary{RunID: runID, Driver: driver, Started: started.UTC(), Batches: []BatchSummary{}}

	for _, r := range results {
		if r == nil {
			continue
		}
		b := BatchSummary{
			Phase:          r.Phase.String(),
			Root:           r.Root,
			FilesFound:     r.FilesFound,
			FilesProcessed: r.FilesProcessed,
			FilesFailed:    r.FilesFailed,
			ElapsedMS:      r.Elapsed.Milliseconds(),
			Rows:           toRowSummary(r.Rows),
			Error:          errString(r.Err),
		}
		for _, f := range r.Failures {
			b.Failures = append(b.Failures, FailedFile{Path: f.Path, Error: errString(f.Err)})
		}
		s.Batches = append(s.Batches, b)
		s.Totals.Add(r.Rows)
		s.Elapsed += r.Elapsed
	}

	s.Rows = toRowSummary(s.Totals)
	return s
}

func toRowSummary(r tasks.RowStats) RowSummary {
	return RowSummary{
		Songs:        r.Songs,
		Artists:      r.Artists,
		Times:        r.Times,
		Users:        r.Users,
		Songplays:    r.Songplays,
		Matched:      r.Matched,
		Ignored:      r.Ignored,
		Malformed:    r.Malformed,
		Failed:       r.Failed,
		LookupErrors: r.LookupErrors,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// RootsSkipped is the number of batches whose root could not be loaded.
func (s *Summary) RootsSkipped() int {
	n := 0
	for _, b := range s.Batches {
		if b.Error != "" {
			n++
		}
	}
	return n
}

// FilesFailed is the number of rolled back files across all batches.
func (s *Summary) FilesFailed() int {
	n := 0
	for _, b := range s.Batches {
		n += b.FilesFailed
	}
	return n
}

// ToText renders a human readable summary.
func ToText(s *Summary) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Run %s (%s)\n", s.RunID, s.Driver))
	for _, b := range s.Batches {
		buf.WriteString(fmt.Sprintf("\n%s: %s\n", b.Phase, b.Root))
		if b.Error != "" {
			buf.WriteString(fmt.Sprintf("  ✗ skipped: %s\n", b.Error))
		}
		buf.WriteString(fmt.Sprintf("  files:     %d found, %d processed, %d failed\n", b.FilesFound, b.FilesProcessed, b.FilesFailed))
		buf.WriteString(fmt.Sprintf("  rows:      %s\n", rowLine(b.Rows)))
		if b.Rows.Malformed+b.Rows.Failed+b.Rows.LookupErrors > 0 {
			buf.WriteString(fmt.Sprintf("  problems:  %d malformed, %d failed, %d lookup errors\n", b.Rows.Malformed, b.Rows.Failed, b.Rows.LookupErrors))
		}
		for _, f := range b.Failures {
			buf.WriteString(fmt.Sprintf("  ✗ %s: %s\n", f.Path, f.Error))
		}
	}

	buf.WriteString(fmt.Sprintf("\nTotal: %s in %s\n", rowLine(s.Rows), s.Elapsed.Round(time.Millisecond)))
	return buf.Bytes()
}

func rowLine(r RowSummary) string {
	parts := []string{}
	add := func(n int, label string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, label))
		}
	}
	add(r.Songs, "songs")
	add(r.Artists, "artists")
	add(r.Times, "time")
	add(r.Users, "users")
	add(r.Songplays, "songplays")
	if r.Songplays > 0 {
		parts = append(parts, fmt.Sprintf("%d matched", r.Matched))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// ToJSON renders the summary as indented JSON.
func ToJSON(s *Summary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	return append(data, '\n'), nil
}

var csvHeaders = []string{
	"phase", "root", "files_found", "files_processed", "files_failed",
	"songs", "artists", "time", "users", "songplays", "matched",
	"ignored", "malformed", "failed", "lookup_errors", "elapsed_ms", "error",
}

// ToCSV renders one row per batch.
func ToCSV(s *Summary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, b := range s.Batches {
		record := []string{
			b.Phase,
			b.Root,
			strconv.Itoa(b.FilesFound),
			strconv.Itoa(b.FilesProcessed),
			strconv.Itoa(b.FilesFailed),
			strconv.Itoa(b.Rows.Songs),
			strconv.Itoa(b.Rows.Artists),
			strconv.Itoa(b.Rows.Times),
			strconv.Itoa(b.Rows.Users),
			strconv.Itoa(b.Rows.Songplays),
			strconv.Itoa(b.Rows.Matched),
			strconv.Itoa(b.Rows.Ignored),
			strconv.Itoa(b.Rows.Malformed),
			strconv.Itoa(b.Rows.Failed),
			strconv.Itoa(b.Rows.LookupErrors),
			strconv.FormatInt(b.ElapsedMS, 10),
			b.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// Render dispatches on format. An unknown format fails with [shared.ErrInvalidFlag].
func Render(s *Summary, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return ToText(s), nil
	case FormatJSON:
		return ToJSON(s)
	case FormatCSV:
		return ToCSV(s)
	default:
		return nil, fmt.Errorf("%w: unknown summary format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
}

// WriteSummary renders the summary and writes it to path, creating parent directories.
func WriteSummary(s *Summary, format, path string) error {
	data, err := Render(s, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
