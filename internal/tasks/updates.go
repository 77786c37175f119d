package tasks

import (
	"fmt"
	"path/filepath"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Discover Phase = iota
	LoadSongs
	LoadLogs
	Complete
)

func (p Phase) String() string {
	switch p {
	case Discover:
		return "discover"
	case LoadSongs:
		return "load_songs"
	case LoadLogs:
		return "load_logs"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// Label is the title shown for the phase in progress views.
func (p Phase) Label() string {
	switch p {
	case Discover:
		return "Discovering files"
	case LoadSongs:
		return "Loading song data"
	case LoadLogs:
		return "Loading log data"
	case Complete:
		return "Done"
	default:
		return ""
	}
}

// discoveredUpdate reports the files found under root. Data carries the phase that loads them.
func discoveredUpdate(next Phase, total int, root string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Discover,
		Step:    0,
		Total:   total,
		Message: filesFoundMessage(total, root),
		Data:    next,
	}
}

func fileProcessedUpdate(phase Phase, step, total int, res FileResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d rows)", step, total, filepath.Base(res.Path), res.Stats.Rows.Written())
	if res.Err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, filepath.Base(res.Path), res.Err)
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func batchCompleteUpdate(phase Phase, result *BatchResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    result.FilesFound,
		Total:   result.FilesFound,
		Message: fmt.Sprintf("%d processed, %d failed in %s", result.FilesProcessed, result.FilesFailed, result.Root),
		Data:    result,
	}
}

func completeUpdate(results []*BatchResult) ProgressUpdate {
	var found, processed, failed int
	for _, r := range results {
		if r == nil {
			continue
		}
		found += r.FilesFound
		processed += r.FilesProcessed
		failed += r.FilesFailed
	}
	return ProgressUpdate{
		Phase:   Complete,
		Step:    processed + failed,
		Total:   found,
		Message: fmt.Sprintf("%d files processed, %d failed", processed, failed),
		Data:    results,
	}
}

func filesFoundMessage(n int, root string) string {
	return fmt.Sprintf("%d files found in %s", n, root)
}

func filesProcessedMessage(i, n int) string {
	return fmt.Sprintf("%d/%d files processed.", i, n)
}
