// Package ui implements a terminal progress view for ETL runs using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [RunningView] : spinner, current phase and a progress bar fed by [tasks.ProgressUpdate]s
//  2. [ResultView] : the run summary plus a browsable list of files that were rolled back
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.Engine], providing non-blocking status reporting while files load.
//
// Keyboard navigation uses vim-style bindings (j/k, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
