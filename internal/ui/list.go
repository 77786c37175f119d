package ui

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/sparkify/internal/formatter"
)

var (
	_ list.Item = failureItem{}
)

// failureItem wraps a rolled back file to implement [list.Item].
type failureItem struct {
	phase string
	file  formatter.FailedFile
}

func (i failureItem) FilterValue() string { return i.file.Path }
func (i failureItem) Title() string       { return filepath.Base(i.file.Path) }
func (i failureItem) Description() string {
	return fmt.Sprintf("%s • %s", i.phase, i.file.Error)
}

// failureItems flattens the failures of every batch in the summary.
func failureItems(s *formatter.Summary) []list.Item {
	items := []list.Item{}
	if s == nil {
		return items
	}
	for _, b := range s.Batches {
		for _, f := range b.Failures {
			items = append(items, failureItem{phase: b.Phase, file: f})
		}
	}
	return items
}
