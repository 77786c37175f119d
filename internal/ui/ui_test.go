package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/sparkify/internal/formatter"
	"github.com/desertthunder/sparkify/internal/tasks"
)

func testSummary(failed bool) *formatter.Summary {
	logs := &tasks.BatchResult{
		Phase:          tasks.LoadLogs,
		Root:           "data/log_data",
		FilesFound:     2,
		FilesProcessed: 2,
		Rows:           tasks.RowStats{Songplays: 5},
	}
	if failed {
		logs.FilesProcessed = 1
		logs.FilesFailed = 1
		logs.Failures = []tasks.FileResult{{Path: "data/log_data/bad-events.json", Err: errors.New("truncated")}}
	}
	return formatter.NewSummary("run-1", "sqlite", time.Now(), logs)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	noop := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*formatter.Summary, error) {
		return nil, nil
	}

	t.Run("renders progress updates", func(t *testing.T) {
		m := NewModel(context.Background(), noop)
		m.progressChan = make(chan tasks.ProgressUpdate)
		m.done = make(chan runResult, 1)

		m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.LoadSongs, Step: 3, Total: 4, Message: "[3/4] ✓ song.json (2 rows)"}))

		view := m.View()
		for _, want := range []string{"Loading song data", "(3/4)", "song.json"} {
			if !strings.Contains(view, want) {
				t.Errorf("running view missing %q:\n%s", want, view)
			}
		}
		if m.percent() != 0.75 {
			t.Errorf("expected 75%%, got %v", m.percent())
		}
	})

	t.Run("records finished phases", func(t *testing.T) {
		m := NewModel(context.Background(), noop)
		m.progressChan = make(chan tasks.ProgressUpdate)
		m.done = make(chan runResult, 1)

		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.LoadSongs, Step: 4, Total: 4}))
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.LoadLogs, Step: 0, Total: 2}))

		if len(m.phases) != 1 || m.phases[0].Phase != tasks.LoadSongs {
			t.Fatalf("expected finished song phase, got %+v", m.phases)
		}
		if !strings.Contains(m.View(), "✓ Loading song data (4 files)") {
			t.Errorf("expected finished phase line, got:\n%s", m.View())
		}
	})

	t.Run("shows summary on completion", func(t *testing.T) {
		m := NewModel(context.Background(), noop)
		m.Update(runCompleteMsg(testSummary(false), nil))

		if m.view != ResultView {
			t.Fatalf("expected ResultView, got %v", m.view)
		}
		view := m.View()
		if !strings.Contains(view, "Run complete") || !strings.Contains(view, "5 songplays") {
			t.Errorf("unexpected result view:\n%s", view)
		}
		summary, err := m.Result()
		if summary == nil || err != nil {
			t.Errorf("expected summary without error, got %v %v", summary, err)
		}
	})

	t.Run("lists rolled back files", func(t *testing.T) {
		m := NewModel(context.Background(), noop)
		m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
		m.Update(runCompleteMsg(testSummary(true), nil))

		if len(m.failures.Items()) != 1 {
			t.Fatalf("expected 1 failure item, got %d", len(m.failures.Items()))
		}
		if !strings.Contains(m.View(), "1 files rolled back") {
			t.Errorf("expected rollback warning, got:\n%s", m.View())
		}
	})

	t.Run("shows run error", func(t *testing.T) {
		m := NewModel(context.Background(), noop)
		m.Update(runCompleteMsg(nil, errors.New("connection refused")))

		if !strings.Contains(m.View(), "connection refused") {
			t.Errorf("expected error in view, got:\n%s", m.View())
		}
	})

	t.Run("quit key", func(t *testing.T) {
		m := NewModel(context.Background(), noop)
		_, cmd := m.Update(keyRunes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("discovery is not listed as a finished phase", func(t *testing.T) {
		m := NewModel(context.Background(), noop)
		m.progressChan = make(chan tasks.ProgressUpdate)
		m.done = make(chan runResult, 1)

		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.Discover, Total: 4, Message: "4 files found in data/song_data", Data: tasks.LoadSongs}))
		if !strings.Contains(m.View(), "Discovering files") {
			t.Errorf("expected discovery label, got:\n%s", m.View())
		}
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.LoadSongs, Step: 4, Total: 4}))
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.Complete, Step: 4, Total: 4, Message: "4 files processed, 0 failed"}))

		if len(m.phases) != 1 || m.phases[0].Phase != tasks.LoadSongs {
			t.Fatalf("expected only the song phase recorded, got %+v", m.phases)
		}
		if !strings.Contains(m.View(), "Done") {
			t.Errorf("expected complete label, got:\n%s", m.View())
		}
	})

	t.Run("quitting cancels the job and waits for it", func(t *testing.T) {
		returned := make(chan struct{})
		job := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*formatter.Summary, error) {
			defer close(returned)
			<-ctx.Done()
			return testSummary(false), ctx.Err()
		}
		m := NewModel(context.Background(), job)
		m.start()

		_, cmd := m.Update(keyRunes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}

		summary, err := m.Wait()
		select {
		case <-returned:
		default:
			t.Fatal("expected Wait to block until the job returned")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if summary == nil {
			t.Error("expected the job's partial summary")
		}
	})

	t.Run("Wait without a started job", func(t *testing.T) {
		m := NewModel(context.Background(), noop)
		summary, err := m.Wait()
		if summary != nil || err != nil {
			t.Errorf("expected no result, got %v %v", summary, err)
		}
	})

	t.Run("job result flows through the channels", func(t *testing.T) {
		job := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*formatter.Summary, error) {
			progress <- tasks.ProgressUpdate{Phase: tasks.LoadSongs, Step: 1, Total: 1}
			return testSummary(false), nil
		}
		m := NewModel(context.Background(), job)

		cmd := m.start()
		msg := cmd()
		if got, ok := msg.(Msg); !ok || got.kind != MsgProgressUpdate {
			t.Fatalf("expected progress message, got %#v", msg)
		}
		m.Update(msg)

		msg = m.waitForProgress()()
		if got, ok := msg.(Msg); !ok || got.kind != MsgRunComplete {
			t.Fatalf("expected completion message, got %#v", msg)
		}
		m.Update(msg)
		if m.summary == nil {
			t.Error("expected summary after completion")
		}
	})
}

func TestFailureItems(t *testing.T) {
	items := failureItems(testSummary(true))
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0].(failureItem)
	if item.Title() != "bad-events.json" || !strings.Contains(item.Description(), "load_logs") {
		t.Errorf("unexpected item %s / %s", item.Title(), item.Description())
	}
	if len(failureItems(nil)) != 0 {
		t.Error("expected no items for nil summary")
	}
}
