package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/sparkify/internal/formatter"
	"github.com/desertthunder/sparkify/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunningView ViewState = iota
	ResultView
)

const maxBarWidth = 80

// Job runs the ETL, reporting progress on the given channel. It must not close the channel.
type Job func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*formatter.Summary, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	job          Job
	view         ViewState
	width        int
	height       int
	spinner      spinner.Model
	bar          progress.Model
	failures     list.Model
	progressChan chan tasks.ProgressUpdate
	done         chan runResult
	finished     chan struct{} // Closed once the job has returned
	outcome      runResult     // Job result, readable after finished is closed
	progress     tasks.ProgressUpdate
	phases       []tasks.ProgressUpdate // Last update of each finished phase
	summary      *formatter.Summary
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model that runs job when started.
func NewModel(ctx context.Context, job Job) *Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok))
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		job:     job,
		view:    RunningView,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Run starts the TUI and blocks until the user quits and the job has returned, reporting the job's outcome.
//
// Quitting while the job is running cancels it.
func Run(ctx context.Context, job Job) (*formatter.Summary, error) {
	m := NewModel(ctx, job)
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	summary, jobErr := m.Wait()
	if err != nil {
		return summary, fmt.Errorf("tui failed: %w", err)
	}
	return summary, jobErr
}

// Wait cancels the job if it is still running and blocks until it returns.
func (m *Model) Wait() (*formatter.Summary, error) {
	m.cancel()
	if m.finished == nil {
		return m.summary, m.err
	}
	<-m.finished
	return m.outcome.summary, m.outcome.err
}

// Result returns the job's summary and error once the run has completed.
func (m *Model) Result() (*formatter.Summary, error) {
	return m.summary, m.err
}

// Init starts the spinner and the job.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		if m.view == ResultView {
			m.failures.SetSize(msg.Width-4, m.listHeight())
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		if m.view == ResultView {
			var cmd tea.Cmd
			m.failures, cmd = m.failures.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != RunningView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if update.Phase != m.progress.Phase && m.progress.Total > 0 && m.progress.Phase != tasks.Discover {
			m.phases = append(m.phases, m.progress)
		}
		m.progress = update
		return m, m.waitForProgress()

	case MsgRunComplete:
		res := msg.data.(runResult)
		m.summary = res.summary
		m.err = res.err
		m.view = ResultView
		m.failures = list.New(failureItems(res.summary), list.NewDefaultDelegate(), 0, 0)
		m.failures.Title = "Rolled back files"
		m.failures.SetShowHelp(false)
		m.failures.SetSize(max(m.width-4, 0), m.listHeight())
		return m, nil
	}
	return m, nil
}

func (m *Model) listHeight() int {
	return max(m.height-16, 4)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan runResult, 1)
	m.finished = make(chan struct{})

	go func() {
		defer close(m.finished)
		summary, err := m.job(m.ctx, m.progressChan)
		m.outcome = runResult{summary: summary, err: err}
		m.done <- m.outcome
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, done := m.progressChan, m.done
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			res := <-done
			return runCompleteMsg(res.summary, res.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) percent() float64 {
	if m.progress.Total <= 0 {
		return 0
	}
	return float64(m.progress.Step) / float64(m.progress.Total)
}

func (m *Model) renderRunning() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("sparkify"))
	b.WriteString("\n")

	for _, p := range m.phases {
		b.WriteString(fmt.Sprintf("%s %s (%d files)\n", styles.ok.Render("✓"), p.Phase.Label(), p.Total))
	}

	label := m.progress.Phase.Label()
	if label == "" {
		label = "Starting"
	}
	b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), label))
	if m.progress.Total > 0 {
		b.WriteString(fmt.Sprintf(" (%d/%d)", m.progress.Step, m.progress.Total))
	}
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString("\n\n")
	if m.progress.Message != "" {
		b.WriteString(styles.help.Render(m.progress.Message))
		b.WriteString("\n\n")
	}
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.quit})

	if m.err != nil {
		msg := styles.err.Render(fmt.Sprintf("✗ Run failed: %v", m.err))
		return fmt.Sprintf("%s\n\n%s", msg, helpView)
	}
	if m.summary == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Run complete")
	if n := m.summary.FilesFailed(); n > 0 {
		title = styles.warn.Render(fmt.Sprintf("Run complete, %d files rolled back", n))
	}

	report := styles.box.Render(strings.TrimRight(string(formatter.ToText(m.summary)), "\n"))
	if len(m.failures.Items()) == 0 {
		return fmt.Sprintf("%s\n\n%s\n\n%s", title, report, helpView)
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s", title, report, m.failures.View(), helpView)
}
