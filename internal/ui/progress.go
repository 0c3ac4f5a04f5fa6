// Package ui renders batch progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"prism/internal/pipeline"
)

// unitState is what a row shows. States from stateDone on are final.
type unitState uint8

const (
	stateQueued unitState = iota
	stateLoading
	stateLowering
	stateValidating
	stateEmitting
	stateDone
	stateCached
	stateFailed
)

var stateLabels = [...]string{"queued", "loading", "lowering", "validating", "emitting", "done", "cached", "error"}

func (s unitState) String() string { return stateLabels[s] }

func (s unitState) final() bool { return s >= stateDone }

func (s unitState) style() lipgloss.Style {
	st := lipgloss.NewStyle()
	switch {
	case s == stateFailed:
		return st.Foreground(lipgloss.Color("1"))
	case s.final():
		return st.Foreground(lipgloss.Color("2"))
	case s == stateQueued:
		return st.Foreground(lipgloss.Color("7"))
	}
	return st.Foreground(lipgloss.Color("6"))
}

// stageProgress maps a stage that started working to the row state and
// the share of the unit's work done before it.
var stageProgress = map[pipeline.Stage]struct {
	state unitState
	frac  float64
}{
	pipeline.StageLoad:        {stateLoading, 0.1},
	pipeline.StagePLS:         {stateLowering, 0.3},
	pipeline.StageDerivatives: {stateLowering, 0.6},
	pipeline.StageValidate:    {stateValidating, 0.8},
	pipeline.StageEmit:        {stateEmitting, 0.9},
}

type unitRow struct {
	path    string
	state   unitState
	frac    float64
	elapsed time.Duration
	reason  string
}

func (r *unitRow) progress() float64 {
	if r.state.final() {
		return 1
	}
	return r.frac
}

type progressModel struct {
	title      string
	events     <-chan pipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	rows       []unitRow
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type eventMsg pipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders lowering
// progress. The model quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		rows:    make([]unitRow, len(files)),
		index:   make(map[string]int, len(files)),
		width:   80,
	}
	for i, file := range files {
		m.rows[i] = unitRow{path: file}
		m.index[file] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(pipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

// applyEvent folds one event into the rows. Events without a file set
// the batch label. Failed and cached rows keep their state.
func (m *progressModel) applyEvent(ev pipeline.Event) tea.Cmd {
	if ev.File == "" {
		if sp, ok := stageProgress[ev.Stage]; ok && ev.Status == pipeline.StatusWorking {
			m.stageLabel = sp.state.String()
		}
		return nil
	}
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	row := &m.rows[idx]
	if row.state == stateFailed || row.state == stateCached {
		return nil
	}
	row.elapsed += ev.Elapsed
	switch ev.Status {
	case pipeline.StatusQueued:
		row.state = stateQueued
	case pipeline.StatusWorking:
		if sp, ok := stageProgress[ev.Stage]; ok {
			row.state, row.frac = sp.state, sp.frac
		}
	case pipeline.StatusDone:
		if ev.Stage == pipeline.StageEmit {
			row.state = stateDone
		}
	case pipeline.StatusCached:
		row.state = stateCached
	case pipeline.StatusError:
		row.state = stateFailed
		if ev.Err != nil {
			row.reason = ev.Err.Error()
		}
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	total := 0.0
	for i := range m.rows {
		total += m.rows[i].progress()
	}
	return total / float64(len(m.rows))
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).Render(header))
	b.WriteString("\n\n")

	const stateWidth, timeWidth = 10, 9
	nameWidth := max(m.width-stateWidth-timeWidth-6, 20)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	for i := range m.rows {
		row := &m.rows[i]
		label := row.state.style().Render(fmt.Sprintf("%*s", stateWidth, row.state))
		when := ""
		if row.state.final() && row.elapsed > 0 {
			when = dim.Render(fmt.Sprintf("%*s", timeWidth, row.elapsed.Round(100*time.Microsecond)))
		}
		fmt.Fprintf(&b, "  %s %s %s\n", label, truncate(row.path, nameWidth), when)
		if row.reason != "" {
			fmt.Fprintf(&b, "  %*s %s\n", stateWidth, "", dim.Render(truncate(row.reason, nameWidth)))
		}
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	b.WriteString(m.tally())
	return b.String()
}

// tally summarizes final states, e.g. "3 done, 1 cached, 1 failed".
func (m *progressModel) tally() string {
	var counts [stateFailed + 1]int
	for i := range m.rows {
		counts[m.rows[i].state]++
	}
	if counts[stateDone]+counts[stateCached]+counts[stateFailed] == 0 {
		return ""
	}
	return fmt.Sprintf("%d done, %d cached, %d failed\n", counts[stateDone], counts[stateCached], counts[stateFailed])
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
