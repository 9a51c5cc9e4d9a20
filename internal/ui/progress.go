package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"monogen/internal/buildpipeline"
)

const (
	statusColumn = 10
	countColumn  = 8
	minNameWidth = 16
)

// stage weights used for the bar while a program is still in flight
var stageWeight = map[buildpipeline.Stage]float64{
	buildpipeline.StageLoad:    0.1,
	buildpipeline.StageResolve: 0.5,
	buildpipeline.StageLower:   0.85,
}

type palette struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	working lipgloss.Style
	idle    lipgloss.Style
	muted   lipgloss.Style
}

func newPalette() palette {
	return palette{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		working: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		muted:   lipgloss.NewStyle().Faint(true),
	}
}

// programRow is one program file in the progress table.
type programRow struct {
	name      string
	stage     buildpipeline.Stage
	status    buildpipeline.Status
	instances int
}

func (r programRow) settled() bool {
	switch r.status {
	case buildpipeline.StatusDone, buildpipeline.StatusCached, buildpipeline.StatusError:
		return true
	}
	return false
}

func (r programRow) label() string {
	if r.status != buildpipeline.StatusWorking {
		return string(r.status)
	}
	switch r.stage {
	case buildpipeline.StageLoad:
		return "loading"
	case buildpipeline.StageResolve:
		return "resolving"
	case buildpipeline.StageLower:
		return "lowering"
	}
	return string(r.status)
}

type progressModel struct {
	title  string
	events <-chan buildpipeline.Event
	spin   spinner.Model
	bar    progress.Model
	style  palette

	rows   []programRow
	byName map[string]int
	phase  string
	width  int
	closed bool
}

type pipelineEvent buildpipeline.Event
type streamClosed struct{}

// NewProgressModel returns a Bubble Tea model showing one row per program
// file. It quits once events is closed.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	style := newPalette()
	spin.Style = style.working

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:  title,
		events: events,
		spin:   spin,
		bar:    bar,
		style:  style,
		rows:   make([]programRow, len(files)),
		byName: make(map[string]int, len(files)),
		width:  80,
	}
	for i, name := range files {
		m.rows[i] = programRow{name: name, stage: buildpipeline.StageLoad, status: buildpipeline.StatusQueued}
		m.byName[name] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pipelineEvent:
		return m, tea.Batch(m.applyEvent(buildpipeline.Event(msg)), m.next())
	case streamClosed:
		m.closed = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.closed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		next, cmd := m.bar.Update(msg)
		m.bar = next.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// next waits for one event from the pipeline.
func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return streamClosed{}
		}
		return pipelineEvent(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		m.phase = string(ev.Stage)
		if ev.Status != buildpipeline.StatusWorking {
			m.phase = string(ev.Status)
		}
		return nil
	}
	i, ok := m.byName[ev.File]
	if !ok {
		return nil
	}
	row := &m.rows[i]
	if ev.Stage != "" {
		row.stage = ev.Stage
	}
	if ev.Status != "" {
		row.status = ev.Status
	}
	if ev.Instances > 0 {
		row.instances = ev.Instances
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range m.rows {
		switch {
		case r.settled():
			sum++
		case r.status == buildpipeline.StatusWorking:
			sum += stageWeight[r.stage]
		}
	}
	return sum / float64(len(m.rows))
}

func (m *progressModel) tally() (settled, instances, failed int) {
	for _, r := range m.rows {
		if r.settled() {
			settled++
		}
		if r.status == buildpipeline.StatusError {
			failed++
		}
		instances += r.instances
	}
	return settled, instances, failed
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusColumn-countColumn-6, minNameWidth)
	for _, r := range m.rows {
		status := m.statusStyle(r).Render(fmt.Sprintf("%*s", statusColumn, r.label()))
		count := strings.Repeat(" ", countColumn)
		if r.instances > 0 {
			count = m.style.muted.Render(fmt.Sprintf("%*d inst", countColumn-5, r.instances))
		}
		fmt.Fprintf(&b, "  %s %s  %s\n", status, count, truncate(r.name, nameWidth))
	}

	settled, instances, failed := m.tally()
	summary := fmt.Sprintf("%d/%d programs, %d instances", settled, len(m.rows), instances)
	if failed > 0 {
		summary += m.style.failed.Render(fmt.Sprintf(", %d failed", failed))
	}
	b.WriteString("\n  ")
	b.WriteString(summary)
	b.WriteString("\n")
	if m.closed {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) header() string {
	text := m.title
	if m.phase != "" {
		text += " [" + m.phase + "]"
	}
	if m.closed {
		return m.style.title.Render("finished " + text)
	}
	return m.spin.View() + " " + m.style.title.Render(text)
}

func (m *progressModel) statusStyle(r programRow) lipgloss.Style {
	switch r.status {
	case buildpipeline.StatusDone, buildpipeline.StatusCached:
		return m.style.ok
	case buildpipeline.StatusError:
		return m.style.failed
	case buildpipeline.StatusWorking:
		return m.style.working
	}
	return m.style.idle
}

// truncate shortens value to width display cells, marking the cut with "...".
func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
