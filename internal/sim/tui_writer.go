package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"droneops-referee/internal/penalty"
	"droneops-referee/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries an event line for the viewport.
type logMsg struct{ line string }

// clockMsg carries a phase clock update.
type clockMsg struct{ telemetry.ClockRow }

// scoreMsg carries a score update.
type scoreMsg struct{ telemetry.ScoreRow }

// adminMsg reports admin endpoint status.
type adminMsg struct{ active bool }

// TUIWriter renders the referee scoreboard using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI interrupts the process so the run shuts down cleanly.
func NewTUIWriter(runID string) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(runID), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteClock implements ClockWriter.
func (w *TUIWriter) WriteClock(row telemetry.ClockRow) error {
	w.program.Send(clockMsg{row})
	return nil
}

// WriteScore implements ScoreWriter.
func (w *TUIWriter) WriteScore(row telemetry.ScoreRow) error {
	w.program.Send(scoreMsg{row})
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(e telemetry.EventRow) error {
	typeColor := colorBlue
	switch {
	case strings.HasPrefix(e.Type, "exceed_boundary"), strings.Contains(e.Data, "failure"):
		typeColor = colorRed
	case e.Type == "dead_battery" || strings.HasSuffix(e.Data, "duplicate"):
		typeColor = colorYellow
	case strings.HasSuffix(e.Data, "success"):
		typeColor = colorGreen
	}
	line := fmt.Sprintf("%s[%d]%s %st=%ds%s %s%s%s %sscore=%s%s",
		colorGray, e.ID, colorReset,
		colorCyan, e.TimeSec, colorReset,
		typeColor, e.Type, colorReset,
		colorMagenta, formatScore(float64(e.TotalScore)), colorReset,
	)
	if e.Data != "" {
		line += fmt.Sprintf(" %s%s%s", typeColor, e.Data, colorReset)
	}
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteEvents implements batch event writes.
func (w *TUIWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}

// SetAdminStatus implements AdminStatusWriter.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close stops the TUI without interrupting the process.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

func formatScore(v float64) string {
	if v >= penalty.Infinite {
		return "∞"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type tuiModel struct {
	runID      string
	table      table.Model
	vp         viewport.Model
	logs       []string
	clock      telemetry.ClockRow
	score      telemetry.ScoreRow
	admin      bool
	wrap       bool
	autoscroll bool
	help       bool
	height     int
}

func newTUIModel(runID string) tuiModel {
	cols := []table.Column{
		{Title: "Run", Width: 36},
		{Title: "Phase", Width: 10},
		{Title: "Clock (s)", Width: 10},
		{Title: "Score", Width: 12},
		{Title: "Penalty", Width: 12},
	}
	m := tuiModel{
		runID:      runID,
		table:      table.New(table.WithColumns(cols), table.WithHeight(2)),
		vp:         viewport.New(0, 0),
		autoscroll: true,
		clock:      telemetry.ClockRow{Phase: telemetry.PhaseSetup},
	}
	m.refreshTable()
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
		case "h", "?":
			m.help = !m.help
		default:
			if !m.autoscroll {
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
	case logMsg:
		m.logs = append(m.logs, msg.line)
		m.refreshViewport()
	case clockMsg:
		m.clock = msg.ClockRow
		m.refreshTable()
	case scoreMsg:
		m.score = msg.ScoreRow
		m.refreshTable()
	case adminMsg:
		m.admin = msg.active
		m.updateViewportHeight()
	}
	return m, nil
}

func (m *tuiModel) refreshTable() {
	m.table.SetRows([]table.Row{{
		m.runID,
		m.clock.Phase,
		strconv.FormatInt(m.clock.Seconds, 10),
		formatScore(m.score.Score),
		formatScore(float64(m.score.TimePenalty)),
	}})
}

func (m *tuiModel) updateViewportHeight() {
	header := lipgloss.Height(m.table.View())
	bottom := lipgloss.Height(m.renderBottom())
	h := m.height - header - bottom - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	return strings.Join([]string{
		m.table.View(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}, "\n")
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	return fmt.Sprintf("%sEVENTS%s %d | Admin %s | Wrap %s | Scroll %s | Help %s | updated %s",
		colorBlue, colorReset, len(m.logs),
		indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.help),
		m.score.Timestamp.Format(time.TimeOnly))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for event lines",
		" s  toggle auto-scroll",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
