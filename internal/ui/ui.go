package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/cpucollect/internal/model"
	"github.com/Dicklesworthstone/cpucollect/internal/procfs"
	"github.com/Dicklesworthstone/cpucollect/internal/sampler"
)

// UserHZ is the tick rate of procfs time counters on every Go-supported
// Linux platform.
const UserHZ = 100

// Model renders live readings from the sampler.
type Model struct {
	latest    *model.Reading
	previous  *model.Reading
	stream    <-chan model.Reading
	ctxCancel context.CancelFunc
	bootTime  time.Time
	done      bool
	width     int
	height    int
}

// New consumes stream until it closes or the user quits; cancel stops the
// producer. A zero bootTime hides process start times.
func New(stream <-chan model.Reading, cancel context.CancelFunc, bootTime time.Time) *Model {
	return &Model{
		stream:    stream,
		ctxCancel: cancel,
		bootTime:  bootTime,
		width:     120,
		height:    40,
	}
}

// Messages
type tickMsg struct{}

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctxCancel()
			return m, tea.Quit
		}
	case tickMsg:
		select {
		case r, ok := <-m.stream:
			if !ok {
				m.done = true
				return m, nil
			}
			m.previous, m.latest = m.latest, &r
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

var shownCounters = []procfs.Counter{procfs.User, procfs.Nice, procfs.System, procfs.Idle, procfs.IOWait, procfs.Steal}

func (m *Model) View() string {
	if m.latest == nil {
		if m.done {
			return warnStyle.Render("sampler stopped") + "\n"
		}
		return subtleStyle.Render("waiting for first reading…") + "\n"
	}
	r := m.latest

	mode := "since boot"
	if r.Linked() {
		mode = "last interval"
	}
	header := titleStyle.Render("CPU Collector") + "  " +
		subtleStyle.Render(r.Timestamp.Format("Mon Jan 2 15:04:05.000 MST 2006")+"  ("+mode+")")
	if m.done {
		header += "  " + warnStyle.Render("sampler stopped")
	}

	lines := make([]string, 0, len(shownCounters))
	for _, c := range shownCounters {
		p, err := r.Percentage(c)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%-7s %s", c, subtleStyle.Render("n/a")))
			continue
		}
		lines = append(lines, fmt.Sprintf("%-7s %s", c, gaugeBar(100*p, 28)))
	}
	cpuCard := card("CPU", strings.Join(lines, "\n"))

	columns := []string{cpuCard, m.coresCard(), m.processCard()}
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, columns...))
}

func (m *Model) coresCard() string {
	cores := m.latest.System.Cores()
	rows := make([]string, 0, len(cores))
	for _, c := range cores {
		id, _ := c.CoreID()
		rows = append(rows, fmt.Sprintf("cpu%-3d %s", id, gaugeBar(m.coreBusy(id, c), 16)))
	}
	if len(rows) == 0 {
		rows = append(rows, subtleStyle.Render("no per-core lines"))
	}
	return card(fmt.Sprintf("Cores (%d)", len(cores)), strings.Join(rows, "\n"))
}

// coreBusy is the non-idle share of core id since the previous reading, or
// since boot for the first one.
func (m *Model) coreBusy(id int, cur procfs.CPUStats) float64 {
	idle := cur.Idle + cur.IOWait
	total := cur.TotalTime()
	if m.previous != nil {
		if prev, err := m.previous.System.Core(id); err == nil && total >= prev.TotalTime() {
			idle -= prev.Idle + prev.IOWait
			total -= prev.TotalTime()
		}
	}
	if total == 0 {
		return 0
	}
	return 100 * (1 - float64(idle)/float64(total))
}

func (m *Model) processCard() string {
	p := m.latest.Process
	if p == nil {
		return card("Process", subtleStyle.Render("no tracked process"))
	}

	util := subtleStyle.Render("n/a")
	if u, ok, err := m.latest.ProcessUtilization(); err != nil {
		util = warnStyle.Render(err.Error())
	} else if ok {
		util = fmt.Sprintf("%.2f%%", 100*u)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %d (%s)\n", "pid", p.PID, truncate(p.ExecutableName, 18))
	fmt.Fprintf(&b, "%-10s %d / %d ct\n", "user/sys", p.UTime, p.STime)
	fmt.Fprintf(&b, "%-10s %d / %d ct\n", "children", p.CUTime, p.CSTime)
	fmt.Fprintf(&b, "%-10s %s", "cpu", util)
	if !m.bootTime.IsZero() {
		started := m.bootTime.Add(time.Duration(p.StartTime) * time.Second / UserHZ)
		fmt.Fprintf(&b, "\n%-10s %s", "started", started.Format("Jan 2 15:04:05"))
	}
	return card("Process", b.String())
}

// Helpers
func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RunTUI starts the Bubble Tea program on top of s.Stream. It returns when
// the user quits or ctx is done, with the error that stopped sampling if
// there was one.
func RunTUI(ctx context.Context, s *sampler.Sampler, bootTime time.Time) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	prog := tea.NewProgram(New(s.Stream(runCtx), cancel, bootTime), tea.WithAltScreen(), tea.WithContext(runCtx))
	_, err := prog.Run()
	return exitError(s.Err(), err, runCtx.Err())
}

// exitError ranks why the view stopped: a sampling failure first, then a
// program failure unless it was caused by cancellation.
func exitError(samplingErr, runErr, ctxErr error) error {
	if samplingErr != nil {
		return fmt.Errorf("sampling failed: %w", samplingErr)
	}
	if runErr != nil && ctxErr == nil {
		return runErr
	}
	return nil
}
