// Package tui is a terminal live view that steps a simulator in real time.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/sim"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	stepsPerTick = 10
	historyLen   = 120

	sagDuration = 0.1
	sagVoltage  = 0.7
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// LiveModel steps a simulator that has already entered dynamics.
type LiveModel struct {
	sim      *sim.Simulator
	name     string
	duration float64

	paused bool
	done   bool
	speed  float64

	last        dynamo.Sample
	slip        []float64
	is1         []float64
	unconverged int
	err         error

	width  int
	height int
}

func NewLive(s *sim.Simulator, name string, duration float64) *LiveModel {
	return &LiveModel{
		sim:      s,
		name:     name,
		duration: duration,
		speed:    1.0,
		last:     s.Sample(),
		slip:     make([]float64, 0, historyLen),
		is1:      make([]float64, 0, historyLen),
		width:    80,
		height:   24,
	}
}

func (m *LiveModel) Init() tea.Cmd { return tick() }

func (m *LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused && !m.done {
			m.advance(max(int(stepsPerTick*m.speed), 1))
		}
		return m, tick()
	}
	return m, nil
}

func (m *LiveModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "+", "=":
		m.speed = math.Min(m.speed*2, 16)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.25)
	case "0":
		m.speed = 1.0
	case "s":
		m.sim.SetDisturbance(sim.Disturbance{
			At:        m.last.T,
			Duration:  sagDuration,
			VoltagePU: sagVoltage,
		})
	}
	return nil
}

func (m *LiveModel) advance(steps int) {
	for n := 0; n < steps; n++ {
		if m.last.T >= m.duration {
			m.done = true
			return
		}

		sample, err := m.sim.Step(context.Background())
		if err != nil {
			if !errors.Is(err, dynamo.ErrNotConverged) {
				m.err = err
				m.done = true
				return
			}
			m.unconverged++
		}
		if !sample.IsValid() {
			m.err = dynamo.ErrInvalidState
			m.done = true
			return
		}

		m.last = sample
		m.slip = push(m.slip, sample.Slip)
		m.is1 = push(m.is1, sample.Is1)
	}
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyLen {
		h = h[len(h)-historyLen:]
	}
	return h
}

func (m *LiveModel) View() string {
	var b strings.Builder

	statusIcon, statusText := green.Render("●"), green.Render("running")
	switch {
	case m.err != nil:
		statusIcon, statusText = red.Render("●"), red.Render(m.err.Error())
	case m.done:
		statusIcon, statusText = dim.Render("■"), dim.Render("done")
	case m.paused:
		statusIcon, statusText = yellow.Render("○"), yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s\n", statusIcon, cyan.Render(m.name), statusText))

	progress := math.Min(m.last.T/m.duration, 1)
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s\n\n", bar,
		dim.Render(fmt.Sprintf("%.3fs/%.1fs", m.last.T, m.duration)),
		dim.Render(fmt.Sprintf("x%.2g", m.speed))))

	field := func(label string, v float64, format string) string {
		return dim.Render(label+"=") + white.Render(fmt.Sprintf(format, v)) + "  "
	}
	b.WriteString("   " +
		field("slip", m.last.Slip, "%.5f") +
		field("V1", m.last.V1, "%.3f") +
		field("Is1", m.last.Is1, "%.1f") +
		field("P", m.last.P/1000, "%.1fkW") +
		field("Q", m.last.Q/1000, "%.1fkvar") + "\n")
	if m.unconverged > 0 {
		b.WriteString("   " + yellow.Render(fmt.Sprintf("%d steps not converged", m.unconverged)) + "\n")
	}
	b.WriteString("\n")

	plotWidth := max(m.width-16, 40)
	plotHeight := max((m.height-14)/2, 4)
	for _, p := range []struct {
		caption string
		data    []float64
	}{{"slip", m.slip}, {"Is1 (A)", m.is1}} {
		if len(p.data) < 2 {
			continue
		}
		graph := asciigraph.Plot(p.data,
			asciigraph.Width(plotWidth),
			asciigraph.Height(plotHeight),
			asciigraph.Caption(p.caption),
		)
		b.WriteString(indent(graph, "   ") + "\n\n")
	}

	b.WriteString(dim.Render("   space pause  ±speed  s sag  q quit") + "\n")
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// Run starts the live view full screen and blocks until the user quits.
func Run(s *sim.Simulator, name string, duration float64) error {
	p := tea.NewProgram(NewLive(s, name, duration), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
