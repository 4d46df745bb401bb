package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/machine"
)

var units = map[string]string{
	"Is1": "A", "Is2": "A", "Ir1": "A", "Ir2": "A",
	"E1_pu": "pu", "StatorLosses": "W", "RotorLosses": "W",
	"ShaftPower_hp": "hp", "Efficiency_pct": "%",
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

func row(label, value, unit string, labelWidth int) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		MetricLabel.Width(labelWidth).Render(label),
		MetricValue.Render(value),
		Subtle.Render(" "+unit),
	)
}

// Outputs renders device outputs as a two-column panel.
func Outputs(title string, outs []machine.Output) string {
	width := 0
	for _, o := range outs {
		width = max(width, len(o.Name))
	}

	lines := []string{Title.Render(title)}
	for _, o := range outs {
		lines = append(lines, row(o.Name, formatValue(o.Value), units[o.Name], width+2))
	}
	return Panel.Render(strings.Join(lines, "\n"))
}

// Metrics renders a metric map sorted by name.
func Metrics(title string, m map[string]float64) string {
	names := make([]string, 0, len(m))
	width := 0
	for name := range m {
		names = append(names, name)
		width = max(width, len(name))
	}
	sort.Strings(names)

	lines := []string{Title.Render(title)}
	for _, name := range names {
		lines = append(lines, row(name, formatValue(m[name]), "", width+2))
	}
	return Panel.Render(strings.Join(lines, "\n"))
}

// Sample renders one operating point.
func Sample(title string, s dynamo.Sample) string {
	outs := []machine.Output{
		{Name: "t", Value: s.T},
		{Name: "Slip", Value: s.Slip},
		{Name: "Speed", Value: s.Speed},
		{Name: "V1_pu", Value: s.V1},
		{Name: "Is1", Value: s.Is1},
		{Name: "Is2", Value: s.Is2},
		{Name: "P_kW", Value: s.P / 1000},
		{Name: "Q_kvar", Value: s.Q / 1000},
	}
	return Outputs(title, outs)
}
