package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-mist-scatter/internal/render"
	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
	"github.com/randomizedcoder/go-mist-scatter/internal/stats"
)

// previewRefHeight converts the float animation's vertical pixels to percent.
const previewRefHeight = 630

var glyphs = []rune{'░', '▒', '▓', '█'}

// =============================================================================
// Main View Rendering
// =============================================================================

func (m Model) renderView() string {
	sections := []string{
		m.renderHeader(),
		m.renderPreview(),
		m.renderLayerInfo(),
	}
	if m.showStats {
		sections = append(sections, m.renderStats())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	state := "▶"
	if m.paused {
		state = "⏸"
	}
	header := fmt.Sprintf(" mist-scatter │ layer %s (%d/%d) │ %s %.1fs ",
		m.active.Name, m.index+1, len(m.layers), state, m.clock.Seconds())

	return titleBar.Width(m.width).Render(header)
}

// =============================================================================
// Preview
// =============================================================================

// previewSize picks a grid that fits the terminal.
func (m Model) previewSize() (cols, rows int) {
	cols = m.width - 4
	if cols < 20 {
		cols = 20
	}
	rows = m.height / 2
	if rows < 6 {
		rows = 6
	}
	if rows > 20 {
		rows = 20
	}
	return cols, rows
}

// Grid rasterises particles at page time t (seconds) into a cols x rows grid
// of brightness levels, -1 for empty cells. Brightness follows opacity within
// its range; width follows scale.
func Grid(particles []scatter.Particle, r scatter.Ranges, cols, rows int, t float64) [][]int {
	grid := make([][]int, rows)
	for y := range grid {
		grid[y] = make([]int, cols)
		for x := range grid[y] {
			grid[y][x] = -1
		}
	}

	sprite := render.MistSprite()
	for _, p := range particles {
		dx, dy := render.FloatOffset(p.Delay, p.Duration, t)
		xPct := p.Left + (sprite.Width/2+dx)/render.ReferenceWidth*100
		yPct := p.Top + (sprite.Height/2+dy)/previewRefHeight*100

		cx := int(xPct / 100 * float64(cols))
		cy := int(yPct / 100 * float64(rows))
		if cy < 0 || cy >= rows {
			continue
		}

		level := 0
		if r.Opacity.Width > 0 {
			level = int((p.Opacity - r.Opacity.Base) / r.Opacity.Width * 3)
		}
		level = min(max(level, 0), 2)

		half := max(int(p.Scale*3), 1)
		for x := cx - half; x <= cx+half; x++ {
			if x < 0 || x >= cols {
				continue
			}
			l := level
			if x == cx {
				l++
			}
			if l > grid[cy][x] {
				grid[cy][x] = l
			}
		}
	}
	return grid
}

func (m Model) renderPreview() string {
	cols, rows := m.previewSize()
	grid := Grid(m.particles, m.active.Ranges, cols, rows, m.clock.Seconds())

	lines := make([]string, rows)
	for y, row := range grid {
		var b strings.Builder
		blank := 0
		flush := func() {
			if blank > 0 {
				b.WriteString(skyStyle.Render(strings.Repeat(" ", blank)))
				blank = 0
			}
		}
		for _, level := range row {
			if level < 0 {
				blank++
				continue
			}
			flush()
			b.WriteString(glyphStyles[level].Render(string(glyphs[level])))
		}
		flush()
		lines[y] = b.String()
	}

	return panel.Render(strings.Join(lines, "\n"))
}

// =============================================================================
// Layer Info
// =============================================================================

func (m Model) renderLayerInfo() string {
	l := m.active
	base := m.layers[m.index]

	seed := fmt.Sprintf("%d", l.Seed)
	if l.Seed != base.Seed {
		seed += presetNote.Render(fmt.Sprintf(" (preset %d)", base.Seed))
	}
	count := fmt.Sprintf("%d", l.Count)
	if l.Count != base.Count {
		count += presetNote.Render(fmt.Sprintf(" (preset %d)", base.Count))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		panelTitle.Render("Layer"),
		RenderField("Seed", seed),
		RenderField("Count", count),
		RenderField("Effective seed", fmt.Sprintf("%d", l.Effective())),
	)
	return panel.Width(m.width - 2).Render(content)
}

// =============================================================================
// Stats
// =============================================================================

func (m Model) renderStats() string {
	rows := []string{panelTitle.Render("Distribution")}

	if len(m.particles) == 0 {
		rows = append(rows, emptyNote.Render("(empty layer)"))
		return panel.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	rows = append(rows, columnHeads.Render(fmt.Sprintf("%-9s %-18s %8s %8s %8s  %s",
		"field", "range", "min", "p50", "max", "coverage")))
	for _, f := range m.summary.Fields {
		rows = append(rows, renderFieldRow(f))
	}
	return panel.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderFieldRow(f stats.FieldSummary) string {
	status := GetCoverageStatus(f.Coverage(), f.Violations)
	line := fmt.Sprintf("%-9s %-18s %8s %8s %8s  ",
		f.Field, f.Span.String(),
		stats.FormatValue(f.Min), stats.FormatValue(f.P50), stats.FormatValue(f.Max))

	bar := RenderRangeBar(f.Span, f.Min, f.Max, 12)
	if status != CoverageGood {
		bar += " " + noteStyle(status).Render(coverageNote(status, f.Violations))
	}
	return line + bar
}

func coverageNote(status CoverageStatus, violations int) string {
	switch status {
	case CoverageOutOfRange:
		return fmt.Sprintf("%d out of range", violations)
	case CoverageSparse:
		return "sparse"
	default:
		return ""
	}
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	return keyHints.Render("tab/←→ layer · ↑↓ seed · +/- count · s stats · p pause · r reset · q quit")
}
