// Package tui provides an interactive terminal preview of particle layers.
//
// The preview is a Bubble Tea program styled with Lipgloss. It shows:
// - An animated character-cell sky with the selected layer's particles
// - The layer's seed, count and effective seed
// - Where each field's observed values fall inside its range
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// =============================================================================
// Palette
// =============================================================================

// Colors from the page the layers decorate: deep night sky, haze and a
// firefly highlight.
var (
	nightSky   = lipgloss.Color("#060913")
	nightBand  = lipgloss.Color("#1E1B4B")
	haze       = lipgloss.Color("#A5B4FC")
	hazeBright = lipgloss.Color("#E0E7FF")
	fogGray    = lipgloss.Color("#94A3B8")
	fogDim     = lipgloss.Color("#475569")
	firefly    = lipgloss.Color("#FDE68A")
	ember      = lipgloss.Color("#FB923C")
	alarm      = lipgloss.Color("#F87171")
	frame      = lipgloss.Color("#334155")
)

// =============================================================================
// Styles
// =============================================================================

var (
	titleBar = lipgloss.NewStyle().
			Foreground(hazeBright).
			Background(nightBand).
			Bold(true).
			Padding(0, 1)

	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frame).
		Padding(0, 1)

	panelTitle = lipgloss.NewStyle().
			Foreground(haze).
			Bold(true).
			Underline(true)

	columnHeads = lipgloss.NewStyle().
			Foreground(fogGray)

	fieldLabel = lipgloss.NewStyle().
			Foreground(fogGray).
			Width(16)

	fieldValue = lipgloss.NewStyle().
			Foreground(hazeBright)

	presetNote = lipgloss.NewStyle().
			Foreground(fogDim).
			Italic(true)

	emptyNote = lipgloss.NewStyle().
			Foreground(fogDim)

	keyHints = lipgloss.NewStyle().
			Foreground(fogDim).
			MarginTop(1)

	skyStyle = lipgloss.NewStyle().
			Background(nightSky)

	// Preview glyph styles, faintest to brightest.
	glyphStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(fogDim).Background(nightSky),
		lipgloss.NewStyle().Foreground(fogGray).Background(nightSky),
		lipgloss.NewStyle().Foreground(hazeBright).Background(nightSky),
		lipgloss.NewStyle().Foreground(firefly).Background(nightSky),
	}

	rangeSeen   = lipgloss.NewStyle().Foreground(haze)
	rangeUnseen = lipgloss.NewStyle().Foreground(frame)
)

// =============================================================================
// Coverage grading
// =============================================================================

// CoverageStatus grades how much of a field's range a layer actually spans.
type CoverageStatus int

const (
	CoverageGood CoverageStatus = iota
	CoverageSparse
	CoverageOutOfRange
)

// GetCoverageStatus grades coverage; any out-of-range value trumps coverage.
func GetCoverageStatus(coverage float64, violations int) CoverageStatus {
	if violations > 0 {
		return CoverageOutOfRange
	}
	if coverage < 0.5 {
		return CoverageSparse
	}
	return CoverageGood
}

// noteStyle colours the note printed after a field's range bar.
func noteStyle(status CoverageStatus) lipgloss.Style {
	c := firefly
	switch status {
	case CoverageOutOfRange:
		c = alarm
	case CoverageSparse:
		c = ember
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// =============================================================================
// Helpers
// =============================================================================

// RenderField renders one "Label: value" row of the layer panel.
func RenderField(label, value string) string {
	return fieldLabel.Render(label+":") + fieldValue.Render(value)
}

// RenderRangeBar draws span as width cells and highlights the cells between
// lo and hi, the observed extremes. Values outside span are clamped to the
// bar's ends. The observed share of the span follows as a percentage.
func RenderRangeBar(span scatter.Span, lo, hi float64, width int) string {
	if width < 4 {
		width = 4
	}

	first, last := 0, width-1
	if span.Width > 0 {
		first = rangeCell(span, lo, width)
		last = rangeCell(span, hi, width)
	}

	var b strings.Builder
	if first > 0 {
		b.WriteString(rangeUnseen.Render(strings.Repeat("─", first)))
	}
	b.WriteString(rangeSeen.Render(strings.Repeat("━", last-first+1)))
	if last < width-1 {
		b.WriteString(rangeUnseen.Render(strings.Repeat("─", width-1-last)))
	}

	share := 1.0
	if span.Width > 0 {
		share = (hi - lo) / span.Width
	}
	fmt.Fprintf(&b, " %3.0f%%", share*100)
	return b.String()
}

func rangeCell(span scatter.Span, v float64, width int) int {
	cell := int((v - span.Base) / span.Width * float64(width))
	if cell < 0 {
		return 0
	}
	if cell >= width {
		return width - 1
	}
	return cell
}
