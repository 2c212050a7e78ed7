package stats

import (
	"fmt"
	"strings"
)

const ruleWidth = 79

// FormatSummary renders a LayerSummary as a fixed-width text report.
func FormatSummary(s LayerSummary) string {
	var b strings.Builder

	b.WriteString(strings.Repeat("═", ruleWidth) + "\n")
	fmt.Fprintf(&b, "  Layer %q\n", s.Layer)
	b.WriteString(strings.Repeat("═", ruleWidth) + "\n\n")

	fmt.Fprintf(&b, "  Seed:            %d\n", s.Seed)
	fmt.Fprintf(&b, "  Effective seed:  %d\n", s.EffectiveSeed)
	fmt.Fprintf(&b, "  Particles:       %d\n\n", s.Count)

	if s.Count == 0 {
		b.WriteString("  (empty layer)\n")
		return b.String()
	}

	fmt.Fprintf(&b, "  %-9s %-18s %9s %9s %9s %9s %9s %8s\n",
		"Field", "Range", "Min", "P50", "P95", "Max", "Mean", "Cover")
	b.WriteString("  " + strings.Repeat("─", ruleWidth-2) + "\n")

	for _, f := range s.Fields {
		fmt.Fprintf(&b, "  %-9s %-18s %9s %9s %9s %9s %9s %8s\n",
			f.Field,
			f.Span.String(),
			FormatValue(f.Min),
			FormatValue(f.P50),
			FormatValue(f.P95),
			FormatValue(f.Max),
			FormatValue(f.Mean),
			FormatPercent(f.Coverage()),
		)
	}

	b.WriteString("\n")
	if v := s.Violations(); v > 0 {
		fmt.Fprintf(&b, "  ⚠️  %d value(s) outside their range\n", v)
	} else {
		b.WriteString("  All values within range\n")
	}

	return b.String()
}

// FormatValue formats a field value with precision suited to its magnitude.
func FormatValue(v float64) string {
	switch {
	case v >= 100 || v <= -100:
		return fmt.Sprintf("%.1f", v)
	case v >= 1 || v <= -1:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.3f", v)
	}
}

// FormatPercent formats a fraction as a percentage.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
