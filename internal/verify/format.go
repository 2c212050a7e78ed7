package verify

import (
	"fmt"
	"strings"
	"time"
)

// maxListedMismatches bounds how many mismatches are printed per layer.
const maxListedMismatches = 5

// FormatReport renders a human-readable report.
func FormatReport(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Verification of %s (%s)\n", r.BaseURL, r.Duration.Round(time.Millisecond))
	b.WriteString(strings.Repeat("─", 60) + "\n")

	for _, l := range r.Layers {
		status := "ok"
		switch {
		case l.Error != "":
			status = "ERROR"
		case len(l.Mismatches) > 0:
			status = "MISMATCH"
		}
		live := ""
		if l.Live {
			live = " +live"
		}
		fmt.Fprintf(&b, "  %-12s seed=%-10d count=%-5d effective=%-10d %s%s\n",
			l.Name, l.Seed, l.Count, l.EffectiveSeed, status, live)

		if l.Error != "" {
			fmt.Fprintf(&b, "      %s\n", l.Error)
		}
		for i, m := range l.Mismatches {
			if i == maxListedMismatches {
				fmt.Fprintf(&b, "      ... %d more\n", len(l.Mismatches)-maxListedMismatches)
				break
			}
			fmt.Fprintf(&b, "      %s\n", m)
		}
	}

	if m := r.Metrics; m != nil {
		b.WriteString("\nServer metrics:\n")
		fmt.Fprintf(&b, "  Layers:       %.0f\n", m.Layers)
		fmt.Fprintf(&b, "  Generations:  %.0f (%.0f particles)\n", m.Generations, m.Particles)
		fmt.Fprintf(&b, "  Cache:        %.0f hits / %.0f misses (%.1f%% hit ratio)\n",
			m.CacheHits, m.CacheMisses, m.HitRatio()*100)
	}

	b.WriteString("\n")
	if r.OK() {
		b.WriteString("✓ All layers match local generation\n")
	} else {
		fmt.Fprintf(&b, "⚠️  %d of %d layer(s) failed, %d mismatch(es)\n", r.Failed(), len(r.Layers), r.Mismatches())
	}
	return b.String()
}
