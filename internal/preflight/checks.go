// Package preflight provides serve-mode startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// baseFDs covers the listener, logging, metrics scrapes and plain API
// requests before any websocket client is counted.
const baseFDs = 64

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// Options describes the server about to start.
type Options struct {
	Addr        string
	LiveClients int // expected concurrent websocket clients
	MaxCount    int
	Layers      *scatter.LayerSet
}

// RunAll executes all serve-mode checks. Warnings never fail the result.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 3),
		Passed: true,
	}

	for _, check := range []Check{
		checkFileDescriptors(opts.LiveClients),
		checkListenAddr(opts.Addr),
		checkLayers(opts.Layers, opts.MaxCount),
	} {
		result.Checks = append(result.Checks, check)
		if !check.Passed {
			result.Passed = false
		}
	}

	return result
}

// checkFileDescriptors verifies the fd limit covers the live clients.
func checkFileDescriptors(liveClients int) Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}

	required := liveClients + baseFDs
	actual := int(min(limit.Cur, uint64(1<<31-1)))

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d for %d live clients)", actual, required, liveClients),
	}
}

// checkListenAddr verifies the address can be bound right now.
func checkListenAddr(addr string) Check {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{
			Name:    "listen_addr",
			Passed:  false,
			Message: fmt.Sprintf("cannot bind %s: %v", addr, err),
		}
	}
	ln.Close()

	return Check{
		Name:    "listen_addr",
		Passed:  true,
		Message: fmt.Sprintf("%s is available", addr),
	}
}

// checkLayers verifies every served layer has valid ranges and a count no
// larger than what a client may request.
func checkLayers(set *scatter.LayerSet, maxCount int) Check {
	if set == nil || set.Len() == 0 {
		return Check{
			Name:    "layers",
			Passed:  false,
			Message: "no layers to serve",
		}
	}

	var oversized []string
	for _, l := range set.All() {
		if err := l.Ranges.Validate(); err != nil {
			return Check{
				Name:    "layers",
				Passed:  false,
				Message: fmt.Sprintf("layer %q: %v", l.Name, err),
			}
		}
		if maxCount > 0 && l.Count > uint(maxCount) {
			oversized = append(oversized, l.Name)
		}
	}

	if len(oversized) > 0 {
		return Check{
			Name:    "layers",
			Passed:  false,
			Message: fmt.Sprintf("default count above max_count %d: %v", maxCount, oversized),
		}
	}
	return Check{
		Name:    "layers",
		Passed:  true,
		Message: fmt.Sprintf("%d layer(s) valid", set.Len()),
	}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 8192, or lower -live-clients"
	case "listen_addr":
		return "choose a free address with -serve, or stop the process holding it"
	case "layers":
		return "fix the -layers file (ranges: width >= 0, opacity within [0, 1]; count <= -max-count)"
	default:
		return "see -help"
	}
}
