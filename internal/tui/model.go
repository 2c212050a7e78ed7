package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
	"github.com/randomizedcoder/go-mist-scatter/internal/stats"
)

// frameInterval is the preview animation step.
const frameInterval = 100 * time.Millisecond

// =============================================================================
// Messages
// =============================================================================

// TickMsg advances the preview animation.
type TickMsg time.Time

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	layers   []scatter.Layer
	cache    *scatter.Cache
	maxCount uint

	// Current layer, with any seed/count changes applied
	index     int
	active    scatter.Layer
	particles []scatter.Particle
	summary   stats.LayerSummary

	// Animation
	clock  time.Duration // simulated page time
	paused bool

	// Display options
	showStats bool
	width     int
	height    int

	quitting bool
}

// Config holds TUI configuration.
type Config struct {
	Layers   []scatter.Layer // shown in order; empty uses the built-in presets
	Cache    *scatter.Cache  // nil creates a private cache
	MaxCount uint           // upper bound for "+"; 0 means 10000
	Stats    bool           // open with the stats panel visible
}

// New creates a new TUI model.
func New(cfg Config) Model {
	layers := cfg.Layers
	if len(layers) == 0 {
		layers = scatter.DefaultLayerSet().All()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = scatter.NewCache(0, nil)
	}
	maxCount := cfg.MaxCount
	if maxCount == 0 {
		maxCount = 10000
	}

	m := Model{
		layers:    layers,
		cache:     cache,
		maxCount:  maxCount,
		showStats: cfg.Stats,
		width:     80,
		height:    24,
	}
	m.selectLayer(0)
	return m
}

// selectLayer switches to layers[i] at its configured seed and count.
func (m *Model) selectLayer(i int) {
	n := len(m.layers)
	m.index = ((i % n) + n) % n
	m.active = m.layers[m.index]
	m.regenerate()
}

// regenerate refreshes particles and their summary for the active layer.
func (m *Model) regenerate() {
	m.particles = m.cache.Particles(m.active)
	m.summary = stats.Summarize(m.active, m.particles)
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if !m.paused {
			m.clock += frameInterval
		}
		return m, tickCmd()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "right", "l":
		m.selectLayer(m.index + 1)
	case "shift+tab", "left", "h":
		m.selectLayer(m.index - 1)

	case "up", "k":
		m.active.Seed++
		m.regenerate()
	case "down", "j":
		m.active.Seed--
		m.regenerate()

	case "+", "=":
		if m.active.Count < m.maxCount {
			m.active.Count++
			m.regenerate()
		}
	case "-", "_":
		if m.active.Count > 0 {
			m.active.Count--
			m.regenerate()
		}

	case "r":
		m.selectLayer(m.index)
		m.clock = 0
	case "s":
		m.showStats = !m.showStats
	case "p", " ":
		m.paused = !m.paused
	}
	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderView()
}

// =============================================================================
// Commands
// =============================================================================

func tickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Layer returns the active layer including seed and count changes.
func (m Model) Layer() scatter.Layer {
	return m.active
}

// Particles returns the active layer's particles.
func (m Model) Particles() []scatter.Particle {
	return m.particles
}

// Summary returns the active layer's distribution summary.
func (m Model) Summary() stats.LayerSummary {
	return m.summary
}

// Clock returns the simulated page time driving the animation.
func (m Model) Clock() time.Duration {
	return m.clock
}

// Paused reports whether the animation is frozen.
func (m Model) Paused() bool {
	return m.paused
}

// ShowStats reports whether the stats panel is visible.
func (m Model) ShowStats() bool {
	return m.showStats
}

// =============================================================================
// Helper for external use
// =============================================================================

// Run starts a full-screen program for the model and blocks until it exits.
func Run(m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}
