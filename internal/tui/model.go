// Package tui implements the interactive review of detected recurring series.
package tui

import (
	"slices"

	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/Veraticus/spice-forecast/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// State represents where the review currently is.
type State int

const (
	// StateReviewing means the user is still toggling series.
	StateReviewing State = iota
	// StateConfirmed means the user accepted the selection.
	StateConfirmed
	// StateAborted means the user quit without saving.
	StateAborted
)

// chromeLines is the number of lines taken by everything but the list.
const chromeLines = 8

// Model holds the review state. Series are copied, so the caller's slice is
// never mutated.
type Model struct {
	theme  themes.Theme
	keymap KeyMap
	help   help.Model
	title  string
	series []model.RecurringSeries
	cursor int
	offset int
	width  int
	height int
	state  State
}

// NewModel creates a review model over the detected series.
func NewModel(series []model.RecurringSeries, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newModel(series, cfg)
}

func newModel(series []model.RecurringSeries, cfg Config) Model {
	h := help.New()
	h.Styles.ShortKey = cfg.Theme.Normal
	h.Styles.ShortDesc = cfg.Theme.Muted
	h.Styles.FullKey = cfg.Theme.Normal
	h.Styles.FullDesc = cfg.Theme.Muted

	return Model{
		theme:  cfg.Theme,
		keymap: DefaultKeyMap(),
		help:   h,
		title:  cfg.Title,
		series: slices.Clone(series),
		width:  cfg.Width,
		height: cfg.Height,
		state:  StateReviewing,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampOffset()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.state = StateAborted
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Confirm):
		m.state = StateConfirmed
		return m, tea.Quit

	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keymap.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keymap.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keymap.PageUp):
		m.moveCursor(-m.pageSize())
	case key.Matches(msg, m.keymap.PageDown):
		m.moveCursor(m.pageSize())
	case key.Matches(msg, m.keymap.Home):
		m.moveCursor(-len(m.series))
	case key.Matches(msg, m.keymap.End):
		m.moveCursor(len(m.series))

	case key.Matches(msg, m.keymap.Toggle):
		if len(m.series) > 0 {
			m.series[m.cursor].Enabled = !m.series[m.cursor].Enabled
		}
	case key.Matches(msg, m.keymap.SelectAll):
		m.setAll(true)
	case key.Matches(msg, m.keymap.SelectNone):
		m.setAll(false)
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	if len(m.series) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.series)-1, m.cursor+delta))
	m.clampOffset()
}

func (m *Model) clampOffset() {
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	m.offset = max(0, m.offset)
}

func (m *Model) setAll(enabled bool) {
	for i := range m.series {
		m.series[i].Enabled = enabled
	}
}

func (m Model) pageSize() int {
	return max(1, m.height-chromeLines)
}

// State returns where the review ended up.
func (m Model) State() State {
	return m.state
}

// Series returns the reviewed series with their Enabled flags as toggled.
func (m Model) Series() []model.RecurringSeries {
	return slices.Clone(m.series)
}

// Selected returns how many series are enabled.
func (m Model) Selected() int {
	n := 0
	for _, s := range m.series {
		if s.Enabled {
			n++
		}
	}
	return n
}
