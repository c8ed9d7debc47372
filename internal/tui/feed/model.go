// Package feed is the live TUI view of the event stream: a viewport
// tailing today's daily shard, with a surface filter for narrowing the
// firehose to one channel.
package feed

import (
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/steveyegge/samara/internal/stream"
)

// maxEvents caps the in-memory feed.
const maxEvents = 1000

// Model is the bubbletea model for the feed TUI.
type Model struct {
	width  int
	height int

	viewport viewport.Model

	events []Event
	filter string // surface filter; empty shows everything

	keys     KeyMap
	help     help.Model
	showHelp bool

	eventChan <-chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewModel creates a feed model with no source attached.
func NewModel() *Model {
	h := help.New()
	h.ShowAll = false

	return &Model{
		viewport: viewport.New(0, 0),
		events:   make([]Event, 0, maxEvents),
		keys:     DefaultKeyMap(),
		help:     h,
		done:     make(chan struct{}),
	}
}

// SetEventChannel sets the channel to receive events from.
func (m *Model) SetEventChannel(ch <-chan Event) {
	m.eventChan = ch
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.listenForEvents(),
		tea.SetWindowTitle("Samara Feed"),
	)
}

// eventMsg is sent when a new event arrives.
type eventMsg Event

// listenForEvents returns a command that waits for the next event.
func (m *Model) listenForEvents() tea.Cmd {
	if m.eventChan == nil {
		return nil
	}
	// Capture channels to avoid race with Model mutations
	eventChan := m.eventChan
	done := m.done
	return func() tea.Msg {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return nil
			}
			return eventMsg(event)
		case <-done:
			return nil
		}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()

	case eventMsg:
		m.addEvent(Event(msg))
		cmds = append(cmds, m.listenForEvents())
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes key presses.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closeOnce.Do(func() { close(m.done) })
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.updateViewportSize()
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.cycleFilter()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.filter = ""
		m.updateContent()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// cycleFilter advances the surface filter through the surfaces present
// in the feed, in canonical order, then back to showing everything.
func (m *Model) cycleFilter() {
	present := make(map[string]bool, len(m.events))
	for _, e := range m.events {
		present[e.Surface] = true
	}
	var order []string
	for _, s := range stream.Surfaces {
		if present[s] {
			order = append(order, s)
		}
	}
	if len(order) == 0 {
		m.filter = ""
		return
	}

	next := 0
	if m.filter != "" {
		for i, s := range order {
			if s == m.filter {
				next = i + 1
				break
			}
		}
	}
	if next >= len(order) {
		m.filter = ""
	} else {
		m.filter = order[next]
	}
	m.updateContent()
}

// addEvent appends to the feed, keeping the viewport pinned to the
// bottom when it was already there.
func (m *Model) addEvent(e Event) {
	m.events = append(m.events, e)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}

	atBottom := m.viewport.AtBottom()
	m.updateContent()
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// visible applies the surface filter.
func (m *Model) visible() []Event {
	if m.filter == "" {
		return m.events
	}
	var out []Event
	for _, e := range m.events {
		if e.Surface == m.filter {
			out = append(out, e)
		}
	}
	return out
}

// updateViewportSize recalculates the viewport dimensions.
func (m *Model) updateViewportSize() {
	headerHeight := 2
	helpHeight := 1
	if m.showHelp {
		helpHeight = 4
	}

	h := m.height - headerHeight - helpHeight
	if h < 3 {
		h = 3
	}
	w := m.width
	if w < 20 {
		w = 20
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.updateContent()
}

// updateContent refreshes the viewport from the event list.
func (m *Model) updateContent() {
	m.viewport.SetContent(m.renderFeed())
}
