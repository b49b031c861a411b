package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/desertthunder/jukebox/internal/tasks"
)

// Focus is the component receiving key presses.
type Focus int

const (
	InputFocus Focus = iota
	QueueFocus
)

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	key       string
	engine    tasks.Controller
	hub       *playback.Hub
	sub       *playback.Subscription
	focus     Focus
	width     int
	height    int
	input     textinput.Model
	queue     list.Model
	snapshot  playback.Snapshot
	resolving bool
	status    string
	failed    bool
	help      help.Model
	keys      keyMap
}

// NewModel creates a TUI model for the session identified by key.
//
// The model subscribes to hub right away; call [Model.Close] once the program exits.
func NewModel(ctx context.Context, key string, engine tasks.Controller, hub *playback.Hub) *Model {
	input := textinput.New()
	input.Placeholder = "URL or search"
	input.Prompt = "♪ "
	input.CharLimit = 256
	input.Focus()

	queue := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	queue.Title = "Up Next"
	queue.SetShowHelp(false)
	queue.SetFilteringEnabled(false)

	m := &Model{
		ctx:    ctx,
		key:    key,
		engine: engine,
		hub:    hub,
		focus:  InputFocus,
		input:  input,
		queue:  queue,
		help:   help.New(),
		keys:   newKeyMap(),
	}
	if hub != nil {
		m.sub = hub.Subscribe()
	}
	return m
}

// Close releases the event subscription.
func (m *Model) Close() {
	if m.hub != nil && m.sub != nil {
		m.hub.Unsubscribe(m.sub)
	}
}

// Init starts the cursor blink, loads the queue and waits for session events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetSize(msg.Width-4, max(msg.Height-12, 4))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.focus {
		case InputFocus:
			return m.handleInputKeys(msg)
		case QueueFocus:
			return m.handleQueueKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlayed:
		data := msg.data.(playedData)
		m.resolving = false
		if data.err != nil {
			m.setStatus(tasks.FailureMessage(data.err), true)
			return m, nil
		}
		m.setStatus(data.result.Message(), false)
		return m, m.refresh()

	case MsgEvent:
		e := msg.data.(playback.Event)
		if e.Key != m.key {
			return m, m.waitForEvent()
		}
		switch e.Kind {
		case playback.EventNowPlaying:
			m.setStatus(fmt.Sprintf("Now playing %q", e.Item.Title()), false)
		case playback.EventTrackFailed:
			m.setStatus(fmt.Sprintf("could not play %q: %v", e.Item.Title(), e.Err), true)
		case playback.EventPlaybackHalted:
			m.setStatus(fmt.Sprintf("playback halted after %d failures, %d left in queue", e.Failures, e.Position), true)
		}
		return m, tea.Batch(m.refresh(), m.waitForEvent())

	case MsgEventsClosed:
		m.sub = nil
		return m, nil

	case MsgSnapshot:
		data := msg.data.(snapshotData)
		if data.err != nil && !errors.Is(data.err, shared.ErrSessionNotFound) {
			m.setStatus(tasks.FailureMessage(data.err), true)
			return m, nil
		}
		m.snapshot = data.snapshot
		return m, m.queue.SetItems(queueItems(data.snapshot.Queue))

	case MsgControl:
		data := msg.data.(controlData)
		if data.err != nil {
			m.setStatus(tasks.FailureMessage(data.err), true)
			return m, nil
		}
		m.setStatus(data.status, false)
		return m, m.refresh()
	}

	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submit):
		query := strings.TrimSpace(m.input.Value())
		if query == "" {
			m.setStatus(tasks.FailureMessage(shared.ErrMissingArgument), true)
			return m, nil
		}
		m.input.SetValue("")
		m.resolving = true
		m.setStatus(fmt.Sprintf("Looking up %q...", query), false)
		return m, m.play(query)
	case key.Matches(msg, m.keys.focus):
		m.focus = QueueFocus
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.focus):
		m.focus = InputFocus
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.skip):
		return m, m.skip()
	case key.Matches(msg, m.keys.pause):
		return m, m.togglePause()
	case key.Matches(msg, m.keys.stop):
		return m, m.stop()
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case InputFocus:
		m.input, cmd = m.input.Update(msg)
	case QueueFocus:
		m.queue, cmd = m.queue.Update(msg)
	}
	return m, cmd
}

func (m *Model) setStatus(status string, failed bool) {
	m.status = status
	m.failed = failed
}

func (m *Model) play(query string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.Play(m.ctx, m.key, query)
		return playedMsg(result, err)
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.engine.Queue(m.key)
		return snapshotMsg(snap, err)
	}
}

func (m *Model) skip() tea.Cmd {
	return func() tea.Msg {
		out, err := m.engine.Skip(m.key)
		if err != nil {
			return controlMsg("", err)
		}
		switch out.Kind {
		case playback.AdvanceAdvanced:
			return controlMsg(fmt.Sprintf("Skipped, now playing %q", out.Item.Title()), nil)
		case playback.AdvanceIdle:
			return controlMsg("Skipped, queue is empty", nil)
		default:
			return controlMsg("Nothing to skip", nil)
		}
	}
}

func (m *Model) togglePause() tea.Cmd {
	paused := m.snapshot.State == playback.StatePaused
	return func() tea.Msg {
		if paused {
			ok, err := m.engine.Resume(m.key)
			return controlMsg(changedStatus(ok, "Resumed", "Nothing to resume"), err)
		}
		ok, err := m.engine.Pause(m.key)
		return controlMsg(changedStatus(ok, "Paused", "Nothing to pause"), err)
	}
}

func (m *Model) stop() tea.Cmd {
	return func() tea.Msg {
		err := m.engine.Stop(m.key)
		return controlMsg("Stopped and cleared the queue", err)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-sub.Events:
			return eventMsg(e)
		case <-sub.Done:
			return eventsClosedMsg()
		case <-m.ctx.Done():
			return eventsClosedMsg()
		}
	}
}

func changedStatus(changed bool, yes, no string) string {
	if changed {
		return yes
	}
	return no
}

// View renders the player.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("jukebox · %s", m.key)))
	b.WriteString("\n")
	b.WriteString(m.renderNowPlaying())
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.snapshot.Queue) == 0 {
		b.WriteString(styles.help.Render("Queue is empty"))
	} else {
		b.WriteString(m.queue.View())
	}
	b.WriteString("\n\n")

	if m.status != "" {
		if m.failed {
			b.WriteString(styles.err.Render(m.status))
		} else {
			b.WriteString(styles.ok.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) renderNowPlaying() string {
	snap := m.snapshot
	if snap.Current == nil {
		if m.resolving {
			return styles.warn.Render("Looking up...")
		}
		if snap.Failures > 0 {
			return styles.warn.Render(fmt.Sprintf("Idle after %d failed starts", snap.Failures))
		}
		return styles.help.Render("Nothing playing")
	}

	marker := "▶"
	if snap.State == playback.StatePaused {
		marker = "⏸"
	}
	return styles.ok.Render(fmt.Sprintf("%s %s [%s]", marker, snap.Current.Title(), shared.FormatDuration(snap.Current.Duration())))
}

func (m *Model) renderHelp() string {
	var keys []key.Binding
	switch m.focus {
	case InputFocus:
		keys = []key.Binding{m.keys.submit, m.keys.focus}
	case QueueFocus:
		keys = []key.Binding{m.keys.up, m.keys.down, m.keys.skip, m.keys.pause, m.keys.stop, m.keys.focus, m.keys.quit}
	}
	return m.help.ShortHelpView(keys)
}
