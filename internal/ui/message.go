package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jukebox/internal/playback"
	"github.com/desertthunder/jukebox/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlayed MsgKind = iota
	MsgEvent
	MsgEventsClosed
	MsgSnapshot
	MsgControl
)

type playedData struct {
	result *tasks.PlayResult
	err    error
}

type snapshotData struct {
	snapshot playback.Snapshot
	err      error
}

type controlData struct {
	status string
	err    error
}

// playedMsg is the constructor for [MsgPlayed]
func playedMsg(result *tasks.PlayResult, err error) Msg {
	return Msg{kind: MsgPlayed, data: playedData{result, err}}
}

// eventMsg is the constructor for [MsgEvent]
func eventMsg(e playback.Event) Msg {
	return Msg{kind: MsgEvent, data: e}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(snap playback.Snapshot, err error) Msg {
	return Msg{kind: MsgSnapshot, data: snapshotData{snap, err}}
}

// controlMsg is the constructor for [MsgControl]
func controlMsg(status string, err error) Msg {
	return Msg{kind: MsgControl, data: controlData{status, err}}
}
