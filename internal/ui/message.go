package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lumen/internal/models"
	"github.com/desertthunder/lumen/internal/tasks"
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
	MsgItemResolved MsgKind = iota
	MsgAllResolved
	MsgProgressUpdate
	MsgLoadDone
	MsgOpened
)

type itemResolved struct {
	index    int
	playlist *models.Playlist
	err      error
}

// itemResolvedMsg is the constructor for [MsgItemResolved]
func itemResolvedMsg(index int, p *models.Playlist, err error) Msg {
	return Msg{kind: MsgItemResolved, data: itemResolved{index, p, err}}
}

// allResolvedMsg is the constructor for [MsgAllResolved]
func allResolvedMsg() Msg {
	return Msg{kind: MsgAllResolved}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// loadDoneMsg is the constructor for [MsgLoadDone]; err is the page-level load error, if any.
func loadDoneMsg(err error) Msg {
	return Msg{kind: MsgLoadDone, data: err}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}
