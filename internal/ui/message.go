package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tunepool/internal/tasks"
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
	MsgSnapshot MsgKind = iota
	MsgSubscriptionClosed
	MsgActionDone
)

// snapshotMsg is the constructor for [MsgSnapshot]
func snapshotMsg(snap tasks.Snapshot) Msg {
	return Msg{kind: MsgSnapshot, data: snap}
}

// closedMsg is the constructor for [MsgSubscriptionClosed]
func closedMsg() Msg {
	return Msg{kind: MsgSubscriptionClosed}
}

// actionDoneMsg is the constructor for [MsgActionDone]; notice is shown in the status line.
func actionDoneMsg(notice string, err error) Msg {
	return Msg{
		kind: MsgActionDone,
		data: actionResult{notice: notice, err: err},
	}
}

type actionResult struct {
	notice string
	err    error
}
