// Package ipc exposes daemon control over a unix socket.
//
// The CLI subcommands (start, stop, toggle, status) talk to a running daemon
// using newline-delimited JSON: one Command per request line, one Response
// per reply line.
package ipc

import "time"

// Actions accepted by the daemon.
const (
	ActionStart  = "start"
	ActionStop   = "stop"
	ActionToggle = "toggle"
	ActionStatus = "status"
)

// Command is a request from the CLI to the daemon.
type Command struct {
	ID        string    `json:"id"`     // unique identifier for request correlation
	Action    string    `json:"action"` // start, stop, toggle, status
	Timestamp time.Time `json:"timestamp"`
}

// Response is the daemon's reply to a Command.
type Response struct {
	ID      string            `json:"id"` // matches the request id
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

// Response data keys.
const (
	DataKeyState = "state"
	DataKeyTurn  = "turn"
)
