package protocol

import "fmt"

// Mode selects how the worker interprets a capture turn.
type Mode int

const (
	// ModeHold records while the shortcut is held down.
	ModeHold Mode = iota
	// ModeToggle flips recording on and off on successive presses.
	ModeToggle
)

// String returns the wire spelling of the mode.
func (m Mode) String() string {
	if m == ModeToggle {
		return "TOGGLE"
	}
	return "HOLD"
}

// Outgoing commands, written to the worker's stdin one per line.
const (
	CommandStart = "START"
	CommandStop  = "STOP"
)

// SetModeCommand encodes a SET_MODE line for the given mode.
func SetModeCommand(mode Mode) string {
	return fmt.Sprintf("SET_MODE %s", mode)
}

// SetHoldKeysCommand encodes a SET_HOLD_KEYS line for a normalized combo
// such as "ctrl+shift+space".
func SetHoldKeysCommand(combo string) string {
	return fmt.Sprintf("SET_HOLD_KEYS %s", combo)
}
