// Package hotkey provides a global dictation shortcut listener using gohook.
// It reports raw edges: in "hold" mode a press and a release, in "toggle"
// mode a single edge per press. What an edge means for the session is decided
// by the session engine, not here.
package hotkey

import (
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// EventType identifies a shortcut edge.
type EventType int

const (
	// EventPressed fires on key-down in hold mode.
	EventPressed EventType = iota
	// EventReleased fires on key-up in hold mode.
	EventReleased
	// EventToggled fires once per press in toggle mode.
	EventToggled
)

// Event is emitted on the channel returned by Events.
type Event struct {
	Type EventType
}

// Listener manages the global shortcut and emits edge events.
type Listener struct {
	keys []string
	mode string // "hold" or "toggle"
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given key combo and mode.
// keys are normalized with NormalizeCombo before registration.
func NewListener(keys []string, mode string) *Listener {
	return &Listener{
		keys: NormalizeCombo(keys),
		mode: mode,
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
}

// Events returns the channel that receives shortcut edges.
// The channel is closed when Stop is called.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Combo returns the normalized combo in wire form, e.g. "ctrl+shift+space".
func (l *Listener) Combo() string {
	return strings.Join(l.keys, "+")
}

// Start begins listening for the global shortcut.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	keys := hookKeys(l.keys)
	if l.mode == "toggle" {
		hook.Register(hook.KeyDown, keys, func(e hook.Event) {
			l.emit(Event{Type: EventToggled})
		})
	} else {
		hook.Register(hook.KeyDown, keys, func(e hook.Event) {
			l.emit(Event{Type: EventPressed})
		})
		hook.Register(hook.KeyUp, keys, func(e hook.Event) {
			l.emit(Event{Type: EventReleased})
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit sends without blocking; a full channel drops the edge rather than
// stalling the hook callback.
func (l *Listener) emit(ev Event) {
	select {
	case l.ch <- ev:
	default:
	}
}

// Stop terminates the listener. It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// NormalizeCombo maps user-facing key names to their canonical lowercase
// spellings, collapsing the aliases shortcut strings commonly use
// (cmd/control/commandorcontrol, option, super).
func NormalizeCombo(keys []string) []string {
	normalized := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		switch key {
		case "commandorcontrol", "cmd", "command", "control":
			key = "ctrl"
		case "option":
			key = "alt"
		case "super", "win":
			key = "windows"
		}
		normalized = append(normalized, key)
	}
	return normalized
}

// ParseCombo splits a "+"-separated combo string and normalizes it.
func ParseCombo(combo string) []string {
	return NormalizeCombo(strings.Split(combo, "+"))
}

// hookKeys converts a canonical combo to gohook's key names. gohook has no
// "windows" key; it calls the super key "cmd".
func hookKeys(keys []string) []string {
	mapped := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "windows" {
			key = "cmd"
		}
		mapped = append(mapped, key)
	}
	return mapped
}
