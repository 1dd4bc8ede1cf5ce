// Package deliver sends composed text deltas into whatever application holds
// OS focus, using robotgo for clipboard and keystroke synthesis.
//
// Delivery is tiered: clipboard write plus a synthesized paste keystroke is
// preferred, direct typing is used for very short deltas, and a bare clipboard
// write is the terminal fallback when no automation is available. Whatever
// happens, the text ends up on the clipboard.
package deliver

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/go-vgo/robotgo"

	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/pkg/logger"
)

// WindowHider defocuses and hides the dictation app's own windows. It must
// complete before any injection, because synthesized input lands in whichever
// window holds focus.
type WindowHider interface {
	HideWindows()
}

// NopHider is a WindowHider for headless runs with no windows of our own.
type NopHider struct{}

// HideWindows implements WindowHider.
func (NopHider) HideWindows() {}

// Capabilities reports which injection mechanisms are usable.
type Capabilities struct {
	Paste bool // synthesized paste keystroke
	Type  bool // direct character-stream typing
}

// capsForMethod maps the configured method to enabled tiers.
// "auto" enables everything; "clipboard" disables all keystroke synthesis.
func capsForMethod(method string) Capabilities {
	switch method {
	case "paste":
		return Capabilities{Paste: true}
	case "type":
		return Capabilities{Type: true}
	case "clipboard":
		return Capabilities{}
	default: // "auto"
		return Capabilities{Paste: true, Type: true}
	}
}

// backend abstracts the robotgo calls so tier selection is testable.
type backend interface {
	WriteClipboard(text string) error
	ReadClipboard() (string, error)
	PasteKeystroke() error
	TypeText(text string)
}

// robotgoBackend is the production backend.
type robotgoBackend struct{}

func (robotgoBackend) WriteClipboard(text string) error {
	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("deliver: write to clipboard: %w", err)
	}
	return nil
}

func (robotgoBackend) ReadClipboard() (string, error) {
	return robotgo.ReadAll()
}

func (robotgoBackend) PasteKeystroke() error {
	if err := robotgo.KeyTap("v", pasteModifier()); err != nil {
		return fmt.Errorf("deliver: key tap paste: %w", err)
	}
	return nil
}

func (robotgoBackend) TypeText(text string) {
	robotgo.Type(text)
}

// pasteModifier returns the paste chord modifier for the current OS.
func pasteModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// Deliverer sends text deltas to the focused external application.
type Deliverer struct {
	caps    Capabilities
	typeMax int
	hider   WindowHider
	backend backend
	log     *logger.Logger
}

// New creates a Deliverer from config. hider may be nil for headless runs.
func New(cfg config.DeliverConfig, hider WindowHider, log *logger.Logger) *Deliverer {
	if hider == nil {
		hider = NopHider{}
	}
	typeMax := cfg.TypeMaxChars
	if typeMax <= 0 {
		typeMax = 24
	}
	return &Deliverer{
		caps:    capsForMethod(cfg.Method),
		typeMax: typeMax,
		hider:   hider,
		backend: robotgoBackend{},
		log:     log.Named("deliver"),
	}
}

// Deliver sends one delta to the focused application. Whitespace-only deltas
// are dropped. Injection failures degrade tier by tier and never propagate;
// the returned error is non-nil only if even the clipboard write failed.
func (d *Deliverer) Deliver(delta string) error {
	if strings.TrimSpace(delta) == "" {
		return nil
	}

	// Our windows must be out of the way before any keystroke is synthesized.
	d.hider.HideWindows()

	switch {
	case d.caps.Paste:
		return d.pasteDelta(delta)
	case d.caps.Type && len(delta) <= d.typeMax:
		d.backend.TypeText(delta)
		return nil
	default:
		// Manual-paste fallback: degraded but not a failure.
		return d.backend.WriteClipboard(delta)
	}
}

// pasteDelta writes the delta to the clipboard and synthesizes a paste.
// The previous clipboard is restored afterwards, best effort. If the paste
// keystroke fails, the delta stays on the clipboard as ground truth and a
// short delta is retried via direct typing.
func (d *Deliverer) pasteDelta(delta string) error {
	prev, prevErr := d.backend.ReadClipboard()

	if err := d.backend.WriteClipboard(delta); err != nil {
		if d.caps.Type && len(delta) <= d.typeMax {
			d.backend.TypeText(delta)
			return nil
		}
		return err
	}

	if err := d.backend.PasteKeystroke(); err != nil {
		d.log.Warn("paste keystroke failed, text left on clipboard", logger.Error(err))
		if d.caps.Type && len(delta) <= d.typeMax {
			d.backend.TypeText(delta)
		}
		return nil
	}

	if prevErr == nil {
		_ = d.backend.WriteClipboard(prev)
	}
	return nil
}
