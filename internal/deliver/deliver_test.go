package deliver

import (
	"errors"
	"testing"

	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/pkg/logger"
)

// fakeBackend records calls and can fail selectively.
type fakeBackend struct {
	clipboard string
	writeErr  error
	pasteErr  error

	writes []string
	pastes int
	typed  []string
}

func (f *fakeBackend) WriteClipboard(text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.clipboard = text
	f.writes = append(f.writes, text)
	return nil
}

func (f *fakeBackend) ReadClipboard() (string, error) {
	return f.clipboard, nil
}

func (f *fakeBackend) PasteKeystroke() error {
	if f.pasteErr != nil {
		return f.pasteErr
	}
	f.pastes++
	return nil
}

func (f *fakeBackend) TypeText(text string) {
	f.typed = append(f.typed, text)
}

type countingHider struct {
	calls int
}

func (h *countingHider) HideWindows() { h.calls++ }

func newTestDeliverer(method string, b backend, hider WindowHider) *Deliverer {
	d := New(config.DeliverConfig{Method: method, TypeMaxChars: 5}, hider, logger.Nop())
	d.backend = b
	return d
}

func TestDeliverPasteTier(t *testing.T) {
	b := &fakeBackend{clipboard: "before"}
	d := newTestDeliverer("auto", b, nil)

	if err := d.Deliver("hello world"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if b.pastes != 1 {
		t.Errorf("pastes = %d, want 1", b.pastes)
	}
	// Delta written, then previous clipboard restored.
	if len(b.writes) != 2 || b.writes[0] != "hello world" || b.writes[1] != "before" {
		t.Errorf("writes = %v, want [hello world before]", b.writes)
	}
	if len(b.typed) != 0 {
		t.Errorf("typed = %v, want none", b.typed)
	}
}

func TestDeliverTypeTierShortDelta(t *testing.T) {
	b := &fakeBackend{}
	d := newTestDeliverer("type", b, nil)

	if err := d.Deliver("hi"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(b.typed) != 1 || b.typed[0] != "hi" {
		t.Errorf("typed = %v, want [hi]", b.typed)
	}
	if b.pastes != 0 {
		t.Errorf("pastes = %d, want 0", b.pastes)
	}
}

func TestDeliverTypeTierLongDeltaFallsBackToClipboard(t *testing.T) {
	b := &fakeBackend{}
	d := newTestDeliverer("type", b, nil)

	if err := d.Deliver("longer than five"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(b.typed) != 0 {
		t.Errorf("typed = %v, want none", b.typed)
	}
	if b.clipboard != "longer than five" {
		t.Errorf("clipboard = %q, want delta", b.clipboard)
	}
}

func TestDeliverClipboardOnly(t *testing.T) {
	b := &fakeBackend{}
	d := newTestDeliverer("clipboard", b, nil)

	if err := d.Deliver("hello"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if b.clipboard != "hello" {
		t.Errorf("clipboard = %q, want %q", b.clipboard, "hello")
	}
	if b.pastes != 0 || len(b.typed) != 0 {
		t.Errorf("keystrokes synthesized in clipboard-only mode")
	}
}

func TestDeliverPasteFailureLeavesClipboard(t *testing.T) {
	b := &fakeBackend{pasteErr: errors.New("no injection capability")}
	d := newTestDeliverer("paste", b, nil)

	if err := d.Deliver("hello"); err != nil {
		t.Fatalf("Deliver() error = %v, want nil (degraded, not failed)", err)
	}
	if b.clipboard != "hello" {
		t.Errorf("clipboard = %q, want delta as ground truth", b.clipboard)
	}
}

func TestDeliverPasteFailureRetriesTypingShortDelta(t *testing.T) {
	b := &fakeBackend{pasteErr: errors.New("denied")}
	d := newTestDeliverer("auto", b, nil)

	if err := d.Deliver("hi"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(b.typed) != 1 || b.typed[0] != "hi" {
		t.Errorf("typed = %v, want [hi]", b.typed)
	}
}

func TestDeliverSkipsWhitespaceOnlyDelta(t *testing.T) {
	b := &fakeBackend{}
	h := &countingHider{}
	d := newTestDeliverer("auto", b, h)

	for _, delta := range []string{"", " ", "\t \n"} {
		if err := d.Deliver(delta); err != nil {
			t.Fatalf("Deliver(%q) error = %v", delta, err)
		}
	}
	if h.calls != 0 {
		t.Errorf("HideWindows called %d times for no-op deltas", h.calls)
	}
	if len(b.writes) != 0 || b.pastes != 0 || len(b.typed) != 0 {
		t.Errorf("no-op delta caused side effects")
	}
}

func TestDeliverHidesWindowsBeforeInjection(t *testing.T) {
	b := &fakeBackend{}
	h := &countingHider{}
	d := newTestDeliverer("auto", b, h)

	if err := d.Deliver(" world"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if h.calls != 1 {
		t.Errorf("HideWindows calls = %d, want 1", h.calls)
	}
}

func TestCapsForMethod(t *testing.T) {
	tests := []struct {
		method string
		want   Capabilities
	}{
		{"auto", Capabilities{Paste: true, Type: true}},
		{"paste", Capabilities{Paste: true}},
		{"type", Capabilities{Type: true}},
		{"clipboard", Capabilities{}},
	}
	for _, tt := range tests {
		if got := capsForMethod(tt.method); got != tt.want {
			t.Errorf("capsForMethod(%q) = %+v, want %+v", tt.method, got, tt.want)
		}
	}
}
