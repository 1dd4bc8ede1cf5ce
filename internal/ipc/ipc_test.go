package ipc

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/voxkey/voxkey/pkg/logger"
)

type fakeHandler struct {
	mu      sync.Mutex
	actions []string
	state   string
	turn    uint64
}

func (h *fakeHandler) record(action string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, action)
}

func (h *fakeHandler) Start()  { h.record("start") }
func (h *fakeHandler) Stop()   { h.record("stop") }
func (h *fakeHandler) Toggle() { h.record("toggle") }

func (h *fakeHandler) Status() (string, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.turn
}

func newTestServer(t *testing.T) (*Server, *fakeHandler, string) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "voxkey.sock")
	handler := &fakeHandler{state: "idle", turn: 3}
	srv := NewServer(socket, handler, logger.Nop())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv, handler, socket
}

func TestClientServerRoundTrip(t *testing.T) {
	_, handler, socket := newTestServer(t)
	client := NewClient(socket)

	resp, err := client.Send(ActionStatus)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}
	if got := resp.Data[DataKeyState]; got != "idle" {
		t.Errorf("state = %q, want %q", got, "idle")
	}
	if got := resp.Data[DataKeyTurn]; got != "3" {
		t.Errorf("turn = %q, want %q", got, "3")
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.actions) != 0 {
		t.Errorf("status should not mutate session, recorded %v", handler.actions)
	}
}

func TestClientDispatchesActions(t *testing.T) {
	_, handler, socket := newTestServer(t)
	client := NewClient(socket)

	for _, action := range []string{ActionStart, ActionStop, ActionToggle} {
		if _, err := client.Send(action); err != nil {
			t.Fatalf("Send(%s): %v", action, err)
		}
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	want := []string{"start", "stop", "toggle"}
	if len(handler.actions) != len(want) {
		t.Fatalf("actions = %v, want %v", handler.actions, want)
	}
	for i, a := range want {
		if handler.actions[i] != a {
			t.Errorf("actions[%d] = %q, want %q", i, handler.actions[i], a)
		}
	}
}

func TestUnknownActionReturnsError(t *testing.T) {
	_, _, socket := newTestServer(t)
	client := NewClient(socket)

	resp, err := client.Send("restart")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Success {
		t.Fatal("expected failure for unknown action")
	}
	if resp.Error == "" {
		t.Error("expected error message for unknown action")
	}
}

func TestClientFailsWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	client := NewClient(socket)
	if _, err := client.Send(ActionStatus); err == nil {
		t.Fatal("expected error when no daemon is listening")
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "voxkey.sock")
	handler := &fakeHandler{state: "idle"}

	first := NewServer(socket, handler, logger.Nop())
	if err := first.Listen(); err != nil {
		t.Fatalf("first Listen: %v", err)
	}
	first.Close()

	second := NewServer(socket, handler, logger.Nop())
	if err := second.Listen(); err != nil {
		t.Fatalf("second Listen after close: %v", err)
	}
	defer second.Close()

	if _, err := NewClient(socket).Send(ActionStatus); err != nil {
		t.Fatalf("Send to relisted socket: %v", err)
	}
}
