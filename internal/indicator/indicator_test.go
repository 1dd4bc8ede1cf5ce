package indicator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxkey/voxkey/internal/session"
	"github.com/voxkey/voxkey/pkg/logger"
)

type fakeRenderer struct {
	shows []Position
	hides int
}

func (r *fakeRenderer) Show(x, y int) {
	r.shows = append(r.shows, Position{X: x, Y: y})
}

func (r *fakeRenderer) Hide() {
	r.hides++
}

func testBounds() (int, int) { return 1920, 1080 }

func newTestStore(t *testing.T) *PositionStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indicator.yaml")
	return newPositionStore(path, testBounds, logger.Nop())
}

func newTestController(t *testing.T, enabled bool) (*Controller, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{}
	c := NewController(r, func() bool { return enabled }, newTestStore(t), logger.Nop())
	return c, r
}

func TestVisibilityFollowsSessionState(t *testing.T) {
	c, r := newTestController(t, true)

	c.StateChanged(session.StateRecording)
	if !c.Visible() {
		t.Fatal("Visible() = false while recording")
	}
	if len(r.shows) != 1 {
		t.Fatalf("shows = %d, want 1", len(r.shows))
	}

	c.StateChanged(session.StateStopping)
	if c.Visible() {
		t.Fatal("Visible() = true after recording ended")
	}
	if r.hides != 1 {
		t.Fatalf("hides = %d, want 1", r.hides)
	}
}

func TestArmedShowsImmediately(t *testing.T) {
	c, _ := newTestController(t, true)

	c.StateChanged(session.StateArmed)
	if !c.Visible() {
		t.Error("Visible() = false while armed; feedback must be instant")
	}
}

func TestDisabledIndicatorNeverShows(t *testing.T) {
	c, r := newTestController(t, false)

	c.StateChanged(session.StateRecording)
	if c.Visible() {
		t.Error("Visible() = true with indicator disabled")
	}
	if len(r.shows) != 0 {
		t.Errorf("shows = %d, want 0", len(r.shows))
	}
}

func TestRepeatedTransitionsDoNotRerender(t *testing.T) {
	c, r := newTestController(t, true)

	c.StateChanged(session.StateRecording)
	c.StateChanged(session.StateRecording)
	c.StateChanged(session.StateIdle)
	c.StateChanged(session.StateIdle)

	if len(r.shows) != 1 || r.hides != 1 {
		t.Errorf("shows = %d, hides = %d, want 1 and 1", len(r.shows), r.hides)
	}
}

func TestPositionStoreDefaultsToCenter(t *testing.T) {
	s := newTestStore(t)

	got := s.Current()
	if got.X != 960 || got.Y != 540 {
		t.Errorf("Current() = %+v, want center (960, 540)", got)
	}
}

func TestPositionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicator.yaml")

	s := newPositionStore(path, testBounds, logger.Nop())
	s.Set(Position{X: 100, Y: 200})

	// The debounced write lands shortly after Set.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("position file never written")
		}
		time.Sleep(10 * time.Millisecond)
	}

	reloaded := newPositionStore(path, testBounds, logger.Nop())
	if got := reloaded.Current(); got.X != 100 || got.Y != 200 {
		t.Errorf("reloaded position = %+v, want (100, 200)", got)
	}
}

func TestPositionStoreRecentersOffscreenSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicator.yaml")
	if err := os.WriteFile(path, []byte("x: 5000\ny: -20\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newPositionStore(path, testBounds, logger.Nop())
	if got := s.Current(); got.X != 960 || got.Y != 540 {
		t.Errorf("Current() = %+v, want re-centered (960, 540)", got)
	}
}

func TestPositionStoreClampsSet(t *testing.T) {
	s := newTestStore(t)

	got := s.Set(Position{X: -5, Y: 99999})
	if got.X != 0 || got.Y != 1079 {
		t.Errorf("Set() = %+v, want clamped (0, 1079)", got)
	}
}

func TestRepositionMovesVisibleOverlay(t *testing.T) {
	c, r := newTestController(t, true)

	c.StateChanged(session.StateRecording)
	c.Reposition(300, 400)

	last := r.shows[len(r.shows)-1]
	if last.X != 300 || last.Y != 400 {
		t.Errorf("last Show = %+v, want (300, 400)", last)
	}
}
