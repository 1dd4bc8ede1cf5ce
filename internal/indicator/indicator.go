// Package indicator drives the floating recording indicator.
//
// The controller is purely reactive: visibility follows session lifecycle
// transitions and one configuration flag, nothing else. Rendering itself is
// behind the Renderer interface; this package only decides when the overlay
// shows, where it sits, and how its position is persisted.
package indicator

import (
	"github.com/go-vgo/robotgo"

	"github.com/voxkey/voxkey/internal/session"
	"github.com/voxkey/voxkey/pkg/logger"
)

// Renderer shows and hides the overlay at a screen position.
type Renderer interface {
	Show(x, y int)
	Hide()
}

// NopRenderer is a Renderer for headless runs.
type NopRenderer struct{}

// Show implements Renderer.
func (NopRenderer) Show(x, y int) {}

// Hide implements Renderer.
func (NopRenderer) Hide() {}

// Controller keeps indicator visibility in lockstep with the session.
type Controller struct {
	renderer Renderer
	enabled  func() bool // re-read at every transition, never cached
	store    *PositionStore
	log      *logger.Logger

	visible bool
}

// NewController creates a Controller. renderer may be nil for headless runs.
func NewController(renderer Renderer, enabled func() bool, store *PositionStore, log *logger.Logger) *Controller {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Controller{
		renderer: renderer,
		enabled:  enabled,
		store:    store,
		log:      log.Named("indicator"),
	}
}

// StateChanged reacts to a session transition. It is called synchronously
// from the session engine, so show/hide happen in the same tick as the
// transition itself.
func (c *Controller) StateChanged(state session.State) {
	switch state {
	case session.StateArmed, session.StateRecording:
		c.show()
	default:
		c.hide()
	}
}

// Visible reports the current indicator state.
func (c *Controller) Visible() bool {
	return c.visible
}

// Reposition moves the overlay and persists the new position. Persistence is
// debounced and asynchronous so dragging never blocks on file I/O.
func (c *Controller) Reposition(x, y int) {
	pos := c.store.Set(Position{X: x, Y: y})
	if c.visible {
		c.renderer.Show(pos.X, pos.Y)
	}
}

func (c *Controller) show() {
	if c.visible || !c.enabled() {
		return
	}
	pos := c.store.Current()
	c.renderer.Show(pos.X, pos.Y)
	c.visible = true
	c.log.Debug("indicator shown", logger.Int("x", pos.X), logger.Int("y", pos.Y))
}

func (c *Controller) hide() {
	if !c.visible {
		return
	}
	c.renderer.Hide()
	c.visible = false
	c.log.Debug("indicator hidden")
}

// screenBounds returns the primary display size via robotgo.
func screenBounds() (int, int) {
	return robotgo.GetScreenSize()
}
