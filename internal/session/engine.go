// Package session implements the dictation session state machine.
//
// At most one dictation turn is in flight at a time. A turn is created by a
// hotkey edge or an IPC request, feeds partial transcripts through the
// composer to the deliverer while recording, and is closed by a stop request,
// a worker release, a final transcript, or the safety timer. Every turn gets
// a monotonically increasing identifier; events that cannot be attributed to
// the active or draining turn are discarded rather than applied to a newer,
// unrelated turn.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/voxkey/voxkey/internal/compose"
	"github.com/voxkey/voxkey/internal/protocol"
	"github.com/voxkey/voxkey/pkg/logger"
)

// State is the session lifecycle state.
type State int

const (
	// StateIdle means no turn is in flight.
	StateIdle State = iota
	// StateArmed means a start was accepted but capture has not begun,
	// because the worker has not signaled readiness yet.
	StateArmed
	// StateRecording means the worker is capturing a turn.
	StateRecording
	// StateStopping means capture ended and the final transcript is pending.
	StateStopping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Notice is a transient, user-facing condition. None of these are fatal.
type Notice string

const (
	// NoticeModelNotReady means a start was attempted before the model loaded.
	NoticeModelNotReady Notice = "model_not_ready"
	// NoticeWorkerError means the worker failed to initialize.
	NoticeWorkerError Notice = "worker_error"
	// NoticeWorkerDied means the worker process exited unexpectedly.
	NoticeWorkerDied Notice = "worker_died"
	// NoticeSafetyStop means a turn ran past the recording limit.
	NoticeSafetyStop Notice = "safety_stop"
)

// Worker is the slice of the supervisor the engine drives.
type Worker interface {
	Start() error
	Ready() bool
	Send(command string) error
}

// Deliverer sends a composed text delta to the focused application.
type Deliverer interface {
	Deliver(delta string) error
}

// EventSink receives lifecycle transitions and transient notices. Callbacks
// run synchronously under the engine lock and must not call back into the
// engine.
type EventSink interface {
	StateChanged(state State)
	Notice(notice Notice, detail string)
}

// Params are the session tuning knobs. They are re-read through the source
// function at every turn boundary so a settings change is never cached stale.
type Params struct {
	MaxRecording time.Duration // safety stop for a runaway turn
	FinalGrace   time.Duration // wait for a final transcript after stop
	MinHold      time.Duration // hold turns shorter than this are discarded
	HoldCombo    string        // normalized combo for SET_HOLD_KEYS
}

// turnState is the per-turn bookkeeping: identity, mode, and what has been
// delivered so far. Never shared across turns.
type turnState struct {
	id        uint64
	mode      protocol.Mode
	cursor    compose.Cursor
	startedAt time.Time
}

// Engine is the dictation session state machine.
type Engine struct {
	worker  Worker
	deliver Deliverer
	events  EventSink
	params  func() Params
	log     *logger.Logger

	mu         sync.Mutex
	state      State
	turn       uint64 // last allocated turn id
	active     *turnState
	draining   *turnState
	pending    *protocol.Mode // deferred start awaiting worker readiness
	loadFailed bool
	safety     *time.Timer
	drain      *time.Timer

	cmdCh     chan string
	deliverCh chan string
	done      chan struct{}
	closeOnce sync.Once
}

// NewEngine creates an Engine and starts its dispatch goroutines. Commands
// and deliveries are fire-and-forget from the state machine's point of view
// but each queue is drained by a single goroutine, so order is preserved.
func NewEngine(worker Worker, deliver Deliverer, events EventSink, params func() Params, log *logger.Logger) *Engine {
	e := &Engine{
		worker:    worker,
		deliver:   deliver,
		events:    events,
		params:    params,
		log:       log.Named("session"),
		cmdCh:     make(chan string, 64),
		deliverCh: make(chan string, 64),
		done:      make(chan struct{}),
	}
	go e.commandLoop()
	go e.deliveryLoop()
	return e
}

// Close stops the engine's background goroutines and timers.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.stopSafetyLocked()
		e.stopDrainLocked()
		e.mu.Unlock()
		close(e.done)
	})
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Turn returns the most recently allocated turn identifier.
func (e *Engine) Turn() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turn
}

// RequestStart begins a new turn in the given mode.
//
// It is a no-op while already recording, so key auto-repeat and rapid
// re-triggers cannot double-start. If the worker is not ready the start is
// queued as the (single) pending action and the state moves to ARMED so the
// indicator shows immediately; the capture itself begins on the readiness
// event.
func (e *Engine) RequestStart(mode protocol.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateRecording:
		e.log.Debug("start ignored, already recording", logger.Uint64("turn", e.turn))
		return
	case StateArmed:
		// Last request wins: overwrite the queued mode.
		m := mode
		e.pending = &m
		return
	case StateStopping:
		// A new turn while the previous one drains: the old final, if it
		// ever arrives, is stale by definition.
		e.discardDrainingLocked("superseded by new turn")
	}

	if e.loadFailed {
		e.events.Notice(NoticeWorkerError, "transcription worker failed to load")
		return
	}

	if !e.worker.Ready() {
		m := mode
		e.pending = &m
		e.setStateLocked(StateArmed)
		// Poke the supervisor so a dead or never-started worker comes up and
		// eventually emits READY.
		go func() {
			if err := e.worker.Start(); err != nil {
				e.log.Warn("worker start failed", logger.Error(err))
			}
		}()
		return
	}

	e.beginTurnLocked(mode)
}

// RequestStop ends the active turn. Repeated stops are no-ops.
func (e *Engine) RequestStop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateArmed:
		// Released before the worker ever became ready: nothing captured.
		e.pending = nil
		e.setStateLocked(StateIdle)
		return
	case StateRecording:
	default:
		return
	}

	turn := e.active
	if turn == nil {
		// Recording without a turn would be a programming error; recover to
		// idle instead of crashing a tool that must stay responsive.
		e.setStateLocked(StateIdle)
		return
	}
	p := e.params()

	e.stopSafetyLocked()
	e.enqueueCommand(protocol.CommandStop)

	if turn.mode == protocol.ModeHold && time.Since(turn.startedAt) < p.MinHold {
		// Accidental tap: drop the turn entirely. The worker's late final,
		// having no turn to attach to, will be discarded as stale.
		e.log.Debug("turn below minimum hold, discarded", logger.Uint64("turn", turn.id))
		e.active = nil
		e.setStateLocked(StateIdle)
		return
	}

	e.active = nil
	e.draining = turn
	e.setStateLocked(StateStopping)
	e.armDrainLocked(turn.id, p.FinalGrace)
}

// Toggle flips the session: starts a toggle-mode turn when idle, stops the
// turn otherwise.
func (e *Engine) Toggle() {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	if state == StateRecording || state == StateArmed {
		e.RequestStop()
	} else {
		e.RequestStart(protocol.ModeToggle)
	}
}

// OnWorkerEvent implements worker.EventSink. It runs on the supervisor's
// pump goroutine; the engine lock serializes it against everything else.
func (e *Engine) OnWorkerEvent(ev protocol.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Kind {
	case protocol.KindReady:
		e.onReadyLocked()
	case protocol.KindLoadError:
		e.onLoadErrorLocked()
	case protocol.KindModelNotReady:
		e.onModelNotReadyLocked()
	case protocol.KindRelease:
		e.onReleaseLocked()
	case protocol.KindPartial:
		e.onTranscriptLocked(ev.Text, false)
	case protocol.KindFinal:
		e.onTranscriptLocked(ev.Text, true)
	}
}

// OnWorkerExit implements worker.EventSink. An unexpected worker death must
// never leave the UI showing an active recording.
func (e *Engine) OnWorkerExit(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	detail := "worker process exited"
	if err != nil {
		detail = err.Error()
	}
	e.events.Notice(NoticeWorkerDied, detail)

	e.stopSafetyLocked()
	e.stopDrainLocked()
	e.active = nil
	e.draining = nil
	e.pending = nil
	if e.state != StateIdle {
		e.setStateLocked(StateIdle)
	}
}

// onReadyLocked executes the pending start, if any, exactly once.
func (e *Engine) onReadyLocked() {
	e.loadFailed = false
	if e.pending == nil {
		return
	}
	mode := *e.pending
	e.pending = nil
	e.beginTurnLocked(mode)
}

func (e *Engine) onLoadErrorLocked() {
	e.loadFailed = true
	e.pending = nil
	e.events.Notice(NoticeWorkerError, "transcription model failed to load")
	if e.state != StateIdle {
		e.stopSafetyLocked()
		e.stopDrainLocked()
		e.active = nil
		e.draining = nil
		e.setStateLocked(StateIdle)
	}
}

// onModelNotReadyLocked handles a start that raced the model load: the worker
// refused it, so the turn is abandoned and the user sees a transient notice.
func (e *Engine) onModelNotReadyLocked() {
	e.events.Notice(NoticeModelNotReady, "model is still loading, try again shortly")
	if e.state == StateRecording || e.state == StateArmed {
		e.stopSafetyLocked()
		e.active = nil
		e.pending = nil
		e.setStateLocked(StateIdle)
	}
}

// onReleaseLocked handles the worker's own end-of-capture signal (hold-key
// released). The final transcript may still follow, so the turn moves to
// draining rather than being dropped.
func (e *Engine) onReleaseLocked() {
	if e.state != StateRecording || e.active == nil {
		return
	}
	e.stopSafetyLocked()
	turn := e.active
	e.active = nil
	e.draining = turn
	e.setStateLocked(StateStopping)
	e.armDrainLocked(turn.id, e.params().FinalGrace)
}

// onTranscriptLocked routes a partial or final transcript to the turn it
// belongs to. Text that cannot be attributed is discarded.
//
// A final transcript only ever follows a stop or release, so it completes
// the draining turn and nothing else. Attributing it to the active turn
// would let a late final from turn N corrupt turn N+1's cursor during a
// stop-then-immediately-restart race.
func (e *Engine) onTranscriptLocked(text string, final bool) {
	var turn *turnState
	if final {
		turn = e.draining
	} else {
		turn = e.active
		if turn == nil {
			// Post-stop re-sent partial still belongs to the draining turn.
			turn = e.draining
		}
	}
	if turn == nil {
		e.log.Debug("stale transcript discarded", logger.Bool("final", final))
		return
	}

	delta := turn.cursor.Advance(text)
	if strings.TrimSpace(delta) != "" {
		e.enqueueDelivery(delta)
	}

	if !final {
		return
	}

	e.log.Info("turn finished",
		logger.Uint64("turn", turn.id),
		logger.Int("chars", len(turn.cursor.Emitted())))

	e.draining = nil
	e.stopDrainLocked()
	if e.state == StateStopping && e.active == nil {
		e.setStateLocked(StateIdle)
	}
}

// beginTurnLocked allocates the next turn, resets its cursor, and dispatches
// the mode and start commands.
func (e *Engine) beginTurnLocked(mode protocol.Mode) {
	p := e.params()

	e.turn++
	e.active = &turnState{
		id:        e.turn,
		mode:      mode,
		startedAt: time.Now(),
	}
	e.setStateLocked(StateRecording)

	e.enqueueCommand(protocol.SetModeCommand(mode))
	if mode == protocol.ModeHold && p.HoldCombo != "" {
		e.enqueueCommand(protocol.SetHoldKeysCommand(p.HoldCombo))
	}
	e.enqueueCommand(protocol.CommandStart)

	e.armSafetyLocked(e.turn, p.MaxRecording)

	e.log.Info("turn started",
		logger.Uint64("turn", e.turn),
		logger.String("mode", mode.String()))
}

// discardDrainingLocked drops a draining turn so its late final cannot touch
// a newer turn's cursor.
func (e *Engine) discardDrainingLocked(reason string) {
	if e.draining == nil {
		return
	}
	e.log.Debug("draining turn discarded",
		logger.Uint64("turn", e.draining.id),
		logger.String("reason", reason))
	e.draining = nil
	e.stopDrainLocked()
}

// onSafetyTimeout force-stops a turn that recorded past the limit.
func (e *Engine) onSafetyTimeout(turnID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRecording || e.active == nil || e.active.id != turnID {
		return
	}

	e.events.Notice(NoticeSafetyStop, "recording stopped after reaching the time limit")

	p := e.params()
	turn := e.active
	e.enqueueCommand(protocol.CommandStop)
	e.active = nil
	e.draining = turn
	e.setStateLocked(StateStopping)
	e.armDrainLocked(turn.id, p.FinalGrace)
}

// onDrainTimeout gives up waiting for a final transcript that never came.
func (e *Engine) onDrainTimeout(turnID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.draining == nil || e.draining.id != turnID {
		return
	}
	e.log.Debug("final transcript never arrived", logger.Uint64("turn", turnID))
	e.draining = nil
	if e.state == StateStopping && e.active == nil {
		e.setStateLocked(StateIdle)
	}
}

func (e *Engine) setStateLocked(state State) {
	if e.state == state {
		return
	}
	e.state = state
	e.events.StateChanged(state)
}

func (e *Engine) armSafetyLocked(turnID uint64, d time.Duration) {
	e.stopSafetyLocked()
	if d <= 0 {
		return
	}
	e.safety = time.AfterFunc(d, func() { e.onSafetyTimeout(turnID) })
}

func (e *Engine) stopSafetyLocked() {
	if e.safety != nil {
		e.safety.Stop()
		e.safety = nil
	}
}

func (e *Engine) armDrainLocked(turnID uint64, d time.Duration) {
	e.stopDrainLocked()
	if d <= 0 {
		return
	}
	e.drain = time.AfterFunc(d, func() { e.onDrainTimeout(turnID) })
}

func (e *Engine) stopDrainLocked() {
	if e.drain != nil {
		e.drain.Stop()
		e.drain = nil
	}
}

func (e *Engine) enqueueCommand(cmd string) {
	select {
	case e.cmdCh <- cmd:
	case <-e.done:
	}
}

func (e *Engine) enqueueDelivery(delta string) {
	select {
	case e.deliverCh <- delta:
	case <-e.done:
	}
}

// commandLoop serializes worker commands so turns never interleave on the
// wire.
func (e *Engine) commandLoop() {
	for {
		select {
		case cmd := <-e.cmdCh:
			if err := e.worker.Send(cmd); err != nil {
				e.log.Warn("worker command failed",
					logger.String("command", cmd), logger.Error(err))
			}
		case <-e.done:
			return
		}
	}
}

// deliveryLoop serializes text delivery so deltas land in compose order.
func (e *Engine) deliveryLoop() {
	for {
		select {
		case delta := <-e.deliverCh:
			if err := e.deliver.Deliver(delta); err != nil {
				e.log.Warn("delivery failed", logger.Error(err))
			}
		case <-e.done:
			return
		}
	}
}
