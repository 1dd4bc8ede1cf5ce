package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/deliver"
	"github.com/voxkey/voxkey/internal/hotkey"
	"github.com/voxkey/voxkey/internal/indicator"
	"github.com/voxkey/voxkey/internal/ipc"
	"github.com/voxkey/voxkey/internal/protocol"
	"github.com/voxkey/voxkey/internal/session"
	"github.com/voxkey/voxkey/internal/worker"
	"github.com/voxkey/voxkey/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dictation daemon",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	source := newConfigSource(cfg, log)

	store := indicator.NewPositionStore(cfg.Indicator.PositionFile, log)
	overlay := indicator.NewController(consoleRenderer{log: log.Named("overlay")},
		func() bool { return source.Current().Indicator.Enabled }, store, log)

	deliverer := deliver.New(cfg.Deliver, deliver.NopHider{}, log)

	relay := &workerRelay{}
	supervisor := worker.NewSupervisor(cfg.Worker, relay, log)

	engine := session.NewEngine(supervisor, deliverer,
		&sessionEvents{overlay: overlay, log: log.Named("session")},
		source.Params, log)
	relay.set(engine)
	defer engine.Close()

	// Bring the worker up immediately so the model is warm by the time the
	// first shortcut lands.
	if err := supervisor.Start(); err != nil {
		log.Warn("worker did not start, will retry on first use", logger.Error(err))
	}
	defer supervisor.Stop()

	server := ipc.NewServer(cfg.IPC.Socket, &engineHandler{engine: engine, source: source}, log)
	if err := server.Listen(); err != nil {
		return err
	}
	defer server.Close()

	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.Mode)
	go listener.Start()
	defer listener.Stop()

	log.Info("ready",
		logger.String("hotkey", listener.Combo()),
		logger.String("mode", cfg.Hotkey.Mode),
		logger.String("deliver", cfg.Deliver.Method),
		logger.String("socket", cfg.IPC.Socket))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	events := listener.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				log.Info("hotkey listener stopped")
				return nil
			}
			switch ev.Type {
			case hotkey.EventPressed:
				engine.RequestStart(protocol.ModeHold)
			case hotkey.EventReleased:
				engine.RequestStop()
			case hotkey.EventToggled:
				engine.Toggle()
			}

		case sig := <-sigCh:
			log.Info("shutting down", logger.String("signal", sig.String()))
			engine.Close()
			supervisor.Stop()
			server.Close()
			// Exit directly to avoid gohook's C cleanup crash. The OS
			// reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// configSource serves session parameters from a cached config and refreshes
// the cache from disk in the background, so file edits are picked up at a
// later turn boundary without a restart. A broken edit keeps the last good
// config.
type configSource struct {
	log *logger.Logger

	mu        sync.Mutex
	cfg       *config.Config
	reloading bool
}

func newConfigSource(cfg *config.Config, log *logger.Logger) *configSource {
	return &configSource{log: log.Named("config"), cfg: cfg}
}

// Current returns the latest good config and kicks off one background reload.
// It never touches the disk itself; callers hold the engine lock on the
// hotkey-to-first-action path and must not block there.
func (s *configSource) Current() *config.Config {
	s.mu.Lock()
	cfg := s.cfg
	if !s.reloading {
		s.reloading = true
		go s.reload()
	}
	s.mu.Unlock()
	return cfg
}

func (s *configSource) reload() {
	cfg, err := loadConfig()
	if err == nil {
		err = cfg.Validate()
	}

	s.mu.Lock()
	s.reloading = false
	if err == nil {
		s.cfg = cfg
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("config reload failed, keeping previous", logger.Error(err))
	}
}

// Params satisfies the session engine's parameter source.
func (s *configSource) Params() session.Params {
	cfg := s.Current()
	return session.Params{
		MaxRecording: cfg.Session.MaxRecording(),
		FinalGrace:   cfg.Session.FinalGrace(),
		MinHold:      cfg.Session.MinHold(),
		HoldCombo:    strings.Join(hotkey.NormalizeCombo(cfg.Hotkey.Keys), "+"),
	}
}

// workerRelay breaks the construction cycle between the supervisor and the
// engine: the supervisor needs a sink before the engine exists.
type workerRelay struct {
	mu     sync.Mutex
	engine *session.Engine
}

func (r *workerRelay) set(engine *session.Engine) {
	r.mu.Lock()
	r.engine = engine
	r.mu.Unlock()
}

func (r *workerRelay) OnWorkerEvent(ev protocol.Event) {
	r.mu.Lock()
	engine := r.engine
	r.mu.Unlock()
	if engine != nil {
		engine.OnWorkerEvent(ev)
	}
}

func (r *workerRelay) OnWorkerExit(err error) {
	r.mu.Lock()
	engine := r.engine
	r.mu.Unlock()
	if engine != nil {
		engine.OnWorkerExit(err)
	}
}

// sessionEvents fans session lifecycle transitions out to the indicator and
// surfaces notices in the log.
type sessionEvents struct {
	overlay *indicator.Controller
	log     *logger.Logger
}

func (s *sessionEvents) StateChanged(state session.State) {
	s.overlay.StateChanged(state)
	s.log.Debug("state changed", logger.String("state", state.String()))
}

func (s *sessionEvents) Notice(notice session.Notice, detail string) {
	s.log.Warn("notice", logger.String("notice", string(notice)), logger.String("detail", detail))
}

// engineHandler exposes the engine over the control socket.
type engineHandler struct {
	engine *session.Engine
	source *configSource
}

func (h *engineHandler) Start() {
	mode := protocol.ModeHold
	if h.source.Current().Hotkey.Mode == "toggle" {
		mode = protocol.ModeToggle
	}
	h.engine.RequestStart(mode)
}

func (h *engineHandler) Stop()   { h.engine.RequestStop() }
func (h *engineHandler) Toggle() { h.engine.Toggle() }

func (h *engineHandler) Status() (string, uint64) {
	return h.engine.State().String(), h.engine.Turn()
}

// consoleRenderer stands in for a native overlay: it reports indicator
// visibility in the log so a terminal run still shows recording state.
type consoleRenderer struct {
	log *logger.Logger
}

func (r consoleRenderer) Show(x, y int) {
	r.log.Info("recording indicator on", logger.Int("x", x), logger.Int("y", y))
}

func (r consoleRenderer) Hide() {
	r.log.Info("recording indicator off")
}
