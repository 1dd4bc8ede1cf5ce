// Package worker supervises the external transcription worker process.
//
// The worker is opaque: it captures audio and runs inference on its own, and
// talks to us only over pipes using the line protocol in internal/protocol.
// The Supervisor is the sole owner of the process lifetime; nothing else may
// spawn or terminate it.
package worker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/protocol"
	"github.com/voxkey/voxkey/pkg/logger"
)

// EventSink receives decoded worker events and lifecycle notifications.
// Callbacks run on the supervisor's pump goroutines.
type EventSink interface {
	OnWorkerEvent(ev protocol.Event)
	OnWorkerExit(err error)
}

// Supervisor owns the single worker process instance.
type Supervisor struct {
	cfg  config.WorkerConfig
	sink EventSink
	log  *logger.Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	ready bool
	gen   uint64 // process generation; stale exit notifications are dropped
}

// NewSupervisor creates a Supervisor. The worker is not spawned until Start
// or the first Send.
func NewSupervisor(cfg config.WorkerConfig, sink EventSink, log *logger.Logger) *Supervisor {
	return &Supervisor{
		cfg:  cfg,
		sink: sink,
		log:  log.Named("worker"),
	}
}

// Start spawns the worker process if it is not already running.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return nil
	}
	return s.spawnLocked()
}

// Ready reports whether the worker has signaled readiness and is still alive.
func (s *Supervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Send writes one command line to the worker's stdin. If no process exists it
// is spawned transparently. A failed write triggers one respawn-and-retry
// after the configured delay before giving up.
func (s *Supervisor) Send(command string) error {
	err := s.trySend(command)
	if err == nil {
		return nil
	}
	s.log.Warn("command dispatch failed, respawning worker",
		logger.String("command", command), logger.Error(err))

	time.Sleep(s.cfg.RetryDelay())

	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()

	if err := s.trySend(command); err != nil {
		return fmt.Errorf("worker: dispatch %q: %w", command, err)
	}
	return nil
}

// trySend spawns the worker if needed and writes the command once.
func (s *Supervisor) trySend(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		if err := s.spawnLocked(); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		return fmt.Errorf("writing to worker stdin: %w", err)
	}

	s.log.Debug("command sent", logger.String("command", command))
	return nil
}

// Stop terminates the worker process. Safe to call when nothing is running.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// spawnLocked starts the worker process and its pump goroutines.
// Caller holds s.mu.
func (s *Supervisor) spawnLocked() error {
	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Env = append(os.Environ(), "WHISPER_MODEL="+s.cfg.Model)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("worker: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("worker: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("worker: starting %s: %w", s.cfg.Command, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.ready = false
	s.gen++
	gen := s.gen

	s.log.Info("worker spawned",
		logger.String("command", s.cfg.Command),
		logger.Int("pid", cmd.Process.Pid))

	go s.pumpEvents(stdout)
	go s.pumpStderr(stderr)
	go s.waitExit(cmd, gen)

	return nil
}

// teardownLocked kills the current process, if any. Caller holds s.mu.
// The generation bump makes the pending waitExit notification stale, so a
// deliberate stop is never reported as an unexpected death.
func (s *Supervisor) teardownLocked() {
	if s.cmd == nil {
		return
	}
	s.gen++
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
	s.stdin = nil
	s.ready = false
}

// pumpEvents reads stdout chunks, decodes them, and forwards each event.
// Readiness bookkeeping happens here so Ready() reflects the latest event.
func (s *Supervisor) pumpEvents(r io.Reader) {
	var parser protocol.Parser
	buf := make([]byte, 4096)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				s.noteReadiness(ev)
				s.log.Debug("worker event", logger.String("kind", ev.Kind.String()))
				s.sink.OnWorkerEvent(ev)
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Supervisor) noteReadiness(ev protocol.Event) {
	switch ev.Kind {
	case protocol.KindReady:
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
	case protocol.KindLoadError:
		s.mu.Lock()
		s.ready = false
		s.mu.Unlock()
	}
}

// pumpStderr forwards worker diagnostics into the log.
func (s *Supervisor) pumpStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			s.log.Debug("worker stderr", logger.String("line", line))
		}
	}
}

// waitExit reaps the process and reports unexpected deaths.
func (s *Supervisor) waitExit(cmd *exec.Cmd, gen uint64) {
	err := cmd.Wait()

	s.mu.Lock()
	stale := gen != s.gen
	if !stale {
		s.cmd = nil
		s.stdin = nil
		s.ready = false
	}
	s.mu.Unlock()

	if stale {
		return
	}

	s.log.Warn("worker exited unexpectedly", logger.Error(err))
	s.sink.OnWorkerExit(err)
}
