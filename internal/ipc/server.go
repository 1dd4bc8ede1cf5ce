package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/voxkey/voxkey/pkg/logger"
)

// Handler is the slice of the session the daemon exposes over the socket.
type Handler interface {
	Start()
	Stop()
	Toggle()
	Status() (state string, turn uint64)
}

// Server accepts control connections on a unix socket.
type Server struct {
	socket  string
	handler Handler
	log     *logger.Logger

	mu sync.Mutex
	ln net.Listener
}

// NewServer creates a Server; call Listen to start accepting.
func NewServer(socket string, handler Handler, log *logger.Logger) *Server {
	return &Server{
		socket:  socket,
		handler: handler,
		log:     log.Named("ipc"),
	}
}

// Listen binds the socket and serves connections until Close. A stale socket
// file from a previous run is removed first.
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.socket), 0o755); err != nil {
		return fmt.Errorf("ipc: creating socket dir: %w", err)
	}
	_ = os.Remove(s.socket)

	ln, err := net.Listen("unix", s.socket)
	if err != nil {
		return fmt.Errorf("ipc: listening on %s: %w", s.socket, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go s.acceptLoop(ln)
	s.log.Info("control socket ready", logger.String("socket", s.socket))
	return nil
}

// Close stops accepting and removes the socket file.
func (s *Server) Close() {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	_ = os.Remove(s.socket)
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			s.log.Warn("malformed command", logger.Error(err))
			return
		}

		resp := s.dispatch(cmd)
		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if _, err := conn.Write(append(data, '\n')); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(cmd Command) Response {
	s.log.Debug("command received",
		logger.String("id", cmd.ID), logger.String("action", cmd.Action))

	switch cmd.Action {
	case ActionStart:
		s.handler.Start()
	case ActionStop:
		s.handler.Stop()
	case ActionToggle:
		s.handler.Toggle()
	case ActionStatus:
	default:
		return Response{ID: cmd.ID, Error: fmt.Sprintf("unknown action %q", cmd.Action)}
	}

	state, turn := s.handler.Status()
	return Response{
		ID:      cmd.ID,
		Success: true,
		Data: map[string]string{
			DataKeyState: state,
			DataKeyTurn:  strconv.FormatUint(turn, 10),
		},
	}
}
