package indicator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"gopkg.in/yaml.v3"

	"github.com/voxkey/voxkey/pkg/logger"
)

// saveDebounce batches rapid reposition updates into one write.
const saveDebounce = 500 * time.Millisecond

// Position is the persisted overlay location, in screen coordinates.
type Position struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// PositionStore loads and persists the overlay position. Writes are debounced
// so hide/show latency is never blocked on persistence I/O.
type PositionStore struct {
	path     string
	bounds   func() (int, int) // display size, swappable for tests
	debounce func(func())
	log      *logger.Logger

	mu  sync.Mutex
	pos Position
}

// NewPositionStore creates a store backed by the given file and loads the
// saved position, re-centering it if it falls outside the current display.
func NewPositionStore(path string, log *logger.Logger) *PositionStore {
	return newPositionStore(path, screenBounds, log)
}

func newPositionStore(path string, bounds func() (int, int), log *logger.Logger) *PositionStore {
	s := &PositionStore{
		path:     path,
		bounds:   bounds,
		debounce: debounce.New(saveDebounce),
		log:      log.Named("indicator"),
	}
	s.pos = s.load()
	return s
}

// Current returns the validated overlay position.
func (s *PositionStore) Current() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Set clamps, records, and asynchronously persists a new position. The
// clamped position is returned.
func (s *PositionStore) Set(pos Position) Position {
	pos = s.clamp(pos)

	s.mu.Lock()
	s.pos = pos
	s.mu.Unlock()

	s.debounce(func() {
		if err := s.save(); err != nil {
			s.log.Warn("saving indicator position", logger.Error(err))
		}
	})
	return pos
}

// load reads the saved position, falling back to center on any problem.
func (s *PositionStore) load() Position {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.center()
	}

	var pos Position
	if err := yaml.Unmarshal(data, &pos); err != nil {
		s.log.Warn("indicator position file unreadable, re-centering", logger.Error(err))
		return s.center()
	}

	if !s.inBounds(pos) {
		s.log.Debug("saved indicator position off-screen, re-centering",
			logger.Int("x", pos.X), logger.Int("y", pos.Y))
		return s.center()
	}
	return pos
}

func (s *PositionStore) save() error {
	s.mu.Lock()
	pos := s.pos
	s.mu.Unlock()

	data, err := yaml.Marshal(pos)
	if err != nil {
		return fmt.Errorf("indicator: encoding position: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("indicator: creating state dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("indicator: writing position: %w", err)
	}
	return nil
}

func (s *PositionStore) inBounds(pos Position) bool {
	w, h := s.bounds()
	return pos.X >= 0 && pos.Y >= 0 && pos.X < w && pos.Y < h
}

func (s *PositionStore) clamp(pos Position) Position {
	w, h := s.bounds()
	if pos.X < 0 {
		pos.X = 0
	}
	if pos.Y < 0 {
		pos.Y = 0
	}
	if pos.X >= w {
		pos.X = w - 1
	}
	if pos.Y >= h {
		pos.Y = h - 1
	}
	return pos
}

func (s *PositionStore) center() Position {
	w, h := s.bounds()
	return Position{X: w / 2, Y: h / 2}
}
