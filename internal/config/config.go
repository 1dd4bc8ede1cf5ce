package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Hotkey    HotkeyConfig    `yaml:"hotkey"`
	Worker    WorkerConfig    `yaml:"worker"`
	Deliver   DeliverConfig   `yaml:"deliver"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Session   SessionConfig   `yaml:"session"`
	IPC       IPCConfig       `yaml:"ipc"`
	Log       LogConfig       `yaml:"log"`
}

// HotkeyConfig holds the global dictation shortcut.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
	Mode string   `yaml:"mode"` // "hold" or "toggle"
}

// WorkerConfig describes how to launch the transcription worker process.
type WorkerConfig struct {
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	Model        string   `yaml:"model"`          // exported to the worker via WHISPER_MODEL
	RetryDelayMS int      `yaml:"retry_delay_ms"` // wait before the one respawn retry on dispatch
}

// DeliverConfig holds text delivery settings.
type DeliverConfig struct {
	Method string `yaml:"method"` // "auto", "paste", "type", or "clipboard"
	// TypeMaxChars is the longest delta delivered by direct typing when the
	// paste tier is unavailable or disabled.
	TypeMaxChars int `yaml:"type_max_chars"`
}

// IndicatorConfig holds the floating recording indicator settings.
type IndicatorConfig struct {
	Enabled      bool   `yaml:"enabled"`
	PositionFile string `yaml:"position_file"`
}

// SessionConfig holds dictation session tuning knobs. Durations are stored
// as milliseconds so the file stays plain YAML integers.
type SessionConfig struct {
	MaxRecordingMS int `yaml:"max_recording_ms"` // safety stop for a runaway turn
	FinalGraceMS   int `yaml:"final_grace_ms"`   // how long a stopped turn waits for its final transcript
	MinHoldMS      int `yaml:"min_hold_ms"`      // hold-mode taps shorter than this are discarded
}

// IPCConfig holds the daemon control socket settings.
type IPCConfig struct {
	Socket string `yaml:"socket"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voxkey")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	dir := DefaultConfigDir()

	return &Config{
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "space"},
			Mode: "hold",
		},
		Worker: WorkerConfig{
			Command:      "python3",
			Args:         []string{"whisper_service.py"},
			Model:        "base",
			RetryDelayMS: 500,
		},
		Deliver: DeliverConfig{
			Method:       "auto",
			TypeMaxChars: 24,
		},
		Indicator: IndicatorConfig{
			Enabled:      true,
			PositionFile: filepath.Join(dir, "indicator.yaml"),
		},
		Session: SessionConfig{
			MaxRecordingMS: 30000,
			FinalGraceMS:   4000,
			MinHoldMS:      150,
		},
		IPC: IPCConfig{
			Socket: filepath.Join(dir, "voxkey.sock"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults. Tilde (~) in path fields is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Worker.Command = expandTilde(cfg.Worker.Command)
	cfg.Indicator.PositionFile = expandTilde(cfg.Indicator.PositionFile)
	cfg.IPC.Socket = expandTilde(cfg.IPC.Socket)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	if c.Worker.Command == "" {
		return fmt.Errorf("worker.command must not be empty")
	}

	switch c.Deliver.Method {
	case "auto", "paste", "type", "clipboard":
	default:
		return fmt.Errorf("deliver.method must be auto, paste, type, or clipboard, got %q", c.Deliver.Method)
	}

	if c.Session.MaxRecordingMS <= 0 {
		return fmt.Errorf("session.max_recording_ms must be > 0")
	}

	if c.Session.FinalGraceMS <= 0 {
		return fmt.Errorf("session.final_grace_ms must be > 0")
	}

	if c.Session.MinHoldMS < 0 {
		return fmt.Errorf("session.min_hold_ms must be >= 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}

	return nil
}

// MaxRecording returns the safety-stop duration.
func (c *SessionConfig) MaxRecording() time.Duration {
	return time.Duration(c.MaxRecordingMS) * time.Millisecond
}

// FinalGrace returns how long a stopped turn waits for its final transcript.
func (c *SessionConfig) FinalGrace() time.Duration {
	return time.Duration(c.FinalGraceMS) * time.Millisecond
}

// MinHold returns the minimum hold duration for a hold-mode turn to count.
func (c *SessionConfig) MinHold() time.Duration {
	return time.Duration(c.MinHoldMS) * time.Millisecond
}

// RetryDelay returns the wait before the supervisor's one respawn retry.
func (c *WorkerConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
