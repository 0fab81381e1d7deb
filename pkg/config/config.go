// Package config loads the workbench settings from an optional JSON
// file, applies KODEX_* environment overrides, and validates the
// result. No configuration at all yields a working local setup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kodexlab/kodex/pkg/approval"
)

// Defaults applied before the file and environment are consulted.
const (
	DefaultDatabasePath    = "kodex.db"
	DefaultDebounceWindow  = 500 * time.Millisecond
	DefaultSignalBuffer    = 256
	DefaultBusHistory      = 128
	DefaultSnapshotsToKeep = 10
	DefaultTrustLevel      = "auto"
)

// Settings is the application-level configuration.
type Settings struct {
	// DatabasePath is the SQLite file, or ":memory:".
	DatabasePath string `json:"database_path"`

	// DebounceWindowMS is the quiet window of the batch listener.
	DebounceWindowMS int `json:"debounce_window_ms"`

	// SignalBufferSize bounds the per-bridge notification queue.
	SignalBufferSize int `json:"signal_buffer_size"`

	// BusHistorySize is how many recent events the bus retains for
	// late-joining UI surfaces.
	BusHistorySize int `json:"bus_history_size"`

	// SnapshotsToKeep caps retained project snapshots; 0 keeps all.
	SnapshotsToKeep int `json:"snapshots_to_keep"`

	// AgentEnabled starts the embedded NATS tool gateway.
	AgentEnabled bool `json:"agent_enabled"`

	// DefaultTrustLevel applies to categories without an entry in
	// TrustLevels. One of "auto", "notify", "require".
	DefaultTrustLevel string `json:"default_trust_level"`

	// TrustLevels maps operation categories (e.g. "coding.destructive")
	// to trust levels.
	TrustLevels map[string]string `json:"trust_levels"`
}

func defaults() Settings {
	return Settings{
		DatabasePath:      DefaultDatabasePath,
		DebounceWindowMS:  int(DefaultDebounceWindow / time.Millisecond),
		SignalBufferSize:  DefaultSignalBuffer,
		BusHistorySize:    DefaultBusHistory,
		SnapshotsToKeep:   DefaultSnapshotsToKeep,
		AgentEnabled:      true,
		DefaultTrustLevel: DefaultTrustLevel,
		TrustLevels: map[string]string{
			"coding.destructive":  "require",
			"sources.destructive": "require",
			"cases.destructive":   "require",
		},
	}
}

// Load reads settings from path (skipped when empty or missing), then
// applies environment overrides, then validates.
func Load(path string) (Settings, error) {
	s := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Missing file falls back to defaults.
		case err != nil:
			return s, fmt.Errorf("read settings file: %w", err)
		default:
			if err := json.Unmarshal(data, &s); err != nil {
				return s, fmt.Errorf("parse settings file %s: %w", path, err)
			}
		}
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("KODEX_DB_PATH"); v != "" {
		s.DatabasePath = v
	}
	if v := os.Getenv("KODEX_DEBOUNCE_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.DebounceWindowMS = n
		}
	}
	if v := os.Getenv("KODEX_SIGNAL_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.SignalBufferSize = n
		}
	}
	if v := os.Getenv("KODEX_BUS_HISTORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.BusHistorySize = n
		}
	}
	if v := os.Getenv("KODEX_SNAPSHOTS_TO_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.SnapshotsToKeep = n
		}
	}
	if v := os.Getenv("KODEX_AGENT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.AgentEnabled = b
		}
	}
	if v := os.Getenv("KODEX_DEFAULT_TRUST_LEVEL"); v != "" {
		s.DefaultTrustLevel = v
	}
}

// Validate checks ranges and trust level spellings.
func (s Settings) Validate() error {
	if s.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if s.DebounceWindowMS <= 0 {
		return fmt.Errorf("debounce_window_ms must be positive, got %d", s.DebounceWindowMS)
	}
	if s.SignalBufferSize <= 0 {
		return fmt.Errorf("signal_buffer_size must be positive, got %d", s.SignalBufferSize)
	}
	if s.BusHistorySize < 0 {
		return fmt.Errorf("bus_history_size must not be negative, got %d", s.BusHistorySize)
	}
	if s.SnapshotsToKeep < 0 {
		return fmt.Errorf("snapshots_to_keep must not be negative, got %d", s.SnapshotsToKeep)
	}
	if _, err := approval.ParseLevel(s.DefaultTrustLevel); err != nil {
		return fmt.Errorf("default_trust_level: %w", err)
	}
	for category, level := range s.TrustLevels {
		if _, err := approval.ParseLevel(level); err != nil {
			return fmt.Errorf("trust_levels[%s]: %w", category, err)
		}
	}
	return nil
}

// DebounceWindow returns the batch listener window as a duration.
func (s Settings) DebounceWindow() time.Duration {
	return time.Duration(s.DebounceWindowMS) * time.Millisecond
}

// ApprovalSettings converts the trust level strings into the gate's
// settings. Call Validate first; unparseable levels fall back to auto.
func (s Settings) ApprovalSettings() approval.Settings {
	def, _ := approval.ParseLevel(s.DefaultTrustLevel)
	out := approval.Settings{
		Default: def,
		Levels:  make(map[string]approval.Level, len(s.TrustLevels)),
	}
	for category, level := range s.TrustLevels {
		lvl, err := approval.ParseLevel(level)
		if err != nil {
			continue
		}
		out.Levels[category] = lvl
	}
	return out
}
