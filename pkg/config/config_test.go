package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexlab/kodex/pkg/approval"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "kodex.db", s.DatabasePath)
	assert.Equal(t, 500*time.Millisecond, s.DebounceWindow())
	assert.Equal(t, 256, s.SignalBufferSize)
	assert.True(t, s.AgentEnabled)

	settings := s.ApprovalSettings()
	assert.Equal(t, approval.LevelAuto, settings.LevelFor("coding.write"))
	assert.Equal(t, approval.LevelRequire, settings.LevelFor("coding.destructive"))
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "kodex.db", s.DatabasePath)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"database_path": "/tmp/project.db",
		"debounce_window_ms": 1000,
		"default_trust_level": "notify",
		"trust_levels": {"sources.write": "require"}
	}`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/project.db", s.DatabasePath)
	assert.Equal(t, time.Second, s.DebounceWindow())

	settings := s.ApprovalSettings()
	assert.Equal(t, approval.LevelNotify, settings.LevelFor("cases.write"))
	assert.Equal(t, approval.LevelRequire, settings.LevelFor("sources.write"))
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_path": "from-file.db"}`), 0o600))

	t.Setenv("KODEX_DB_PATH", "from-env.db")
	t.Setenv("KODEX_DEBOUNCE_WINDOW_MS", "250")
	t.Setenv("KODEX_AGENT_ENABLED", "false")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", s.DatabasePath)
	assert.Equal(t, 250*time.Millisecond, s.DebounceWindow())
	assert.False(t, s.AgentEnabled)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"debounce_window_ms": -5}`), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "debounce_window_ms")

	require.NoError(t, os.WriteFile(path, []byte(`{"trust_levels": {"coding.write": "maybe"}}`), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "unknown trust level")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse settings file")
}
