package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/core/model"
	"cadence/internal/core/phase"
)

func TestLoadSettings_MissingFileReturnsDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)
}

func TestLoadSettings_ParsesPhases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tick_millis: 500
phases:
  - type: planning
    allocated_seconds: 120
    can_overrun: true
  - type: focus
    allocated_seconds: 1500
`), 0o644))

	settings, err := LoadSettings(path)

	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, settings.TickDuration)
	assert.Equal(t, []model.PhaseConfig{
		{Type: phase.TypePlanning, Allocated: 2 * time.Minute, CanOverrun: true},
		{Type: phase.TypeFocus, Allocated: 25 * time.Minute},
	}, settings.Phases)
}

func TestLoadSettings_KeepsDefaultsForAbsentValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_millis: 0\n"), 0o644))

	settings, err := LoadSettings(path)

	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)
}

func TestLoadSettings_RejectsBadPhases(t *testing.T) {
	tests := map[string]string{
		"unknown type":   "phases:\n  - type: nap\n    allocated_seconds: 10\n",
		"zero allocated": "phases:\n  - type: focus\n    allocated_seconds: 0\n",
		"invalid yaml":   "phases: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			settings, err := LoadSettings(path)

			assert.Error(t, err)
			assert.Equal(t, model.DefaultSettings(), settings)
		})
	}
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	want := model.Settings{
		TickDuration: 250 * time.Millisecond,
		Phases: []model.PhaseConfig{
			{Type: phase.TypeFocus, Allocated: 50 * time.Minute},
			{Type: phase.TypeBreak, Allocated: 10 * time.Minute},
		},
	}

	require.NoError(t, SaveSettings(path, want))
	got, err := LoadSettings(path)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveSettings_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	err := SaveSettings(path, model.Settings{TickDuration: time.Second})

	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AppData", t.TempDir())

	path, err := DefaultPath("Cadence")

	require.NoError(t, err)
	assert.Equal(t, "settings.yaml", filepath.Base(path))
	assert.Equal(t, "Cadence", filepath.Base(filepath.Dir(path)))
}
