package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/core/phase"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	require.NoError(t, settings.Validate())
	require.Len(t, settings.Phases, 3)
	assert.Equal(t, phase.TypePlanning, settings.Phases[0].Type)
	assert.True(t, settings.Phases[0].CanOverrun)
	assert.Equal(t, 25*time.Minute, settings.Phases[1].Allocated)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
	}{
		{"zero tick", Settings{Phases: DefaultSettings().Phases}},
		{"no phases", Settings{TickDuration: time.Second}},
		{"unknown type", Settings{TickDuration: time.Second, Phases: []PhaseConfig{{Type: "nap", Allocated: time.Minute}}}},
		{"zero allocation", Settings{TickDuration: time.Second, Phases: []PhaseConfig{{Type: phase.TypeFocus}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.settings.Validate())
		})
	}
}

func TestSettings_BuildPhasesReturnsFreshPhases(t *testing.T) {
	settings := DefaultSettings()

	first := settings.BuildPhases()
	second := settings.BuildPhases()

	require.Len(t, first, 3)
	assert.NotSame(t, first[0], second[0])
	assert.Equal(t, phase.TypeFocus, first[1].Type)
	assert.False(t, first[1].IsActive)
}
