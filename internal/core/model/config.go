package model

import (
	"fmt"
	"time"

	"cadence/internal/core/phase"
)

// Request keys answered through bus getters.
const (
	// ConfigGet takes a setting key and answers its current value.
	ConfigGet = "config:get"
	// StatsSummary answers the statistics collected so far.
	StatsSummary = "stats:summary"
)

// Setting keys understood by ConfigGet.
const (
	SettingPhases       = "phases"
	SettingTickDuration = "tickDuration"
)

// EventConfigChanged is emitted after the settings file has been reloaded.
const EventConfigChanged = "CONFIG_CHANGED"

// DefaultTickDuration is the tick cadence used when nothing else is configured.
const DefaultTickDuration = time.Second

// PhaseConfig describes one configured phase.
type PhaseConfig struct {
	Type       phase.Type
	Allocated  time.Duration
	CanOverrun bool
}

// Settings contains the user-editable timer settings.
type Settings struct {
	TickDuration time.Duration
	Phases       []PhaseConfig
}

// DefaultSettings returns the default planning, focus, break cycle.
func DefaultSettings() Settings {
	return Settings{
		TickDuration: DefaultTickDuration,
		Phases: []PhaseConfig{
			{Type: phase.TypePlanning, Allocated: 5 * time.Minute, CanOverrun: true},
			{Type: phase.TypeFocus, Allocated: 25 * time.Minute},
			{Type: phase.TypeBreak, Allocated: 5 * time.Minute},
		},
	}
}

// Validate checks that the settings can drive a timer.
func (settings Settings) Validate() error {
	if settings.TickDuration <= 0 {
		return fmt.Errorf("tick duration must be positive, got %s", settings.TickDuration)
	}
	return ValidatePhases(settings.Phases)
}

// ValidatePhases checks a phase list.
func ValidatePhases(phases []PhaseConfig) error {
	if len(phases) == 0 {
		return fmt.Errorf("at least one phase is required")
	}
	for i, cfg := range phases {
		if !cfg.Type.Valid() {
			return fmt.Errorf("phase %d: unknown type %q", i, cfg.Type)
		}
		if cfg.Allocated <= 0 {
			return fmt.Errorf("phase %d: allocated time must be positive, got %s", i, cfg.Allocated)
		}
	}
	return nil
}

// BuildPhases returns fresh, inactive phases for the configured cycle.
func (settings Settings) BuildPhases() []*phase.Phase {
	return BuildPhases(settings.Phases)
}

// BuildPhases returns fresh, inactive phases for configs.
func BuildPhases(configs []PhaseConfig) []*phase.Phase {
	phases := make([]*phase.Phase, 0, len(configs))
	for _, cfg := range configs {
		phases = append(phases, phase.New(cfg.Type, cfg.Allocated, cfg.CanOverrun))
	}
	return phases
}
