package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"cadence/internal/core/model"
	"cadence/internal/core/phase"
	"cadence/internal/platform"
)

const settingsFileName = "settings.yaml"

type yamlPhase struct {
	Type             string `yaml:"type"`
	AllocatedSeconds int    `yaml:"allocated_seconds"`
	CanOverrun       bool   `yaml:"can_overrun,omitempty"`
}

type yamlSettings struct {
	TickMillis int         `yaml:"tick_millis"`
	Phases     []yamlPhase `yaml:"phases"`
}

// DefaultPath returns the settings file location in the user config dir.
func DefaultPath(appName string) (string, error) {
	configDir, err := platform.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve settings path: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

// LoadSettings reads timer settings from YAML.
// If the file does not exist, default settings are returned.
func LoadSettings(path string) (model.Settings, error) {
	settings := model.DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	if err := applyYamlSettings(&settings, fileData); err != nil {
		return model.DefaultSettings(), fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings writes timer settings to YAML.
func SaveSettings(path string, settings model.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		TickMillis: int(settings.TickDuration / time.Millisecond),
		Phases:     make([]yamlPhase, 0, len(settings.Phases)),
	}
	for _, cfg := range settings.Phases {
		fileData.Phases = append(fileData.Phases, yamlPhase{
			Type:             string(cfg.Type),
			AllocatedSeconds: int(cfg.Allocated / time.Second),
			CanOverrun:       cfg.CanOverrun,
		})
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// applyYamlSettings keeps defaults for absent values and rejects phases it
// cannot use.
func applyYamlSettings(settings *model.Settings, fileData yamlSettings) error {
	if fileData.TickMillis > 0 {
		settings.TickDuration = time.Duration(fileData.TickMillis) * time.Millisecond
	}
	if len(fileData.Phases) == 0 {
		return nil
	}

	phases := make([]model.PhaseConfig, 0, len(fileData.Phases))
	for i, entry := range fileData.Phases {
		phaseType, err := phase.ParseType(entry.Type)
		if err != nil {
			return fmt.Errorf("phase %d: %w", i, err)
		}
		if entry.AllocatedSeconds <= 0 {
			return fmt.Errorf("phase %d: allocated_seconds must be positive", i)
		}
		phases = append(phases, model.PhaseConfig{
			Type:       phaseType,
			Allocated:  time.Duration(entry.AllocatedSeconds) * time.Second,
			CanOverrun: entry.CanOverrun,
		})
	}
	settings.Phases = phases
	return nil
}
