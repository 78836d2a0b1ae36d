// Package settings serves the phase settings file to the rest of the bus
// tree and announces changes to it.
package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"cadence/internal/bus"
	"cadence/internal/core/model"
	"cadence/internal/module"
	"cadence/internal/storage"
)

// ModuleName is the name the settings module binds its bus under.
const ModuleName = "Settings"

const defaultDebounce = 100 * time.Millisecond

// Options configures the settings module.
type Options struct {
	// Path is the settings file.
	Path string
	// Debounce collapses bursts of file events. Zero means 100ms.
	Debounce time.Duration
}

// Settings owns the loaded phase settings and answers config:get.
type Settings struct {
	base     *module.Base
	logger   zerolog.Logger
	path     string
	debounce time.Duration

	mu      sync.RWMutex
	current model.Settings
}

// NewFactory returns the module factory for the settings module.
func NewFactory(registry *bus.Registry, opts Options) *module.Factory[*Settings] {
	return module.NewFactory(registry, ModuleName, func(base *module.Base) (*Settings, error) {
		return New(base, opts)
	})
}

// New loads the settings file and provides config:get on base. A missing
// file yields defaults; an unreadable one is logged and also yields defaults.
func New(base *module.Base, opts Options) (*Settings, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("settings: empty path")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}

	s := &Settings{
		base:     base,
		logger:   base.Logger(),
		path:     opts.Path,
		debounce: opts.Debounce,
	}

	loaded, err := storage.LoadSettings(opts.Path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", opts.Path).Msg("using default phase settings")
	}
	s.current = loaded

	base.Provide(model.ConfigGet, s.answer)
	return s, nil
}

// Path returns the settings file location.
func (s *Settings) Path() string {
	return s.path
}

// Current returns a copy of the loaded settings.
func (s *Settings) Current() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.current)
}

// Reload re-reads the settings file and emits CONFIG_CHANGED when it differs
// from the loaded settings. On error the previous settings stay in place.
func (s *Settings) Reload() error {
	loaded, err := storage.LoadSettings(s.path)
	if err != nil {
		return fmt.Errorf("reload settings: %w", err)
	}
	if !s.replace(loaded) {
		s.logger.Debug().Str("path", s.path).Msg("settings unchanged")
		return nil
	}
	s.logger.Info().Str("path", s.path).Int("phases", len(loaded.Phases)).Msg("settings reloaded")
	return nil
}

// Save writes settings to the file and emits CONFIG_CHANGED. The settings
// take effect as read back from the file, so the watcher sees no change when
// it picks up the write.
func (s *Settings) Save(settings model.Settings) error {
	if err := storage.SaveSettings(s.path, settings); err != nil {
		return err
	}
	saved, err := storage.LoadSettings(s.path)
	if err != nil {
		return fmt.Errorf("read back settings: %w", err)
	}
	s.replace(saved)
	return nil
}

// Watch reloads the settings whenever the file is written. The watcher is
// registered before Watch returns and stops when ctx is done.
func (s *Settings) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *Settings) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	target := filepath.Base(s.path)
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	for {
		select {
		case <-ctx.Done():
			debounceTimer.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounceTimer.Reset(s.debounce)

		case <-debounceTimer.C:
			if err := s.Reload(); err != nil {
				s.logger.Warn().Err(err).Msg("keeping previous settings")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("settings watcher error")
		}
	}
}

// replace swaps in settings and emits CONFIG_CHANGED. It reports false and
// emits nothing when settings equal the current ones.
func (s *Settings) replace(settings model.Settings) bool {
	s.mu.Lock()
	if equalSettings(s.current, settings) {
		s.mu.Unlock()
		return false
	}
	s.current = settings
	s.mu.Unlock()

	s.base.Emit(model.EventConfigChanged, cloneSettings(settings))
	return true
}

func (s *Settings) answer(args ...any) any {
	if len(args) == 0 {
		return nil
	}
	key, _ := args[0].(string)

	current := s.Current()
	switch key {
	case model.SettingPhases:
		return current.Phases
	case model.SettingTickDuration:
		return current.TickDuration
	default:
		return nil
	}
}

func equalSettings(a, b model.Settings) bool {
	return a.TickDuration == b.TickDuration && slices.Equal(a.Phases, b.Phases)
}

func cloneSettings(settings model.Settings) model.Settings {
	clone := settings
	clone.Phases = append([]model.PhaseConfig(nil), settings.Phases...)
	return clone
}
