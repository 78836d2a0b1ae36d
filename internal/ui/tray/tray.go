// Package tray shows the timer in the system tray and drives it from the
// tray menu.
package tray

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/rs/zerolog"

	"cadence/internal/bus"
	"cadence/internal/core/phase"
	"cadence/internal/core/timer"
	"cadence/internal/module"
)

// ModuleName is the name the tray binds its bus under.
const ModuleName = "Tray"

// App is the part of desktop.App the tray needs.
type App interface {
	SetSystemTrayMenu(menu *fyne.Menu)
	SetSystemTrayIcon(icon fyne.Resource)
}

// Controls is the timer surface the menu drives.
type Controls interface {
	Start()
	Skip()
	Stop()
	Running() bool
}

// Options configures the tray.
type Options struct {
	App      App
	Controls Controls
	// Title names the menu.
	Title string
	// OnQuit runs when Quit is chosen.
	OnQuit func()
	// OnPreferences adds a Preferences item when set.
	OnPreferences func()
	// Icon returns the tray icon for a phase type; nil keeps the app icon.
	Icon func(t phase.Type, running bool) fyne.Resource
	// Do runs UI updates on the UI goroutine. Nil means fyne.Do.
	Do func(func())
}

// Manager handles system tray state.
type Manager struct {
	base     *module.Base
	logger   zerolog.Logger
	app      App
	controls Controls
	title    string
	onQuit   func()
	icon     func(phase.Type, bool) fyne.Resource
	do       func(func())

	mu         sync.Mutex
	statusItem *fyne.MenuItem
	toggleItem *fyne.MenuItem
	skipItem   *fyne.MenuItem
	prefsItem  *fyne.MenuItem
	quitItem   *fyne.MenuItem
	snapshot   phase.Snapshot
	running    bool
}

// NewFactory returns the module factory for the tray.
func NewFactory(registry *bus.Registry, opts Options) *module.Factory[*Manager] {
	return module.NewFactory(registry, ModuleName, func(base *module.Base) (*Manager, error) {
		return New(base, opts)
	})
}

// New builds the tray menu and follows timer events on base.
func New(base *module.Base, opts Options) (*Manager, error) {
	if opts.App == nil || opts.Controls == nil {
		return nil, fmt.Errorf("tray: app and controls are required")
	}
	if opts.Do == nil {
		opts.Do = fyne.Do
	}
	if opts.Title == "" {
		opts.Title = "Cadence"
	}

	manager := &Manager{
		base:     base,
		logger:   base.Logger(),
		app:      opts.App,
		controls: opts.Controls,
		title:    opts.Title,
		onQuit:   opts.OnQuit,
		icon:     opts.Icon,
		do:       opts.Do,
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true
	manager.toggleItem = fyne.NewMenuItem("Start", manager.toggle)
	manager.skipItem = fyne.NewMenuItem("Skip", manager.controls.Skip)
	if opts.OnPreferences != nil {
		manager.prefsItem = fyne.NewMenuItem("Preferences...", opts.OnPreferences)
	}
	manager.quitItem = fyne.NewMenuItem("Quit", func() {
		manager.controls.Stop()
		if manager.onQuit != nil {
			manager.onQuit()
		}
	})

	base.On(timer.EventPhaseSet, "tray.set", manager.onSet)
	base.On(timer.EventPhaseStart, "tray.start", manager.onStart)
	base.On(timer.EventTick, "tray.tick", manager.onTick)
	base.On(timer.EventPhaseEnd, "tray.end", manager.onEnd)

	manager.app.SetSystemTrayMenu(manager.menu(FormatStatus(phase.Snapshot{}, false), false))
	return manager, nil
}

// FormatStatus renders the status line for a phase.
func FormatStatus(snapshot phase.Snapshot, running bool) string {
	if snapshot.Type == "" {
		return "idle"
	}
	if !running {
		return fmt.Sprintf("%s %s (stopped)", snapshot.Type.Label(), phase.FormatClock(snapshot.AllocatedTime))
	}
	return fmt.Sprintf("%s %s", snapshot.Type.Label(), phase.FormatClock(snapshot.RemainingTime))
}

// Status returns the current status line.
func (manager *Manager) Status() string {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return FormatStatus(manager.snapshot, manager.running)
}

func (manager *Manager) toggle() {
	if manager.controls.Running() {
		manager.controls.Stop()
		return
	}
	manager.controls.Start()
}

func (manager *Manager) onSet(args ...any) {
	manager.update(args, nil)
}

func (manager *Manager) onStart(args ...any) {
	running := true
	manager.update(args, &running)
}

func (manager *Manager) onTick(args ...any) {
	manager.update(args, nil)
}

func (manager *Manager) onEnd(args ...any) {
	running := false
	manager.update(args, &running)
}

// update records the payload and refreshes the tray on the UI goroutine.
func (manager *Manager) update(args []any, running *bool) {
	payload, ok := timer.PayloadFrom(args)
	if !ok {
		return
	}

	manager.mu.Lock()
	manager.snapshot = payload.Phase
	var icon fyne.Resource
	if running != nil {
		manager.running = *running
		if manager.icon != nil {
			icon = manager.icon(payload.Phase.Type, manager.running)
		}
	}
	status := FormatStatus(manager.snapshot, manager.running)
	isRunning := manager.running
	manager.mu.Unlock()

	manager.do(func() {
		manager.app.SetSystemTrayMenu(manager.menu(status, isRunning))
		if icon != nil {
			manager.app.SetSystemTrayIcon(icon)
		}
	})
}

// menu relabels the shared menu items and returns a fresh menu. It runs on
// the UI goroutine once the tray is shown.
func (manager *Manager) menu(status string, running bool) *fyne.Menu {
	manager.statusItem.Label = fmt.Sprintf("Status: %s", status)
	if running {
		manager.toggleItem.Label = "Stop"
	} else {
		manager.toggleItem.Label = "Start"
	}
	items := []*fyne.MenuItem{
		manager.statusItem,
		manager.toggleItem,
		manager.skipItem,
		fyne.NewMenuItemSeparator(),
	}
	if manager.prefsItem != nil {
		items = append(items, manager.prefsItem)
	}
	items = append(items, manager.quitItem)
	return fyne.NewMenu(manager.title, items...)
}
