package main

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"cadence/internal/api"
	"cadence/internal/bus"
	"cadence/internal/config"
	"cadence/internal/core/phase"
	"cadence/internal/core/timer"
	"cadence/internal/logging"
	"cadence/internal/notify"
	"cadence/internal/platform"
	"cadence/internal/settings"
	"cadence/internal/stats"
	"cadence/internal/ui/preferences"
	"cadence/internal/ui/tray"
	"cadence/resources"
)

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the timer",
		Long: `Run the timer in the system tray, or headless with --tray=false.

A headless timer starts the first phase immediately and is controlled
through the HTTP API when --http is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.Duration("tick", 0, "tick duration, overriding the settings file")
	flags.String("http", "", "serve the control API on this address, e.g. 127.0.0.1:7070")
	flags.Bool("tray", true, "show the system tray")
	flags.Bool("notifications", true, "announce phase changes")
	flags.Bool("watch", true, "reload the settings file when it changes")
	mustBind(c.viper, config.KeyTickDuration, flags.Lookup("tick"))
	mustBind(c.viper, config.KeyHTTPAddr, flags.Lookup("http"))
	mustBind(c.viper, config.KeyTray, flags.Lookup("tray"))
	mustBind(c.viper, config.KeyNotifications, flags.Lookup("notifications"))
	mustBind(c.viper, config.KeyWatch, flags.Lookup("watch"))
	return cmd
}

// modules holds the wired bus tree for one run.
type modules struct {
	registry *bus.Registry
	settings *settings.Settings
	timer    *timer.Timer
	closers  []func()
}

func (m *modules) close() {
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
}

func (c *cli) run(ctx context.Context) error {
	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := c.wire(ctx, promRegistry)
	if err != nil {
		return err
	}
	defer m.close()

	errCh := make(chan error, 1)
	if c.cfg.HTTPAddr != "" {
		if err := c.startAPI(ctx, m, promRegistry, errCh); err != nil {
			return err
		}
	}

	if c.cfg.Tray {
		fyneApp := app.NewWithID(appID)
		if desktopApp, ok := fyneApp.(desktop.App); ok {
			return c.runTray(ctx, m, fyneApp, desktopApp)
		}
		c.logger.Warn().Msg("system tray unsupported on this platform, running headless")
	}
	return c.runHeadless(ctx, m, errCh)
}

// wire builds every module that does not depend on the UI mode.
func (c *cli) wire(ctx context.Context, promRegistry prometheus.Registerer) (*modules, error) {
	path, err := c.settingsPath()
	if err != nil {
		return nil, err
	}

	registry := bus.NewRegistry(logging.Component(c.logger, "bus"))
	m := &modules{registry: registry}

	settingsFactory := settings.NewFactory(registry, settings.Options{Path: path})
	m.settings, err = settingsFactory.Instance()
	if err != nil {
		return nil, err
	}
	m.closers = append(m.closers, settingsFactory.Close)
	if c.cfg.Watch {
		if err := m.settings.Watch(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("settings will not reload automatically")
		}
	}

	statsFactory := stats.NewFactory(registry, stats.Options{Registerer: promRegistry})
	if _, err := statsFactory.Instance(); err != nil {
		m.close()
		return nil, err
	}
	m.closers = append(m.closers, statsFactory.Close)

	timerFactory := timer.NewFactory(registry, timer.Config{TickDuration: c.cfg.TickDuration})
	m.timer, err = timerFactory.Instance()
	if err != nil {
		m.close()
		return nil, fmt.Errorf("start timer: %w", err)
	}
	m.closers = append(m.closers, m.timer.Stop, timerFactory.Close)

	c.logger.Info().
		Str("settings", path).
		Int("phases", len(m.timer.Phases())).
		Dur("tick", m.timer.TickDuration()).
		Msg("timer ready")
	return m, nil
}

// startAPI serves the control API until ctx is done. The server's result is
// sent on errCh.
func (c *cli) startAPI(ctx context.Context, m *modules, gatherer prometheus.Gatherer, errCh chan<- error) error {
	apiFactory := api.NewFactory(m.registry, api.Options{Controller: m.timer, Gatherer: gatherer})
	server, err := apiFactory.Instance()
	if err != nil {
		return err
	}
	m.closers = append(m.closers, apiFactory.Close)

	go func() {
		errCh <- server.ListenAndServe(ctx, c.cfg.HTTPAddr)
	}()
	return nil
}

func (c *cli) runHeadless(ctx context.Context, m *modules, errCh <-chan error) error {
	if c.cfg.Notifications {
		if _, err := notify.NewFactory(m.registry, notify.Options{}).Instance(); err != nil {
			return err
		}
	}

	m.timer.Start()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (c *cli) runTray(ctx context.Context, m *modules, fyneApp fyne.App, desktopApp desktop.App) error {
	fyneApp.SetIcon(resources.MustIdleIcon())

	if c.cfg.Notifications {
		if _, err := notify.NewFactory(m.registry, notify.Options{Sender: notify.AppSender{App: fyneApp}}).Instance(); err != nil {
			return err
		}
	}

	prefs := preferences.New(fyneApp, appName, m.settings.Current(), m.settings.Save)
	_, err := tray.NewFactory(m.registry, tray.Options{
		App:      desktopApp,
		Controls: m.timer,
		Title:    appName,
		OnQuit:   fyneApp.Quit,
		OnPreferences: func() {
			prefs.UpdateSettings(m.settings.Current())
			prefs.Show()
		},
		Icon: func(t phase.Type, running bool) fyne.Resource {
			if !running {
				return resources.MustIdleIcon()
			}
			return resources.MustPhaseIcon(t)
		},
	}).Instance()
	if err != nil {
		return err
	}
	desktopApp.SetSystemTrayIcon(resources.MustIdleIcon())

	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	fyneApp.Run()
	return nil
}
