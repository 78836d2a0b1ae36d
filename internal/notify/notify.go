// Package notify turns timer lifecycle events into desktop notifications.
package notify

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"github.com/rs/zerolog"

	"cadence/internal/bus"
	"cadence/internal/core/phase"
	"cadence/internal/core/timer"
	"cadence/internal/module"
)

// ModuleName is the name the notifier binds its bus under.
const ModuleName = "Notifier"

// Notification is a single message for the user.
type Notification struct {
	Title string
	Body  string
}

// Sender delivers notifications.
type Sender interface {
	Send(notification Notification) error
}

// ErrNoApp is returned by an AppSender without a fyne app.
var ErrNoApp = errors.New("notify: no fyne app")

// AppSender shows notifications through the fyne desktop driver.
type AppSender struct {
	App fyne.App
}

// Send implements Sender.
func (s AppSender) Send(notification Notification) error {
	if s.App == nil {
		return ErrNoApp
	}
	s.App.SendNotification(fyne.NewNotification(notification.Title, notification.Body))
	return nil
}

// LogSender writes notifications to the log, for headless runs.
type LogSender struct {
	Logger zerolog.Logger
}

// Send implements Sender.
func (s LogSender) Send(notification Notification) error {
	s.Logger.Info().Str("title", notification.Title).Msg(notification.Body)
	return nil
}

// Options configures the notifier.
type Options struct {
	// Sender defaults to a LogSender on the module logger.
	Sender Sender
}

// Notifier sends a notification when phases start, finish and overrun.
type Notifier struct {
	base   *module.Base
	logger zerolog.Logger
	sender Sender

	mu      sync.Mutex
	overrun time.Time // start time of the phase already warned about
}

// NewFactory returns the module factory for the notifier.
func NewFactory(registry *bus.Registry, opts Options) *module.Factory[*Notifier] {
	return module.NewFactory(registry, ModuleName, func(base *module.Base) (*Notifier, error) {
		return New(base, opts), nil
	})
}

// New subscribes a notifier on base.
func New(base *module.Base, opts Options) *Notifier {
	n := &Notifier{
		base:   base,
		logger: base.Logger(),
		sender: opts.Sender,
	}
	if n.sender == nil {
		n.sender = LogSender{Logger: n.logger}
	}

	base.On(timer.EventPhaseStart, "notify.start", n.onStart)
	base.On(timer.EventPhaseEnd, "notify.end", n.onEnd)
	base.On(timer.EventTick, "notify.overrun", n.onTick)
	return n
}

// StartMessage describes a phase that just started.
func StartMessage(snapshot phase.Snapshot) Notification {
	body := fmt.Sprintf("%s on the clock", phase.FormatClock(snapshot.AllocatedTime))
	if snapshot.CanOverrun {
		body += ", may run over"
	}
	return Notification{
		Title: snapshot.Type.Label() + " started",
		Body:  body,
	}
}

// EndMessage describes a phase that ended for reason. It reports false for
// endings the user does not need to hear about.
func EndMessage(snapshot phase.Snapshot, reason timer.EndReason) (Notification, bool) {
	label := snapshot.Type.Label()
	switch reason {
	case timer.EndCompleted:
		return Notification{
			Title: label + " complete",
			Body:  fmt.Sprintf("%s done", phase.FormatClock(snapshot.ElapsedTime)),
		}, true
	case timer.EndStopped:
		return Notification{
			Title: "Timer stopped",
			Body:  fmt.Sprintf("%s stopped after %s", label, phase.FormatClock(snapshot.ElapsedTime)),
		}, true
	default:
		return Notification{}, false
	}
}

// OverrunMessage describes a phase that has used its allocation.
func OverrunMessage(snapshot phase.Snapshot) Notification {
	return Notification{
		Title: snapshot.Type.Label() + " is over time",
		Body:  fmt.Sprintf("%s allocated, skip when ready", phase.FormatClock(snapshot.AllocatedTime)),
	}
}

func (n *Notifier) onStart(args ...any) {
	payload, ok := timer.PayloadFrom(args)
	if !ok {
		return
	}
	n.send(StartMessage(payload.Phase))
}

func (n *Notifier) onEnd(args ...any) {
	payload, ok := timer.PayloadFrom(args)
	if !ok {
		return
	}
	if message, ok := EndMessage(payload.Phase, payload.Reason); ok {
		n.send(message)
	}
}

func (n *Notifier) onTick(args ...any) {
	payload, ok := timer.PayloadFrom(args)
	if !ok || !payload.Phase.Overrun() {
		return
	}

	n.mu.Lock()
	if n.overrun.Equal(payload.Phase.StartTime) {
		n.mu.Unlock()
		return
	}
	n.overrun = payload.Phase.StartTime
	n.mu.Unlock()

	n.send(OverrunMessage(payload.Phase))
}

func (n *Notifier) send(notification Notification) {
	if err := n.sender.Send(notification); err != nil {
		n.logger.Warn().Err(err).Str("title", notification.Title).Msg("notification not sent")
	}
}
