package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cadence/internal/bus"
	"cadence/internal/core/model"
	"cadence/internal/core/phase"
	"cadence/internal/module"
)

// ModuleName is the name the timer binds its bus under.
const ModuleName = "Timer"

var (
	// ErrPhaseIndex indicates a phase index outside the configured cycle.
	ErrPhaseIndex = errors.New("phase index out of range")
	// ErrTickDuration indicates a non-positive tick duration.
	ErrTickDuration = errors.New("tick duration must be positive")
)

// Config contains runtime options for the Timer.
type Config struct {
	// TickDuration overrides the configured tick cadence when positive.
	TickDuration time.Duration
	// Clock defaults to SystemClock.
	Clock Clock
	// Defaults is used when no module answers config:get.
	Defaults model.Settings
}

// Timer cycles through phases, ticking while a phase is active.
type Timer struct {
	base   *module.Base
	logger zerolog.Logger
	clock  Clock

	mu           sync.Mutex
	phases       []*phase.Phase
	currentIndex int
	tickDuration time.Duration
	ticker       Ticker
	stopCh       chan struct{}
	generation   uint64
	running      bool

	// emitMu guards pending and delivering. It is taken under mu, never the
	// other way round.
	emitMu     sync.Mutex
	pending    []emission
	delivering bool
}

// NewFactory returns the module factory for the timer.
func NewFactory(registry *bus.Registry, config Config) *module.Factory[*Timer] {
	return module.NewFactory(registry, ModuleName, func(base *module.Base) (*Timer, error) {
		return New(base, config)
	})
}

// New builds an idle timer on base, loading its phases through config:get.
func New(base *module.Base, config Config) (*Timer, error) {
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	timer := &Timer{
		base:   base,
		logger: base.Logger(),
		clock:  config.Clock,
	}

	settings := timer.resolveSettings(config)
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("timer settings: %w", err)
	}
	timer.phases = settings.BuildPhases()
	timer.tickDuration = settings.TickDuration

	base.On(model.EventConfigChanged, "timer.reload", timer.handleConfigChanged)

	timer.mu.Lock()
	events := timer.selectLocked(0, timer.clock.Now(), false)
	timer.queueLocked(events)
	timer.mu.Unlock()
	timer.deliver()

	timer.logger.Info().
		Int("phases", len(timer.phases)).
		Dur("tick", timer.tickDuration).
		Msg("timer ready")
	return timer, nil
}

// Start activates the current phase and begins ticking.
func (timer *Timer) Start() {
	timer.mu.Lock()
	if timer.running {
		timer.mu.Unlock()
		timer.logger.Debug().Msg("start ignored, already running")
		return
	}
	events := timer.startLocked(timer.clock.Now())
	timer.queueLocked(events)
	timer.mu.Unlock()

	timer.deliver()
}

// StartNextPhase ends the current phase and starts the next one.
func (timer *Timer) StartNextPhase() {
	timer.mu.Lock()
	now := timer.clock.Now()
	events := timer.endLocked(now, EndSkipped)
	events = append(events, timer.selectLocked(timer.nextIndexLocked(), now, true)...)
	events = append(events, timer.startLocked(now)...)
	timer.queueLocked(events)
	timer.mu.Unlock()

	timer.deliver()
}

// Skip is an alias for StartNextPhase.
func (timer *Timer) Skip() {
	timer.StartNextPhase()
}

// Stop ends the current phase and stops ticking.
func (timer *Timer) Stop() {
	timer.mu.Lock()
	if !timer.running {
		timer.mu.Unlock()
		return
	}
	events := timer.endLocked(timer.clock.Now(), EndStopped)
	timer.queueLocked(events)
	timer.mu.Unlock()

	timer.deliver()
}

// SetCurrentPhase jumps to index. While running, the old phase ends and the
// new one starts immediately; while idle the new phase is only selected.
func (timer *Timer) SetCurrentPhase(index int) error {
	timer.mu.Lock()
	if index < 0 || index >= len(timer.phases) {
		count := len(timer.phases)
		timer.mu.Unlock()
		return fmt.Errorf("set phase %d of %d: %w", index, count, ErrPhaseIndex)
	}

	now := timer.clock.Now()
	wasRunning := timer.running
	var events []emission
	if wasRunning {
		events = timer.endLocked(now, EndSkipped)
	}
	events = append(events, timer.selectLocked(index, now, wasRunning)...)
	if wasRunning {
		events = append(events, timer.startLocked(now)...)
	}
	timer.queueLocked(events)
	timer.mu.Unlock()

	timer.deliver()
	return nil
}

// SetTickDuration changes the cadence of subsequent ticks.
func (timer *Timer) SetTickDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("set tick duration %s: %w", duration, ErrTickDuration)
	}

	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.tickDuration = duration
	if timer.running {
		timer.startTickerLocked()
	}
	return nil
}

// SetPhases replaces the cycle and restarts it at the first phase. A running
// timer keeps running on the new cycle.
func (timer *Timer) SetPhases(configs []model.PhaseConfig) error {
	if err := model.ValidatePhases(configs); err != nil {
		return fmt.Errorf("set phases: %w", err)
	}
	phases := model.BuildPhases(configs)

	timer.mu.Lock()
	now := timer.clock.Now()
	wasRunning := timer.running
	var events []emission
	if wasRunning {
		events = timer.endLocked(now, EndReloaded)
	}
	timer.phases = phases
	timer.currentIndex = 0
	events = append(events, timer.selectLocked(0, now, wasRunning)...)
	if wasRunning {
		events = append(events, timer.startLocked(now)...)
	}
	timer.queueLocked(events)
	timer.mu.Unlock()

	timer.deliver()
	return nil
}

// Phases returns a snapshot of every phase in cycle order.
func (timer *Timer) Phases() []phase.Snapshot {
	timer.mu.Lock()
	defer timer.mu.Unlock()

	now := timer.clock.Now()
	snapshots := make([]phase.Snapshot, len(timer.phases))
	for i, p := range timer.phases {
		snapshots[i] = p.Snapshot(now)
	}
	return snapshots
}

// CurrentPhase returns a snapshot of the current phase.
func (timer *Timer) CurrentPhase() phase.Snapshot {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.currentLocked().Snapshot(timer.clock.Now())
}

// CurrentIndex returns the index of the current phase.
func (timer *Timer) CurrentIndex() int {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.currentIndex
}

// TickDuration returns the tick cadence.
func (timer *Timer) TickDuration() time.Duration {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.tickDuration
}

// Running reports whether a phase is active and ticking.
func (timer *Timer) Running() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.running
}

func (timer *Timer) resolveSettings(config Config) model.Settings {
	settings := config.Defaults
	if len(settings.Phases) == 0 {
		settings.Phases = model.DefaultSettings().Phases
	}
	if settings.TickDuration <= 0 {
		settings.TickDuration = model.DefaultTickDuration
	}

	if configs, ok := timer.queryPhases(); ok {
		settings.Phases = configs
	}
	if tick, ok := timer.queryTickDuration(); ok {
		settings.TickDuration = tick
	}
	if config.TickDuration > 0 {
		settings.TickDuration = config.TickDuration
	}
	return settings
}

func (timer *Timer) queryPhases() ([]model.PhaseConfig, bool) {
	for _, answer := range timer.base.Get(model.ConfigGet, model.SettingPhases) {
		if configs, ok := answer.([]model.PhaseConfig); ok && len(configs) > 0 {
			return configs, true
		}
	}
	return nil, false
}

func (timer *Timer) queryTickDuration() (time.Duration, bool) {
	for _, answer := range timer.base.Get(model.ConfigGet, model.SettingTickDuration) {
		if tick, ok := answer.(time.Duration); ok && tick > 0 {
			return tick, true
		}
	}
	return 0, false
}

func (timer *Timer) handleConfigChanged(args ...any) {
	if configs, ok := timer.queryPhases(); ok {
		if err := timer.SetPhases(configs); err != nil {
			timer.logger.Warn().Err(err).Msg("ignoring reloaded phases")
		}
	}
	if tick, ok := timer.queryTickDuration(); ok {
		if err := timer.SetTickDuration(tick); err != nil {
			timer.logger.Warn().Err(err).Msg("ignoring reloaded tick duration")
		}
	}
}

func (timer *Timer) run(ticker Ticker, stopCh <-chan struct{}, generation uint64) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			timer.tick(generation)
		}
	}
}

func (timer *Timer) tick(generation uint64) {
	timer.mu.Lock()
	if !timer.running || generation != timer.generation {
		timer.mu.Unlock()
		return
	}

	now := timer.clock.Now()
	current := timer.currentLocked()
	events := []emission{{event: EventTick, payload: timer.payloadLocked(now)}}
	if current.Remaining(now) <= 0 && !current.CanOverrun {
		events = append(events, timer.endLocked(now, EndCompleted)...)
		events = append(events, timer.selectLocked(timer.nextIndexLocked(), now, true)...)
		events = append(events, timer.startLocked(now)...)
	}
	timer.queueLocked(events)
	timer.mu.Unlock()

	timer.deliver()
}

func (timer *Timer) startLocked(now time.Time) []emission {
	current := timer.currentLocked()
	current.SetStartTime(now)
	current.SetActive(true)
	timer.running = true
	timer.startTickerLocked()
	return []emission{{event: EventPhaseStart, payload: timer.payloadLocked(now)}}
}

func (timer *Timer) endLocked(now time.Time, reason EndReason) []emission {
	current := timer.currentLocked()
	timer.stopTickerLocked()
	timer.running = false
	if !current.IsActive {
		return nil
	}

	payload := timer.payloadLocked(now)
	payload.Reason = reason
	current.SetActive(false)
	return []emission{{event: EventPhaseEnd, payload: payload}}
}

func (timer *Timer) selectLocked(index int, now time.Time, activate bool) []emission {
	if old := timer.currentLocked(); old.IsActive {
		old.SetActive(false)
	}
	timer.currentIndex = index
	if activate {
		next := timer.currentLocked()
		next.SetStartTime(now)
		next.SetActive(true)
	}
	return []emission{{event: EventPhaseSet, payload: timer.payloadLocked(now)}}
}

// startTickerLocked replaces the ticker; the previous one is always stopped
// first so a phase never ticks twice per period.
func (timer *Timer) startTickerLocked() {
	timer.stopTickerLocked()
	timer.generation++
	ticker := timer.clock.NewTicker(timer.tickDuration)
	stopCh := make(chan struct{})
	timer.ticker = ticker
	timer.stopCh = stopCh
	go timer.run(ticker, stopCh, timer.generation)
}

func (timer *Timer) stopTickerLocked() {
	if timer.ticker == nil {
		return
	}
	timer.ticker.Stop()
	close(timer.stopCh)
	timer.ticker = nil
	timer.stopCh = nil
}

func (timer *Timer) currentLocked() *phase.Phase {
	return timer.phases[timer.currentIndex]
}

func (timer *Timer) nextIndexLocked() int {
	return (timer.currentIndex + 1) % len(timer.phases)
}

func (timer *Timer) payloadLocked(now time.Time) Payload {
	return Payload{
		Phase: timer.currentLocked().Snapshot(now),
		Index: timer.currentIndex,
		At:    now,
	}
}

// queueLocked appends events in the order the state changed.
func (timer *Timer) queueLocked(events []emission) {
	if len(events) == 0 {
		return
	}
	timer.emitMu.Lock()
	timer.pending = append(timer.pending, events...)
	timer.emitMu.Unlock()
}

// deliver emits queued events outside every lock. Only one goroutine delivers
// at a time; a call made while another delivery is in progress, including one
// from a listener, returns at once and its events follow in order.
func (timer *Timer) deliver() {
	timer.emitMu.Lock()
	if timer.delivering {
		timer.emitMu.Unlock()
		return
	}
	timer.delivering = true
	for len(timer.pending) > 0 {
		next := timer.pending[0]
		timer.pending = timer.pending[1:]
		timer.emitMu.Unlock()

		timer.emit(next)

		timer.emitMu.Lock()
	}
	timer.pending = nil
	timer.delivering = false
	timer.emitMu.Unlock()
}

func (timer *Timer) emit(e emission) {
	if e.event != EventTick {
		timer.logger.Debug().
			Str("event", e.event).
			Str("phase", string(e.payload.Phase.Type)).
			Int("index", e.payload.Index).
			Msg("timer event")
	}
	timer.base.Emit(e.event, e.payload)
}
