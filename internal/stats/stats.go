// Package stats counts phase lifecycle events and exports them as
// Prometheus metrics.
package stats

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"cadence/internal/bus"
	"cadence/internal/core/model"
	"cadence/internal/core/phase"
	"cadence/internal/core/timer"
	"cadence/internal/module"
)

// ModuleName is the name the stats module binds its bus under.
const ModuleName = "Stats"

// Summary is the answer to stats:summary.
type Summary struct {
	Started     map[phase.Type]int `json:"started"`
	Completed   map[phase.Type]int `json:"completed"`
	Interrupted int                `json:"interrupted"`
	FocusTime   time.Duration      `json:"focus_time"`
	Ticks       int                `json:"ticks"`
}

type metrics struct {
	started   *prometheus.CounterVec
	completed *prometheus.CounterVec
	remaining prometheus.Gauge
	ticks     prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	factory := promauto.With(registerer)
	return &metrics{
		started: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadence_phases_started_total",
				Help: "Total number of phases started",
			},
			[]string{"type"},
		),
		completed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadence_phases_completed_total",
				Help: "Total number of phases that ran their full allocation",
			},
			[]string{"type"},
		),
		remaining: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cadence_phase_remaining_seconds",
				Help: "Seconds left in the active phase, negative while overrunning",
			},
		),
		ticks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cadence_ticks_total",
				Help: "Total number of timer ticks",
			},
		),
	}
}

// Options configures the stats module.
type Options struct {
	// Registerer receives the metrics. Nil means a private registry.
	Registerer prometheus.Registerer
}

// Stats listens to timer lifecycle events anywhere in the bus tree.
type Stats struct {
	base    *module.Base
	logger  zerolog.Logger
	metrics *metrics

	mu      sync.Mutex
	summary Summary
}

// NewFactory returns the module factory for the stats module.
func NewFactory(registry *bus.Registry, opts Options) *module.Factory[*Stats] {
	return module.NewFactory(registry, ModuleName, func(base *module.Base) (*Stats, error) {
		return New(base, opts), nil
	})
}

// New subscribes a stats collector on base.
func New(base *module.Base, opts Options) *Stats {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}

	s := &Stats{
		base:    base,
		logger:  base.Logger(),
		metrics: newMetrics(opts.Registerer),
		summary: Summary{
			Started:   make(map[phase.Type]int),
			Completed: make(map[phase.Type]int),
		},
	}

	base.On(timer.EventPhaseStart, "stats.start", s.onStart)
	base.On(timer.EventPhaseEnd, "stats.end", s.onEnd)
	base.On(timer.EventTick, "stats.tick", s.onTick)
	base.Provide(model.StatsSummary, func(...any) any { return s.Summary() })
	return s
}

// Summary returns a copy of the counters gathered so far.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := s.summary
	summary.Started = make(map[phase.Type]int, len(s.summary.Started))
	for k, v := range s.summary.Started {
		summary.Started[k] = v
	}
	summary.Completed = make(map[phase.Type]int, len(s.summary.Completed))
	for k, v := range s.summary.Completed {
		summary.Completed[k] = v
	}
	return summary
}

func (s *Stats) onStart(args ...any) {
	payload, ok := timer.PayloadFrom(args)
	if !ok {
		return
	}

	s.mu.Lock()
	s.summary.Started[payload.Phase.Type]++
	s.mu.Unlock()

	s.metrics.started.WithLabelValues(string(payload.Phase.Type)).Inc()
	s.metrics.remaining.Set(payload.Phase.RemainingTime.Seconds())
}

// onEnd counts a phase as completed once it has used its whole allocation,
// which for an overrunnable phase means it was skipped after running out.
func (s *Stats) onEnd(args ...any) {
	payload, ok := timer.PayloadFrom(args)
	if !ok {
		return
	}
	snapshot := payload.Phase
	completed := payload.Reason == timer.EndCompleted ||
		(snapshot.CanOverrun && snapshot.ElapsedTime >= snapshot.AllocatedTime)

	s.mu.Lock()
	if completed {
		s.summary.Completed[snapshot.Type]++
	} else {
		s.summary.Interrupted++
	}
	if snapshot.Type == phase.TypeFocus {
		s.summary.FocusTime += snapshot.ElapsedTime
	}
	s.mu.Unlock()

	if completed {
		s.metrics.completed.WithLabelValues(string(snapshot.Type)).Inc()
	}
	s.metrics.remaining.Set(0)
}

func (s *Stats) onTick(args ...any) {
	payload, ok := timer.PayloadFrom(args)
	if !ok {
		return
	}

	s.mu.Lock()
	s.summary.Ticks++
	s.mu.Unlock()

	s.metrics.ticks.Inc()
	s.metrics.remaining.Set(payload.Phase.RemainingTime.Seconds())
}
