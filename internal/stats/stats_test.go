package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/bus"
	"cadence/internal/core/model"
	"cadence/internal/core/phase"
	"cadence/internal/core/timer"
)

func setup(t *testing.T) (*bus.Bus, *Stats, *prometheus.Registry) {
	t.Helper()
	registry := bus.NewRegistry(zerolog.Nop())
	promRegistry := prometheus.NewRegistry()

	s, err := NewFactory(registry, Options{Registerer: promRegistry}).Instance()
	require.NoError(t, err)

	source, err := registry.Bus("Source:Bus")
	require.NoError(t, err)
	return source, s, promRegistry
}

func payload(t phase.Type, allocated, elapsed time.Duration, canOverrun bool) timer.Payload {
	return timer.Payload{
		Phase: phase.Snapshot{
			Type:          t,
			AllocatedTime: allocated,
			ElapsedTime:   elapsed,
			RemainingTime: allocated - elapsed,
			CanOverrun:    canOverrun,
			IsActive:      true,
		},
	}
}

func ended(p timer.Payload, reason timer.EndReason) timer.Payload {
	p.Reason = reason
	return p
}

func TestStats_CountsLifecycle(t *testing.T) {
	source, s, _ := setup(t)

	source.Emit(timer.EventPhaseStart, payload(phase.TypeFocus, time.Minute, 0, false))
	source.Emit(timer.EventTick, payload(phase.TypeFocus, time.Minute, 30*time.Second, false))
	source.Emit(timer.EventPhaseEnd, ended(payload(phase.TypeFocus, time.Minute, time.Minute, false), timer.EndCompleted))
	source.Emit(timer.EventPhaseStart, payload(phase.TypeBreak, time.Minute, 0, false))
	source.Emit(timer.EventPhaseEnd, ended(payload(phase.TypeBreak, time.Minute, 10*time.Second, false), timer.EndSkipped))

	summary := s.Summary()
	assert.Equal(t, map[phase.Type]int{phase.TypeFocus: 1, phase.TypeBreak: 1}, summary.Started)
	assert.Equal(t, map[phase.Type]int{phase.TypeFocus: 1}, summary.Completed)
	assert.Equal(t, 1, summary.Interrupted)
	assert.Equal(t, time.Minute, summary.FocusTime)
	assert.Equal(t, 1, summary.Ticks)
}

func TestStats_OverrunPhaseSkippedAfterAllocationCountsAsCompleted(t *testing.T) {
	source, s, _ := setup(t)

	source.Emit(timer.EventPhaseEnd, ended(payload(phase.TypePlanning, time.Minute, 2*time.Minute, true), timer.EndSkipped))
	source.Emit(timer.EventPhaseEnd, ended(payload(phase.TypePlanning, time.Minute, 30*time.Second, true), timer.EndSkipped))

	summary := s.Summary()
	assert.Equal(t, 1, summary.Completed[phase.TypePlanning])
	assert.Equal(t, 1, summary.Interrupted)
}

func TestStats_Metrics(t *testing.T) {
	source, s, promRegistry := setup(t)

	source.Emit(timer.EventPhaseStart, payload(phase.TypeFocus, time.Minute, 0, false))
	assert.Equal(t, 60.0, testutil.ToFloat64(s.metrics.remaining))

	source.Emit(timer.EventTick, payload(phase.TypeFocus, time.Minute, 15*time.Second, false))
	source.Emit(timer.EventTick, payload(phase.TypeFocus, time.Minute, 20*time.Second, false))
	assert.Equal(t, 40.0, testutil.ToFloat64(s.metrics.remaining))

	source.Emit(timer.EventPhaseEnd, ended(payload(phase.TypeFocus, time.Minute, time.Minute, false), timer.EndCompleted))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.started.WithLabelValues("focus")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.completed.WithLabelValues("focus")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.ticks))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.remaining))

	count, err := testutil.GatherAndCount(promRegistry,
		"cadence_phases_started_total",
		"cadence_phases_completed_total",
		"cadence_phase_remaining_seconds",
		"cadence_ticks_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestStats_IgnoresForeignPayloads(t *testing.T) {
	source, s, _ := setup(t)

	source.Emit(timer.EventPhaseStart, "not a payload")
	source.Emit(timer.EventTick)

	summary := s.Summary()
	assert.Empty(t, summary.Started)
	assert.Zero(t, summary.Ticks)
}

func TestStats_SummaryGetter(t *testing.T) {
	source, _, _ := setup(t)
	source.Emit(timer.EventPhaseStart, payload(phase.TypeBreak, time.Minute, 0, false))

	answers := source.Get(model.StatsSummary)

	require.Len(t, answers, 1)
	summary, ok := answers[0].(Summary)
	require.True(t, ok)
	assert.Equal(t, 1, summary.Started[phase.TypeBreak])
}

func TestStats_SummaryIsACopy(t *testing.T) {
	source, s, _ := setup(t)
	source.Emit(timer.EventPhaseStart, payload(phase.TypeFocus, time.Minute, 0, false))

	summary := s.Summary()
	summary.Started[phase.TypeFocus] = 99

	assert.Equal(t, 1, s.Summary().Started[phase.TypeFocus])
}

func TestStats_WithRealTimer(t *testing.T) {
	registry := bus.NewRegistry(zerolog.Nop())
	s, err := NewFactory(registry, Options{}).Instance()
	require.NoError(t, err)
	tm, err := timer.NewFactory(registry, timer.Config{}).Instance()
	require.NoError(t, err)

	tm.Start()
	tm.Skip()
	tm.Stop()

	summary := s.Summary()
	assert.Equal(t, 2, sumCounts(summary.Started))
	assert.Equal(t, 2, summary.Interrupted)
}

func sumCounts(counts map[phase.Type]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
